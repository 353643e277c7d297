package provider

import (
	"context"

	"github.com/google/uuid"

	"github.com/crmforge/outreach-backend/internal/log"
)

// Sandbox implements every provider interface by logging the request and
// returning a synthetic reference. Used for local runs and the seeder; real
// providers are drop-in replacements.
type Sandbox struct{}

var _ VoiceCaller = Sandbox{}
var _ SMSSender = Sandbox{}
var _ EmailSender = Sandbox{}
var _ CalendarScheduler = Sandbox{}
var _ DocumentGenerator = Sandbox{}

func (Sandbox) PlaceCall(ctx context.Context, agentRef, toNumber string, callContext map[string]string) (CallResult, error) {
	log.GetLogger().Infof("sandbox: placing call to %s via agent %s", toNumber, agentRef)
	return CallResult{ProviderCallID: "call-" + uuid.NewString()}, nil
}

func (Sandbox) SendSMS(ctx context.Context, toNumber, body string) (SMSResult, error) {
	log.GetLogger().Infof("sandbox: sending sms to %s (%d chars)", toNumber, len(body))
	return SMSResult{SID: "sms-" + uuid.NewString(), Status: "queued"}, nil
}

func (Sandbox) SendEmail(ctx context.Context, to, subject, body string) (EmailResult, error) {
	log.GetLogger().Infof("sandbox: sending email to %s subject %q", to, subject)
	return EmailResult{MessageID: "mail-" + uuid.NewString()}, nil
}

func (Sandbox) CreateAppointment(ctx context.Context, details AppointmentDetails) (Appointment, error) {
	log.GetLogger().Infof("sandbox: booking %q for contact %d at %s", details.Title, details.ContactID, details.Start)
	return Appointment{ID: "appt-" + uuid.NewString(), Start: details.Start, Duration: details.Duration}, nil
}

func (Sandbox) Generate(ctx context.Context, kind string, params map[string]string) (Document, error) {
	log.GetLogger().Infof("sandbox: generating %s document", kind)
	id := "doc-" + uuid.NewString()
	return Document{ID: id, ArtifactURL: "https://artifacts.local/" + id + ".pdf"}, nil
}
