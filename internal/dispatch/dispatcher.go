// Package dispatch performs one concrete contact attempt: pick the channel
// provider, record the attempt, and write the outcome back. It never retries;
// retry is a property of a later selection pass.
package dispatch

import (
	"context"
	"time"

	"github.com/crmforge/outreach-backend/internal/clock"
	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/provider"
	"github.com/crmforge/outreach-backend/internal/service"
)

// RecordStore is the slice of the dispatch-record repository the dispatcher
// needs.
type RecordStore interface {
	Create(rec *model.DispatchRecord) error
	MarkFailed(id int, errMsg string) error
	SetProviderRef(id int, ref string) error
}

// CampaignStore covers the contact-progress and counter writes.
type CampaignStore interface {
	MarkContactSent(id int) error
	MarkContactFailed(id int) error
	IncrementCounters(campaignID int, sentDelta, attemptDelta int) error
}

// Outcome is the per-contact result the run loop collects into its summary.
type Outcome struct {
	ContactID int    `json:"contact_id"`
	RecordID  int    `json:"record_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type Dispatcher struct {
	Records   RecordStore
	Campaigns CampaignStore
	Voice     provider.VoiceCaller
	SMS       provider.SMSSender
	Email     provider.EmailSender
	Clock     clock.Clock

	// Timeout bounds each provider call so one hanging send cannot stall
	// the whole batch.
	Timeout time.Duration
}

func NewDispatcher(records RecordStore, campaigns CampaignStore, voice provider.VoiceCaller,
	sms provider.SMSSender, email provider.EmailSender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		Records:   records,
		Campaigns: campaigns,
		Voice:     voice,
		SMS:       sms,
		Email:     email,
		Clock:     clock.Real{},
		Timeout:   timeout,
	}
}

// Dispatch attempts to reach one contact through the campaign's channel.
// Exactly one DispatchRecord is written per call, created before the provider
// is invoked so a crash mid-send still leaves the attempt on record.
func (d *Dispatcher) Dispatch(ctx context.Context, c *model.Campaign, cc *model.CampaignContact, contact *model.Contact) Outcome {
	rec := &model.DispatchRecord{
		TenantID:    c.TenantID,
		CampaignID:  c.ID,
		ContactID:   contact.ID,
		Channel:     c.Channel,
		ContactName: contact.FirstName + " " + contact.LastName,
		Phone:       contact.Phone,
		Email:       contact.Email,
		Status:      model.DispatchSent,
		SentAt:      d.Clock.Now(),
	}

	if err := d.checkAddress(c.Channel, contact); err != nil {
		// No provider call; the failed attempt is still audited.
		rec.Status = model.DispatchFailed
		rec.LastError = err.Error()
		if createErr := d.Records.Create(rec); createErr != nil {
			return Outcome{ContactID: contact.ID, Error: createErr.Error()}
		}
		return d.failed(c, cc, rec, err)
	}

	if err := d.Records.Create(rec); err != nil {
		return Outcome{ContactID: contact.ID, Error: err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	providerRef, err := d.send(callCtx, c, contact)
	if err != nil {
		if markErr := d.Records.MarkFailed(rec.ID, err.Error()); markErr != nil {
			return Outcome{ContactID: contact.ID, RecordID: rec.ID, Error: markErr.Error()}
		}
		return d.failed(c, cc, rec, err)
	}

	if err := d.Records.SetProviderRef(rec.ID, providerRef); err != nil {
		return Outcome{ContactID: contact.ID, RecordID: rec.ID, Error: err.Error()}
	}
	if err := d.Campaigns.MarkContactSent(cc.ID); err != nil {
		return Outcome{ContactID: contact.ID, RecordID: rec.ID, Error: err.Error()}
	}
	if err := d.Campaigns.IncrementCounters(c.ID, 1, 1); err != nil {
		return Outcome{ContactID: contact.ID, RecordID: rec.ID, Error: err.Error()}
	}
	return Outcome{ContactID: contact.ID, RecordID: rec.ID, Success: true}
}

func (d *Dispatcher) failed(c *model.Campaign, cc *model.CampaignContact, rec *model.DispatchRecord, cause error) Outcome {
	if err := d.Campaigns.MarkContactFailed(cc.ID); err != nil {
		return Outcome{ContactID: rec.ContactID, RecordID: rec.ID, Error: err.Error()}
	}
	if err := d.Campaigns.IncrementCounters(c.ID, 0, 1); err != nil {
		return Outcome{ContactID: rec.ContactID, RecordID: rec.ID, Error: err.Error()}
	}
	return Outcome{ContactID: rec.ContactID, RecordID: rec.ID, Error: cause.Error()}
}

func (d *Dispatcher) checkAddress(ch model.Channel, contact *model.Contact) error {
	switch ch {
	case model.ChannelVoice, model.ChannelSMS:
		if contact.Phone == "" {
			return appErrors.NewMissingAddress(contact.ID, string(ch))
		}
	case model.ChannelEmail:
		if contact.Email == "" {
			return appErrors.NewMissingAddress(contact.ID, string(ch))
		}
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, c *model.Campaign, contact *model.Contact) (string, error) {
	body := service.RenderTemplate(c.Template, map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"city":       contact.City,
	})

	switch c.Channel {
	case model.ChannelVoice:
		res, err := d.Voice.PlaceCall(ctx, c.AgentRef, contact.Phone, map[string]string{
			"campaign":     c.Name,
			"contact_name": contact.FirstName + " " + contact.LastName,
			"script":       body,
		})
		if err != nil {
			return "", err
		}
		return res.ProviderCallID, nil
	case model.ChannelSMS:
		res, err := d.SMS.SendSMS(ctx, contact.Phone, body)
		if err != nil {
			return "", err
		}
		return res.SID, nil
	default:
		res, err := d.Email.SendEmail(ctx, contact.Email, c.Name, body)
		if err != nil {
			return "", err
		}
		return res.MessageID, nil
	}
}
