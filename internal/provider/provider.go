// Package provider defines the provider-agnostic interfaces the dispatcher
// and workflow executor call out through. No provider SDK calls happen
// outside implementations of these interfaces; the engine only sees the
// request/result types below.
package provider

import (
	"context"
	"time"
)

// VoiceCaller places an outbound call driven by a named voice agent.
type VoiceCaller interface {
	PlaceCall(ctx context.Context, agentRef, toNumber string, callContext map[string]string) (CallResult, error)
}

type CallResult struct {
	ProviderCallID string `json:"provider_call_id"`
}

// SMSSender delivers a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, toNumber, body string) (SMSResult, error)
}

type SMSResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// EmailSender delivers a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (EmailResult, error)
}

type EmailResult struct {
	MessageID string `json:"message_id"`
}

// CalendarScheduler books an appointment on the tenant's calendar.
type CalendarScheduler interface {
	CreateAppointment(ctx context.Context, details AppointmentDetails) (Appointment, error)
}

type AppointmentDetails struct {
	Title     string        `json:"title"`
	ContactID int           `json:"contact_id"`
	Start     time.Time     `json:"start"`
	Duration  time.Duration `json:"duration"`
	Notes     string        `json:"notes,omitempty"`
}

type Appointment struct {
	ID       string        `json:"id"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// DocumentGenerator produces a report or presentation artifact (CMA, market
// report) for use by later workflow steps.
type DocumentGenerator interface {
	Generate(ctx context.Context, kind string, params map[string]string) (Document, error)
}

type Document struct {
	ID          string `json:"id"`
	ArtifactURL string `json:"artifact_url"`
}
