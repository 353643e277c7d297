package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrMissingAddress means the contact lacks the address the campaign channel
// needs (phone for voice/sms, email for email). The dispatcher fails fast on
// it without calling any provider.
type ErrMissingAddress struct {
	ContactID int
	Channel   string
}

func (e *ErrMissingAddress) Error() string {
	return fmt.Sprintf("contact %d has no address for channel %s", e.ContactID, e.Channel)
}

func NewMissingAddress(contactID int, channel string) error {
	return &ErrMissingAddress{ContactID: contactID, Channel: channel}
}

// ErrUnknownActionKind is returned when a workflow task's action config names
// a kind the executor does not support. Raised at decode time, not mid-run.
type ErrUnknownActionKind struct {
	Kind string
}

func (e *ErrUnknownActionKind) Error() string {
	return fmt.Sprintf("unknown workflow action kind %q", e.Kind)
}

func NewUnknownActionKind(kind string) error {
	return &ErrUnknownActionKind{Kind: kind}
}

// ErrInstanceNotFound is returned when no workflow instance exists under the
// given tenant and id.
type ErrInstanceNotFound struct {
	InstanceID string
}

func (e *ErrInstanceNotFound) Error() string {
	return fmt.Sprintf("workflow instance %s not found", e.InstanceID)
}

func NewInstanceNotFound(id string) error {
	return &ErrInstanceNotFound{InstanceID: id}
}

// ErrInstanceNotPaused is returned when an approval event targets an
// instance that is not waiting at a HITL gate.
type ErrInstanceNotPaused struct {
	InstanceID string
	Status     string
}

func (e *ErrInstanceNotPaused) Error() string {
	return fmt.Sprintf("workflow instance %s is %s, not paused for approval", e.InstanceID, e.Status)
}

func NewInstanceNotPaused(id, status string) error {
	return &ErrInstanceNotPaused{InstanceID: id, Status: status}
}
