package model

import "time"

type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactSent      ContactStatus = "sent"
	ContactFailed    ContactStatus = "failed"
	ContactCompleted ContactStatus = "completed"
	ContactConverted ContactStatus = "converted"
)

// Terminal reports whether the status permanently excludes the contact from
// selection. Retry-exhausted FAILED contacts are excluded separately, since
// exhaustion depends on the campaign's retry budget.
func (s ContactStatus) Terminal() bool {
	return s == ContactCompleted || s == ContactConverted
}

// CampaignContact tracks one contact's progress within one campaign.
// Attempts only ever increase; transitions run pending -> {sent, failed} and,
// after retries, end at a terminal status.
type CampaignContact struct {
	ID         int           `db:"id" json:"id"`
	CampaignID int           `db:"campaign_id" json:"campaign_id"`
	ContactID  int           `db:"contact_id" json:"contact_id"`
	Status     ContactStatus `db:"status" json:"status"`
	Attempts   int           `db:"attempts" json:"attempts"`
	Score      float64       `db:"score" json:"score"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
