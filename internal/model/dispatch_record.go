package model

import "time"

type DispatchStatus string

const (
	DispatchSent      DispatchStatus = "sent"
	DispatchDelivered DispatchStatus = "delivered"
	DispatchFailed    DispatchStatus = "failed"
)

// DispatchRecord is one concrete attempt to contact one lead via one channel.
// It is created before the provider call so a crash mid-send still leaves an
// auditable attempt. Records are never deleted; engagement timestamps are
// appended in place as provider webhooks arrive.
type DispatchRecord struct {
	ID          int            `db:"id" json:"id"`
	TenantID    string         `db:"tenant_id" json:"tenant_id"`
	CampaignID  int            `db:"campaign_id" json:"campaign_id"`
	ContactID   int            `db:"contact_id" json:"contact_id"`
	Channel     Channel        `db:"channel" json:"channel"`
	ContactName string         `db:"contact_name" json:"contact_name"`
	Phone       string         `db:"phone" json:"phone"`
	Email       string         `db:"email" json:"email"`
	Status      DispatchStatus `db:"status" json:"status"`
	ProviderRef string         `db:"provider_ref" json:"provider_ref"`
	LastError   string         `db:"last_error" json:"last_error,omitempty"`
	SentAt      time.Time      `db:"sent_at" json:"sent_at"`
	DeliveredAt *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	OpenedAt    *time.Time     `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt   *time.Time     `db:"clicked_at" json:"clicked_at,omitempty"`
	RepliedAt   *time.Time     `db:"replied_at" json:"replied_at,omitempty"`
}
