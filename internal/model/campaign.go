package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Campaign is an outbound contact effort on a single channel, bounded by a
// daily cap and a time-of-day calling window. The scheduler only mutates its
// counters; lifecycle transitions are user actions.
type Campaign struct {
	ID             int            `db:"id" json:"id"`
	TenantID       string         `db:"tenant_id" json:"tenant_id"`
	Name           string         `db:"name" json:"name"`
	Channel        Channel        `db:"channel" json:"channel"`
	Status         CampaignStatus `db:"status" json:"status"`
	DailyCap       int            `db:"daily_cap" json:"daily_cap"`
	WindowStart    string         `db:"window_start" json:"window_start"` // "HH:MM"
	WindowEnd      string         `db:"window_end" json:"window_end"`     // "HH:MM"
	RetryOnFailure bool           `db:"retry_on_failure" json:"retry_on_failure"`
	MaxRetries     int            `db:"max_retries" json:"max_retries"`
	MinScore       *float64       `db:"min_score" json:"min_score,omitempty"`
	AgentRef       string         `db:"agent_ref" json:"agent_ref"`
	Template       string         `db:"template" json:"template"`
	SentCount      int            `db:"sent_count" json:"sent_count"`
	TotalAttempts  int            `db:"total_attempts" json:"total_attempts"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
