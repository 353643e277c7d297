// Package analytics produces read-only rollups over recorded dispatch and
// workflow state for dashboards. It writes nothing and depends only on what
// the scheduler and executor have already persisted.
package analytics

import (
	"math"
)

// DispatchStatsSource is the slice of the dispatch-record repository the
// aggregator reads.
type DispatchStatsSource interface {
	Stats(campaignID int) (map[string]int, error)
	EngagementStats(campaignID int) (map[string]int, error)
}

type ContactStatsSource interface {
	ContactStats(campaignID int) (map[string]int, error)
}

type InstanceStatsSource interface {
	InstanceStats(tenantID string, templateID int) (map[string]int, error)
}

// CampaignSummary is the dashboard rollup for one campaign. Rates are
// percentages in [0, 100], rounded to two decimals, and exactly 0 when
// nothing was sent.
type CampaignSummary struct {
	CampaignID   int            `json:"campaign_id"`
	TotalSent    int            `json:"total_sent"`
	Delivered    int            `json:"delivered"`
	Failed       int            `json:"failed"`
	Opened       int            `json:"opened"`
	Clicked      int            `json:"clicked"`
	Replied      int            `json:"replied"`
	DeliveryRate float64        `json:"delivery_rate"`
	OpenRate     float64        `json:"open_rate"`
	ClickRate    float64        `json:"click_rate"`
	ReplyRate    float64        `json:"reply_rate"`
	Contacts     map[string]int `json:"contacts"`
}

type WorkflowSummary struct {
	TemplateID     int            `json:"template_id,omitempty"`
	Instances      map[string]int `json:"instances"`
	Total          int            `json:"total"`
	CompletionRate float64        `json:"completion_rate"`
}

type Aggregator struct {
	Records   DispatchStatsSource
	Campaigns ContactStatsSource
	Workflows InstanceStatsSource
}

func (a *Aggregator) CampaignSummary(campaignID int) (*CampaignSummary, error) {
	stats, err := a.Records.Stats(campaignID)
	if err != nil {
		return nil, err
	}
	engagement, err := a.Records.EngagementStats(campaignID)
	if err != nil {
		return nil, err
	}
	contacts, err := a.Campaigns.ContactStats(campaignID)
	if err != nil {
		return nil, err
	}

	// Every attempt starts life as "sent"; delivered is a later overwrite
	// of the same record, so total sent is the sum of all non-failed plus
	// failed attempts.
	totalSent := stats["sent"] + stats["delivered"] + stats["failed"]

	return &CampaignSummary{
		CampaignID:   campaignID,
		TotalSent:    totalSent,
		Delivered:    engagement["delivered"],
		Failed:       stats["failed"],
		Opened:       engagement["opened"],
		Clicked:      engagement["clicked"],
		Replied:      engagement["replied"],
		DeliveryRate: Rate(engagement["delivered"], totalSent),
		OpenRate:     Rate(engagement["opened"], totalSent),
		ClickRate:    Rate(engagement["clicked"], totalSent),
		ReplyRate:    Rate(engagement["replied"], totalSent),
		Contacts:     contacts,
	}, nil
}

func (a *Aggregator) WorkflowSummary(tenantID string, templateID int) (*WorkflowSummary, error) {
	stats, err := a.Workflows.InstanceStats(tenantID, templateID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	return &WorkflowSummary{
		TemplateID:     templateID,
		Instances:      stats,
		Total:          total,
		CompletionRate: Rate(stats["completed"], total),
	}, nil
}

// Rate returns numerator/denominator as a percentage rounded to two
// decimals. A zero denominator yields 0, never NaN or Inf.
func Rate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return math.Round(float64(numerator)/float64(denominator)*100*100) / 100
}
