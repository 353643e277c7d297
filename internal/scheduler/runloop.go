// Package scheduler contains the campaign run loop: the periodically invoked
// batch pass that decides which running campaigns may dispatch right now and
// drives their selected contacts through the dispatcher. Everything it needs
// is recomputed from persisted state on each pass, so re-polling is safe.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crmforge/outreach-backend/internal/clock"
	"github.com/crmforge/outreach-backend/internal/dispatch"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/policy"
	"github.com/crmforge/outreach-backend/internal/selector"
)

type CampaignStore interface {
	ListRunning(tenantID string) ([]*model.Campaign, error)
	ListContacts(campaignID int) ([]model.CampaignContact, error)
}

type RecordCounter interface {
	CountSince(campaignID int, since time.Time) (int, error)
}

type ContactLoader interface {
	GetByID(tenantID string, id int) (*model.Contact, error)
}

type ContactDispatcher interface {
	Dispatch(ctx context.Context, c *model.Campaign, cc *model.CampaignContact, contact *model.Contact) dispatch.Outcome
}

type SkipReason string

const (
	SkipNone    SkipReason = ""
	SkipLocked  SkipReason = "locked"
	SkipWindow  SkipReason = "outside_window"
	SkipQuota   SkipReason = "quota_exhausted"
	SkipLoadErr SkipReason = "load_error"
)

// CampaignResult reports one campaign's pass: either a skip reason or the
// per-contact outcomes.
type CampaignResult struct {
	CampaignID int                `json:"campaign_id"`
	Skipped    SkipReason         `json:"skipped,omitempty"`
	Outcomes   []dispatch.Outcome `json:"outcomes,omitempty"`
}

// Summary aggregates one full run-loop invocation.
type Summary struct {
	Campaigns  int              `json:"campaigns"`
	Dispatched int              `json:"dispatched"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Results    []CampaignResult `json:"results"`
}

type Scheduler struct {
	Campaigns  CampaignStore
	Records    RecordCounter
	Contacts   ContactLoader
	Dispatcher ContactDispatcher
	Locker     Locker
	Clock      clock.Clock
	LockTTL    time.Duration
	Log        *logrus.Logger
}

// ProcessRunningCampaigns runs one batch pass over every running campaign,
// optionally scoped to a tenant (empty tenantID means all tenants). One
// campaign's failure never aborts the rest; per-contact failures are
// collected into the summary rather than propagated.
func (s *Scheduler) ProcessRunningCampaigns(ctx context.Context, tenantID string) (Summary, error) {
	summary := Summary{Results: []CampaignResult{}}

	campaigns, err := s.Campaigns.ListRunning(tenantID)
	if err != nil {
		return summary, err
	}
	summary.Campaigns = len(campaigns)

	for _, c := range campaigns {
		result := s.processCampaign(ctx, c)
		if result.Skipped != SkipNone {
			summary.Skipped++
		}
		for _, o := range result.Outcomes {
			if o.Success {
				summary.Dispatched++
			} else {
				summary.Failed++
			}
		}
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

func (s *Scheduler) processCampaign(ctx context.Context, c *model.Campaign) CampaignResult {
	result := CampaignResult{CampaignID: c.ID}

	acquired, err := s.Locker.Acquire(ctx, campaignLockKey(c.ID), s.LockTTL)
	if err != nil {
		s.Log.Errorf("campaign %d: lock acquire failed: %v", c.ID, err)
		result.Skipped = SkipLocked
		return result
	}
	if !acquired {
		s.Log.Debugf("campaign %d: already being processed, skipping", c.ID)
		result.Skipped = SkipLocked
		return result
	}
	defer func() {
		if err := s.Locker.Release(ctx, campaignLockKey(c.ID)); err != nil {
			s.Log.Warnf("campaign %d: lock release failed: %v", c.ID, err)
		}
	}()

	now := s.Clock.Now()
	if !policy.WithinWindow(c, now) {
		s.Log.Debugf("campaign %d: outside window %s-%s", c.ID, c.WindowStart, c.WindowEnd)
		result.Skipped = SkipWindow
		return result
	}

	dispatchedToday, err := s.Records.CountSince(c.ID, clock.Midnight(now))
	if err != nil {
		s.Log.Errorf("campaign %d: counting today's dispatches failed: %v", c.ID, err)
		result.Skipped = SkipLoadErr
		return result
	}
	quota := policy.RemainingQuota(c, dispatchedToday)
	if quota == 0 {
		s.Log.Debugf("campaign %d: daily cap %d reached", c.ID, c.DailyCap)
		result.Skipped = SkipQuota
		return result
	}

	contacts, err := s.Campaigns.ListContacts(c.ID)
	if err != nil {
		s.Log.Errorf("campaign %d: loading contacts failed: %v", c.ID, err)
		result.Skipped = SkipLoadErr
		return result
	}

	candidates := selector.SelectCandidates(c, contacts, quota)
	for i := range candidates {
		cc := &candidates[i]
		contact, err := s.Contacts.GetByID(c.TenantID, cc.ContactID)
		if err != nil || contact == nil {
			s.Log.Warnf("campaign %d: contact %d could not be loaded: %v", c.ID, cc.ContactID, err)
			result.Outcomes = append(result.Outcomes, dispatch.Outcome{
				ContactID: cc.ContactID, Error: "contact could not be loaded",
			})
			continue
		}

		outcome := s.Dispatcher.Dispatch(ctx, c, cc, contact)
		if outcome.Success {
			s.Log.Infof("campaign %d: dispatched to contact %d (record %d)", c.ID, outcome.ContactID, outcome.RecordID)
		} else {
			s.Log.Warnf("campaign %d: dispatch to contact %d failed: %s", c.ID, outcome.ContactID, outcome.Error)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}
