// Package selector picks which campaign contacts to dispatch next. It is a
// pure function over contacts already loaded for the campaign; the run loop
// supplies the limit from the remaining daily quota.
package selector

import (
	"sort"

	"github.com/crmforge/outreach-backend/internal/model"
)

// Eligible reports whether the contact may be dispatched for the campaign:
// pending, or failed with retries enabled and budget left. Terminal contacts
// (completed/converted) and retry-exhausted failures are never eligible,
// regardless of any other flag.
func Eligible(c *model.Campaign, cc *model.CampaignContact) bool {
	if cc.Status.Terminal() {
		return false
	}
	switch cc.Status {
	case model.ContactPending:
		// fall through to score gate
	case model.ContactFailed:
		if !c.RetryOnFailure || cc.Attempts >= c.MaxRetries {
			return false
		}
	default:
		return false
	}
	if c.MinScore != nil && cc.Score < *c.MinScore {
		return false
	}
	return true
}

// SelectCandidates filters contacts to the eligible set, orders them by
// score descending (stable, so equal scores keep their load order) and
// truncates to limit. A limit <= 0 selects nothing.
func SelectCandidates(c *model.Campaign, contacts []model.CampaignContact, limit int) []model.CampaignContact {
	if limit <= 0 {
		return nil
	}
	candidates := make([]model.CampaignContact, 0, len(contacts))
	for _, cc := range contacts {
		if Eligible(c, &cc) {
			candidates = append(candidates, cc)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
