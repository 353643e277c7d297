package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crmforge/outreach-backend/internal/model"
)

func campaign(retry bool, maxRetries int) *model.Campaign {
	return &model.Campaign{RetryOnFailure: retry, MaxRetries: maxRetries}
}

func TestSelectPendingOnly(t *testing.T) {
	contacts := []model.CampaignContact{
		{ContactID: 1, Status: model.ContactPending},
		{ContactID: 2, Status: model.ContactSent},
		{ContactID: 3, Status: model.ContactCompleted},
		{ContactID: 4, Status: model.ContactConverted},
		{ContactID: 5, Status: model.ContactPending},
	}

	got := SelectCandidates(campaign(false, 0), contacts, 10)

	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ContactID)
	assert.Equal(t, 5, got[1].ContactID)
}

func TestFailedRetriedUntilBudgetExhausted(t *testing.T) {
	c := campaign(true, 2)
	failed := []model.CampaignContact{{ContactID: 1, Status: model.ContactFailed, Attempts: 1}}

	got := SelectCandidates(c, failed, 10)
	assert.Len(t, got, 1, "failed with attempts < maxRetries is retried")

	failed[0].Attempts = 2
	got = SelectCandidates(c, failed, 10)
	assert.Empty(t, got, "failed at the retry budget is permanently excluded")
}

func TestFailedNotRetriedWhenDisabled(t *testing.T) {
	failed := []model.CampaignContact{{ContactID: 1, Status: model.ContactFailed, Attempts: 0}}
	got := SelectCandidates(campaign(false, 5), failed, 10)
	assert.Empty(t, got)
}

func TestMinScoreGate(t *testing.T) {
	min := 50.0
	c := campaign(false, 0)
	c.MinScore = &min
	contacts := []model.CampaignContact{
		{ContactID: 1, Status: model.ContactPending, Score: 49.9},
		{ContactID: 2, Status: model.ContactPending, Score: 50},
		{ContactID: 3, Status: model.ContactPending, Score: 80},
	}

	got := SelectCandidates(c, contacts, 10)

	assert.Len(t, got, 2)
	assert.Equal(t, 3, got[0].ContactID, "highest score first")
	assert.Equal(t, 2, got[1].ContactID)
}

func TestOrderingStableOnTies(t *testing.T) {
	contacts := []model.CampaignContact{
		{ContactID: 1, Status: model.ContactPending, Score: 10},
		{ContactID: 2, Status: model.ContactPending, Score: 10},
		{ContactID: 3, Status: model.ContactPending, Score: 10},
	}

	got := SelectCandidates(campaign(false, 0), contacts, 10)

	assert.Equal(t, []int{1, 2, 3}, []int{got[0].ContactID, got[1].ContactID, got[2].ContactID},
		"ties keep insertion order")
}

func TestLimitTruncates(t *testing.T) {
	contacts := []model.CampaignContact{
		{ContactID: 1, Status: model.ContactPending, Score: 1},
		{ContactID: 2, Status: model.ContactPending, Score: 3},
		{ContactID: 3, Status: model.ContactPending, Score: 2},
	}

	got := SelectCandidates(campaign(false, 0), contacts, 2)

	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ContactID)
	assert.Equal(t, 3, got[1].ContactID)

	assert.Empty(t, SelectCandidates(campaign(false, 0), contacts, 0), "zero quota selects nothing")
}

func TestTerminalNeverSelected(t *testing.T) {
	// Hard invariant: terminal or retry-exhausted contacts are never
	// returned, even when every retry flag is set in their favor.
	c := campaign(true, 100)
	contacts := []model.CampaignContact{
		{ContactID: 1, Status: model.ContactCompleted},
		{ContactID: 2, Status: model.ContactConverted},
		{ContactID: 3, Status: model.ContactFailed, Attempts: 100},
	}
	assert.Empty(t, SelectCandidates(c, contacts, 10))
}
