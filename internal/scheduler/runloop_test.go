package scheduler

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmforge/outreach-backend/internal/dispatch"
	"github.com/crmforge/outreach-backend/internal/model"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// world is an in-memory backing store shared by the fake campaign store,
// record counter, contact loader and dispatcher, so that one pass's writes
// are visible to the next pass the way they would be against the database.
type world struct {
	campaigns []*model.Campaign
	enrolled  map[int][]model.CampaignContact
	people    map[int]*model.Contact

	dispatched map[int]int // campaign id -> records written today
	sentTo     []int       // contact ids in dispatch order
	failFor    map[int]bool
	loadErrFor map[int]bool
}

func newWorld() *world {
	return &world{
		enrolled:   map[int][]model.CampaignContact{},
		people:     map[int]*model.Contact{},
		dispatched: map[int]int{},
		failFor:    map[int]bool{},
		loadErrFor: map[int]bool{},
	}
}

func (w *world) ListRunning(tenantID string) ([]*model.Campaign, error) {
	return w.campaigns, nil
}

func (w *world) ListContacts(campaignID int) ([]model.CampaignContact, error) {
	return w.enrolled[campaignID], nil
}

func (w *world) CountSince(campaignID int, since time.Time) (int, error) {
	return w.dispatched[campaignID], nil
}

func (w *world) GetByID(tenantID string, id int) (*model.Contact, error) {
	if w.loadErrFor[id] {
		return nil, fmt.Errorf("db unavailable")
	}
	return w.people[id], nil
}

func (w *world) Dispatch(ctx context.Context, c *model.Campaign, cc *model.CampaignContact, contact *model.Contact) dispatch.Outcome {
	w.dispatched[c.ID]++
	for i := range w.enrolled[c.ID] {
		e := &w.enrolled[c.ID][i]
		if e.ID != cc.ID {
			continue
		}
		e.Attempts++
		if w.failFor[contact.ID] {
			e.Status = model.ContactFailed
		} else {
			e.Status = model.ContactSent
		}
	}
	if w.failFor[contact.ID] {
		return dispatch.Outcome{ContactID: contact.ID, Error: "provider error"}
	}
	w.sentTo = append(w.sentTo, contact.ID)
	return dispatch.Outcome{ContactID: contact.ID, RecordID: w.dispatched[c.ID], Success: true}
}

func (w *world) enroll(campaignID, contactID int, status model.ContactStatus, attempts int, score float64) {
	w.people[contactID] = &model.Contact{ID: contactID, TenantID: "t1", FirstName: "C", Phone: "+1", Score: score}
	w.enrolled[campaignID] = append(w.enrolled[campaignID], model.CampaignContact{
		ID:         len(w.enrolled[campaignID]) + 100,
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     status,
		Attempts:   attempts,
		Score:      score,
	})
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestScheduler(w *world, now time.Time) *Scheduler {
	return &Scheduler{
		Campaigns:  w,
		Records:    w,
		Contacts:   w,
		Dispatcher: w,
		Locker:     NoopLocker{},
		Clock:      fixedClock{t: now},
		LockTTL:    time.Minute,
		Log:        testLogger(),
	}
}

func runningCampaign(id, cap int) *model.Campaign {
	return &model.Campaign{
		ID:          id,
		TenantID:    "t1",
		Name:        fmt.Sprintf("campaign-%d", id),
		Channel:     model.ChannelSMS,
		Status:      model.CampaignRunning,
		DailyCap:    cap,
		WindowStart: "09:00",
		WindowEnd:   "17:00",
		Template:    "hi",
	}
}

func at(hhmm string) time.Time {
	t, _ := time.Parse("2006-01-02 15:04", "2026-03-05 "+hhmm)
	return t
}

func TestQuotaLimitsBatchAndRepollIsIdempotent(t *testing.T) {
	w := newWorld()
	w.campaigns = []*model.Campaign{runningCampaign(1, 2)}
	for i := 1; i <= 5; i++ {
		w.enroll(1, i, model.ContactPending, 0, float64(i))
	}
	s := newTestScheduler(w, at("10:00"))

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dispatched)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []int{5, 4}, w.sentTo, "highest scores first")

	// Second pass in the same day: quota exhausted, nothing more goes out.
	summary, err = s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Dispatched)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, SkipQuota, summary.Results[0].Skipped)
}

func TestOutsideWindowSkipped(t *testing.T) {
	w := newWorld()
	w.campaigns = []*model.Campaign{runningCampaign(1, 10)}
	w.enroll(1, 1, model.ContactPending, 0, 0.5)
	s := newTestScheduler(w, at("08:30"))

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Dispatched)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, SkipWindow, summary.Results[0].Skipped)
}

type deniedLocker struct{}

func (deniedLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, nil
}
func (deniedLocker) Release(ctx context.Context, key string) error { return nil }

func TestHeldLockSkipsCampaign(t *testing.T) {
	w := newWorld()
	w.campaigns = []*model.Campaign{runningCampaign(1, 10)}
	w.enroll(1, 1, model.ContactPending, 0, 0.5)
	s := newTestScheduler(w, at("10:00"))
	s.Locker = deniedLocker{}

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Dispatched)
	assert.Equal(t, SkipLocked, summary.Results[0].Skipped)
}

func TestFailedContactsRetriedWithinBudget(t *testing.T) {
	w := newWorld()
	c := runningCampaign(1, 10)
	c.RetryOnFailure = true
	c.MaxRetries = 2
	w.campaigns = []*model.Campaign{c}
	w.enroll(1, 1, model.ContactFailed, 1, 0.9) // one attempt left
	w.enroll(1, 2, model.ContactFailed, 2, 0.8) // budget exhausted
	s := newTestScheduler(w, at("10:00"))

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dispatched)
	assert.Equal(t, []int{1}, w.sentTo)
}

func TestContactLoadFailureDoesNotAbortBatch(t *testing.T) {
	w := newWorld()
	w.campaigns = []*model.Campaign{runningCampaign(1, 10)}
	w.enroll(1, 1, model.ContactPending, 0, 0.9)
	w.enroll(1, 2, model.ContactPending, 0, 0.5)
	w.loadErrFor[1] = true
	s := newTestScheduler(w, at("10:00"))

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dispatched)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int{2}, w.sentTo)
}

func TestDispatchFailureCountedNotPropagated(t *testing.T) {
	w := newWorld()
	w.campaigns = []*model.Campaign{runningCampaign(1, 10)}
	w.enroll(1, 1, model.ContactPending, 0, 0.9)
	w.enroll(1, 2, model.ContactPending, 0, 0.5)
	w.failFor[1] = true
	s := newTestScheduler(w, at("10:00"))

	summary, err := s.ProcessRunningCampaigns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dispatched)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []int{2}, w.sentTo)
}
