package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/crmforge/outreach-backend/internal/errors"
	"github.com/crmforge/outreach-backend/internal/model"
)

type mockCampaignRepo struct {
	campaigns map[int]*model.Campaign
	enrolled  map[int][]model.CampaignContact
	nextID    int
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{
		campaigns: map[int]*model.Campaign{},
		enrolled:  map[int][]model.CampaignContact{},
		nextID:    1,
	}
}

func (m *mockCampaignRepo) ListCampaigns(tenantID string, offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	var all []*model.Campaign
	for _, c := range m.campaigns {
		if c.TenantID == tenantID {
			all = append(all, c)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockCampaignRepo) ListRunning(tenantID string) ([]*model.Campaign, error) { return nil, nil }

func (m *mockCampaignRepo) GetByID(tenantID string, id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (m *mockCampaignRepo) Create(c *model.Campaign) error {
	c.ID = m.nextID
	m.nextID++
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) UpdateStatus(tenantID string, campaignID int, status model.CampaignStatus) error {
	m.campaigns[campaignID].Status = status
	return nil
}

func (m *mockCampaignRepo) IncrementCounters(campaignID int, sentDelta, attemptDelta int) error {
	return nil
}

func (m *mockCampaignRepo) Enroll(campaignID, contactID int, score float64) (*model.CampaignContact, error) {
	for i := range m.enrolled[campaignID] {
		if m.enrolled[campaignID][i].ContactID == contactID {
			return &m.enrolled[campaignID][i], nil
		}
	}
	cc := model.CampaignContact{
		ID:         len(m.enrolled[campaignID]) + 1,
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     model.ContactPending,
		Score:      score,
	}
	m.enrolled[campaignID] = append(m.enrolled[campaignID], cc)
	return &cc, nil
}

func (m *mockCampaignRepo) ListContacts(campaignID int) ([]model.CampaignContact, error) {
	return m.enrolled[campaignID], nil
}

func (m *mockCampaignRepo) MarkContactSent(id int) error                             { return nil }
func (m *mockCampaignRepo) MarkContactFailed(id int) error                           { return nil }
func (m *mockCampaignRepo) UpdateContactStatus(id int, s model.ContactStatus) error  { return nil }
func (m *mockCampaignRepo) ContactStats(campaignID int) (map[string]int, error)      { return map[string]int{}, nil }

type mockContactRepo struct {
	contacts map[int]*model.Contact
}

func (m *mockContactRepo) GetByID(tenantID string, id int) (*model.Contact, error) {
	c, ok := m.contacts[id]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return c, nil
}

func (m *mockContactRepo) ListAll(tenantID string) ([]model.Contact, error) { return nil, nil }
func (m *mockContactRepo) Create(c *model.Contact) error                    { return nil }

type mockRecordRepo struct{}

func (m *mockRecordRepo) Create(rec *model.DispatchRecord) error                  { return nil }
func (m *mockRecordRepo) GetByID(id int) (*model.DispatchRecord, error)           { return nil, nil }
func (m *mockRecordRepo) MarkFailed(id int, errMsg string) error                  { return nil }
func (m *mockRecordRepo) SetProviderRef(id int, ref string) error                 { return nil }
func (m *mockRecordRepo) CountSince(campaignID int, since time.Time) (int, error) { return 0, nil }
func (m *mockRecordRepo) ListByCampaign(campaignID, limit int) ([]model.DispatchRecord, error) {
	return nil, nil
}
func (m *mockRecordRepo) ApplyEngagement(providerRef, event string, at time.Time) error { return nil }
func (m *mockRecordRepo) Stats(campaignID int) (map[string]int, error) {
	return map[string]int{"sent": 2}, nil
}
func (m *mockRecordRepo) EngagementStats(campaignID int) (map[string]int, error) {
	return map[string]int{}, nil
}

func newTestService() (*CampaignService, *mockCampaignRepo, *mockContactRepo) {
	campaigns := newMockCampaignRepo()
	contacts := &mockContactRepo{contacts: map[int]*model.Contact{}}
	svc := &CampaignService{
		CampaignRepo: campaigns,
		ContactRepo:  contacts,
		RecordRepo:   &mockRecordRepo{},
	}
	return svc, campaigns, contacts
}

func TestCreateCampaign(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.CreateCampaign("t1", CreateCampaignInput{
		Name:        "spring push",
		Channel:     "sms",
		DailyCap:    50,
		WindowStart: "09:00",
		WindowEnd:   "17:00",
		Template:    "hi {first_name}",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, c.Status)
	assert.Equal(t, "t1", c.TenantID)
	assert.NotZero(t, c.ID)
}

func TestCreateCampaignRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported channel")

	_, err = svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "sms", WindowStart: "09:00"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set together")

	_, err = svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "sms", WindowStart: "9am", WindowEnd: "5pm"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected HH:MM")
}

func TestStartAndPauseTransitions(t *testing.T) {
	svc, repo, _ := newTestService()
	c, err := svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "sms"})
	require.NoError(t, err)

	require.NoError(t, svc.Start("t1", c.ID))
	assert.Equal(t, model.CampaignRunning, repo.campaigns[c.ID].Status)

	// Running campaigns cannot be started again.
	require.Error(t, svc.Start("t1", c.ID))

	require.NoError(t, svc.Pause("t1", c.ID))
	assert.Equal(t, model.CampaignPaused, repo.campaigns[c.ID].Status)

	// Paused campaigns resume.
	require.NoError(t, svc.Start("t1", c.ID))
	assert.Equal(t, model.CampaignRunning, repo.campaigns[c.ID].Status)
}

func TestStartScopedToTenant(t *testing.T) {
	svc, _, _ := newTestService()
	c, err := svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "sms"})
	require.NoError(t, err)

	err = svc.Start("t2", c.ID)
	require.Error(t, err)
	var notFound *appErrors.ErrCampaignNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestEnrollContactsIdempotent(t *testing.T) {
	svc, repo, contacts := newTestService()
	c, err := svc.CreateCampaign("t1", CreateCampaignInput{Name: "x", Channel: "sms"})
	require.NoError(t, err)

	contacts.contacts[1] = &model.Contact{ID: 1, TenantID: "t1", Score: 0.8}
	contacts.contacts[2] = &model.Contact{ID: 2, TenantID: "t1", Score: 0.5}

	result, err := svc.EnrollContacts("t1", c.ID, []int{1, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Enrolled, "unknown contacts skipped, not fatal")
	assert.Len(t, repo.enrolled[c.ID], 2)

	// Re-enrolling keeps existing progress and rows.
	result, err = svc.EnrollContacts("t1", c.ID, []int{1, 2})
	require.NoError(t, err)
	assert.Len(t, repo.enrolled[c.ID], 2)
}

func TestListCampaignsPagination(t *testing.T) {
	svc, _, _ := newTestService()
	for i := 0; i < 5; i++ {
		_, err := svc.CreateCampaign("t1", CreateCampaignInput{Name: fmt.Sprintf("c%d", i), Channel: "sms"})
		require.NoError(t, err)
	}

	campaigns, pagination, err := svc.ListCampaigns("t1", 1, 2, "", "")
	require.NoError(t, err)
	assert.Len(t, campaigns, 2)
	assert.Equal(t, 5, pagination["total_count"])
	assert.Equal(t, 3, pagination["total_pages"])

	// Out-of-range pagination inputs are clamped, not rejected.
	_, pagination, err = svc.ListCampaigns("t1", 0, -5, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, pagination["page"])
	assert.Equal(t, 20, pagination["page_size"])
}

func TestRenderPreview(t *testing.T) {
	svc, _, contacts := newTestService()
	c, err := svc.CreateCampaign("t1", CreateCampaignInput{
		Name: "x", Channel: "sms", Template: "Hi {first_name} from {city}",
	})
	require.NoError(t, err)
	contacts.contacts[1] = &model.Contact{ID: 1, TenantID: "t1", FirstName: "Maya", City: "Austin"}

	out, err := svc.RenderPreview("t1", c.ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Maya from Austin", out)

	override := "Bye {first_name}"
	out, err = svc.RenderPreview("t1", c.ID, 1, &override)
	require.NoError(t, err)
	assert.Equal(t, "Bye Maya", out)
}

func TestRenderTemplateUnknownPlaceholder(t *testing.T) {
	out := RenderTemplate("Hi {first_name}", map[string]string{"first_name": ""})
	assert.Equal(t, "Hi <unknown>", out)
}
