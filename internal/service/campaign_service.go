package service

import (
	"fmt"
	"time"

	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	RecordRepo   repository.DispatchRecordRepositoryInterface
}

type CampaignDetails struct {
	Campaign      *model.Campaign `json:"campaign"`
	ContactStats  map[string]int  `json:"contact_stats"`
	DispatchStats map[string]int  `json:"dispatch_stats"`
}

// EnrollResult reports how many contacts an enrollment request actually
// added versus found already enrolled.
type EnrollResult struct {
	CampaignID int   `json:"campaign_id"`
	Enrolled   int   `json:"enrolled"`
	ContactIDs []int `json:"contact_ids"`
}

type CreateCampaignInput struct {
	Name           string   `json:"name"`
	Channel        string   `json:"channel"`
	DailyCap       int      `json:"daily_cap"`
	WindowStart    string   `json:"window_start"`
	WindowEnd      string   `json:"window_end"`
	RetryOnFailure bool     `json:"retry_on_failure"`
	MaxRetries     int      `json:"max_retries"`
	MinScore       *float64 `json:"min_score"`
	AgentRef       string   `json:"agent_ref"`
	Template       string   `json:"template"`
}

func (s *CampaignService) CreateCampaign(tenantID string, in CreateCampaignInput) (*model.Campaign, error) {
	switch model.Channel(in.Channel) {
	case model.ChannelVoice, model.ChannelSMS, model.ChannelEmail:
	default:
		return nil, fmt.Errorf("unsupported channel: %s", in.Channel)
	}
	if err := validateWindow(in.WindowStart, in.WindowEnd); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		TenantID:       tenantID,
		Name:           in.Name,
		Channel:        model.Channel(in.Channel),
		Status:         model.CampaignDraft,
		DailyCap:       in.DailyCap,
		WindowStart:    in.WindowStart,
		WindowEnd:      in.WindowEnd,
		RetryOnFailure: in.RetryOnFailure,
		MaxRetries:     in.MaxRetries,
		MinScore:       in.MinScore,
		AgentRef:       in.AgentRef,
		Template:       in.Template,
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateWindow(start, end string) error {
	if (start == "") != (end == "") {
		return fmt.Errorf("window start and end must be set together")
	}
	for _, v := range []string{start, end} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid window time %q: expected HH:MM", v)
		}
	}
	return nil
}

// Start moves a campaign into running; the scheduler picks it up on the next
// pass.
func (s *CampaignService) Start(tenantID string, campaignID int) error {
	c, err := s.CampaignRepo.GetByID(tenantID, campaignID)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignDraft && c.Status != model.CampaignPaused {
		return fmt.Errorf("campaign cannot be started from status: %s", c.Status)
	}
	return s.CampaignRepo.UpdateStatus(tenantID, campaignID, model.CampaignRunning)
}

func (s *CampaignService) Pause(tenantID string, campaignID int) error {
	c, err := s.CampaignRepo.GetByID(tenantID, campaignID)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignRunning {
		return fmt.Errorf("campaign cannot be paused from status: %s", c.Status)
	}
	return s.CampaignRepo.UpdateStatus(tenantID, campaignID, model.CampaignPaused)
}

// EnrollContacts attaches contacts to a campaign. Enrollment is idempotent;
// a contact already enrolled keeps its progress and is not counted again.
func (s *CampaignService) EnrollContacts(tenantID string, campaignID int, contactIDs []int) (*EnrollResult, error) {
	if _, err := s.CampaignRepo.GetByID(tenantID, campaignID); err != nil {
		return nil, err
	}

	result := &EnrollResult{CampaignID: campaignID, ContactIDs: []int{}}
	for _, contactID := range contactIDs {
		contact, err := s.ContactRepo.GetByID(tenantID, contactID)
		if err != nil {
			log.GetLogger().Warnf("enroll: failed to load contact %d: %v", contactID, err)
			continue
		}
		if contact == nil {
			log.GetLogger().Warnf("enroll: contact %d not found in tenant %s", contactID, tenantID)
			continue
		}
		if _, err := s.CampaignRepo.Enroll(campaignID, contactID, contact.Score); err != nil {
			log.GetLogger().Warnf("enroll: failed to enroll contact %d: %v", contactID, err)
			continue
		}
		result.Enrolled++
		result.ContactIDs = append(result.ContactIDs, contactID)
	}
	return result, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(tenantID string, page, pageSize int, channel, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(tenantID, offset, pageSize, channel, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(tenantID string, id int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	contactStats, err := s.CampaignRepo.ContactStats(id)
	if err != nil {
		return nil, err
	}
	dispatchStats, err := s.RecordRepo.Stats(id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetails{
		Campaign:      campaign,
		ContactStats:  contactStats,
		DispatchStats: dispatchStats,
	}, nil
}

// RenderPreview renders the campaign template against one contact without
// dispatching anything.
func (s *CampaignService) RenderPreview(tenantID string, campaignID, contactID int, overrideTemplate *string) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(tenantID, campaignID)
	if err != nil {
		return "", err
	}
	contact, err := s.ContactRepo.GetByID(tenantID, contactID)
	if err != nil {
		return "", err
	}
	if contact == nil {
		return "", fmt.Errorf("contact not found")
	}

	template := campaign.Template
	if overrideTemplate != nil && *overrideTemplate != "" {
		template = *overrideTemplate
	}
	if template == "" {
		return "", fmt.Errorf("template cannot be empty")
	}

	return RenderTemplate(template, map[string]string{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"city":       contact.City,
	}), nil
}
