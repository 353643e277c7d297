package main

import (
	"encoding/json"
	"fmt"

	"github.com/crmforge/outreach-backend/internal/config"
	"github.com/crmforge/outreach-backend/internal/db"
	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/model"
	"github.com/crmforge/outreach-backend/internal/repository"
)

const tenant = "default"

// Seeds a demo tenant: a handful of contacts, one running SMS campaign and
// one follow-up workflow template with a HITL gate.
func main() {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	if err := db.Migrate(cfg.DB.DSN()); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	conn, err := db.Connect(cfg.DB.DSN())
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close()

	contactRepo := &repository.ContactRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	workflowRepo := &repository.WorkflowRepository{DB: db.Wrap(conn)}

	contacts := []model.Contact{
		{TenantID: tenant, FirstName: "Alice", LastName: "Mwangi", Phone: "+254700000001", Email: "alice@example.com", City: "Nairobi", Score: 82},
		{TenantID: tenant, FirstName: "Brian", LastName: "Otieno", Phone: "+254700000002", Email: "brian@example.com", City: "Mombasa", Score: 64},
		{TenantID: tenant, FirstName: "Carol", LastName: "Wanjiru", Email: "carol@example.com", City: "Kisumu", Score: 91},
		{TenantID: tenant, FirstName: "David", LastName: "Kamau", Phone: "+254700000004", City: "Nairobi", Score: 45},
	}
	for i := range contacts {
		if err := contactRepo.Create(&contacts[i]); err != nil {
			logger.Fatalf("failed to seed contact: %v", err)
		}
	}

	campaign := &model.Campaign{
		TenantID:       tenant,
		Name:           "Spring open house outreach",
		Channel:        model.ChannelSMS,
		Status:         model.CampaignRunning,
		DailyCap:       50,
		WindowStart:    "09:00",
		WindowEnd:      "17:00",
		RetryOnFailure: true,
		MaxRetries:     2,
		Template:       "Hi {first_name}, new listings just opened up in {city}. Reply YES for a viewing.",
	}
	if err := campaignRepo.Create(campaign); err != nil {
		logger.Fatalf("failed to seed campaign: %v", err)
	}
	for _, c := range contacts {
		if _, err := campaignRepo.Enroll(campaign.ID, c.ID, c.Score); err != nil {
			logger.Fatalf("failed to enroll contact %d: %v", c.ID, err)
		}
	}

	actions := func(v any) json.RawMessage {
		raw, err := json.Marshal(v)
		if err != nil {
			logger.Fatalf("failed to marshal actions: %v", err)
		}
		return raw
	}

	template := &model.WorkflowTemplate{
		TenantID: tenant,
		Name:     "Buyer follow-up",
		Tasks: []model.WorkflowTask{
			{
				Name:     "Intro call",
				Position: 1,
				AgentRef: "agent-intro",
				Actions: actions([]map[string]any{
					{"kind": "voice_call", "voice": map[string]string{"script": "Hi {first_name}, following up on your inquiry."}},
				}),
			},
			{
				Name:       "Market report",
				Position:   2,
				DelayValue: 1,
				DelayUnit:  model.DelayDays,
				Actions: actions([]map[string]any{
					{"kind": "generate", "generate": map[string]any{"kind": "market_report", "params": map[string]string{"region": "{city}"}}},
					{"kind": "email", "email": map[string]string{"subject": "Your market report", "body": "Hi {first_name}, your report is attached."}},
				}),
			},
			{
				Name:     "Agent review",
				Position: 3,
				IsHITL:   true,
			},
			{
				Name:       "Book viewing",
				Position:   4,
				DelayValue: 2,
				DelayUnit:  model.DelayHours,
				Actions: actions([]map[string]any{
					{"kind": "calendar", "calendar": map[string]any{"title": "Property viewing", "offset_hours": 48, "duration_minutes": 45}},
					{"kind": "sms", "sms": map[string]string{"body": "Hi {first_name}, your viewing is booked. See you soon!"}},
				}),
			},
		},
	}
	if err := workflowRepo.CreateTemplate(template); err != nil {
		logger.Fatalf("failed to seed workflow template: %v", err)
	}

	fmt.Println("Database seeding completed successfully!")
}
