package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crmforge/outreach-backend/internal/analytics"
	"github.com/crmforge/outreach-backend/internal/clock"
	"github.com/crmforge/outreach-backend/internal/config"
	"github.com/crmforge/outreach-backend/internal/controller"
	"github.com/crmforge/outreach-backend/internal/db"
	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/provider"
	"github.com/crmforge/outreach-backend/internal/queue"
	"github.com/crmforge/outreach-backend/internal/repository"
	"github.com/crmforge/outreach-backend/internal/service"
	"github.com/crmforge/outreach-backend/internal/workflow"
)

func main() {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	if cfg.DB.RunMigrations {
		if err := db.Migrate(cfg.DB.DSN()); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
		logger.Info("migrations applied")
	}

	conn, err := db.Connect(cfg.DB.DSN())
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	recordRepo := &repository.DispatchRecordRepository{DB: conn}
	workflowRepo := &repository.WorkflowRepository{DB: db.Wrap(conn)}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		RecordRepo:   recordRepo,
	}

	sandbox := provider.Sandbox{}
	executor := &workflow.Executor{
		Store:     workflowRepo,
		Contacts:  contactRepo,
		Voice:     sandbox,
		SMS:       sandbox,
		Email:     sandbox,
		Calendar:  sandbox,
		Generator: sandbox,
		Clock:     clock.Real{},
		Timeout:   cfg.Scheduler.DispatchTimeout,
		Log:       logger,
	}

	publisher, err := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
	if err != nil {
		logger.Fatalf("failed to connect to queue: %v", err)
	}
	defer publisher.Close()

	aggregator := &analytics.Aggregator{
		Records:   recordRepo,
		Campaigns: campaignRepo,
		Workflows: workflowRepo,
	}

	campaignController := &controller.CampaignController{CampaignService: campaignService}
	contactController := &controller.ContactController{Repo: contactRepo}
	workflowController := &controller.WorkflowController{Repo: workflowRepo, Executor: executor}
	analyticsController := &controller.AnalyticsController{Aggregator: aggregator}
	webhookController := &controller.WebhookController{Publisher: publisher}

	r := chi.NewRouter()

	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/contacts", campaignController.EnrollContacts)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)
	r.Get("/campaigns/{id}/summary", analyticsController.CampaignSummary)

	r.Post("/contacts", contactController.CreateContact)
	r.Get("/contacts", contactController.ListContacts)

	r.Post("/workflows", workflowController.CreateTemplate)
	r.Get("/workflows", workflowController.ListTemplates)
	r.Get("/workflows/{id}", workflowController.GetTemplate)
	r.Post("/workflows/{id}/instances", workflowController.EnrollInstance)
	r.Get("/workflows/instances/{instanceID}", workflowController.GetInstance)
	r.Post("/workflows/instances/{instanceID}/approve", workflowController.Approve)
	r.Get("/workflows/summary", analyticsController.WorkflowSummary)

	r.Post("/webhooks/engagement", webhookController.Engagement)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	logger.Infof("server running on %s", addr)
	logger.Fatal(http.ListenAndServe(addr, r))
}
