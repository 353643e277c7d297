package main

import (
	"github.com/crmforge/outreach-backend/internal/config"
	"github.com/crmforge/outreach-backend/internal/db"
	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/queue"
	"github.com/crmforge/outreach-backend/internal/repository"
)

const maxRetries = 3

// The worker drains provider engagement callbacks off the queue and appends
// delivery/open/click/reply timestamps onto dispatch records.
func main() {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	conn, err := db.Connect(cfg.DB.DSN())
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close()

	recordRepo := &repository.DispatchRecordRepository{DB: conn}

	logger.Infof("worker consuming %s", cfg.AMQP.Queue)
	err = queue.Consume(cfg.AMQP.URL, cfg.AMQP.Queue, maxRetries, func(ev queue.EngagementEvent) error {
		if !queue.KnownEvent(ev.Event) {
			logger.Warnf("ignoring unknown engagement event %q for %s", ev.Event, ev.ProviderRef)
			return nil
		}
		if err := recordRepo.ApplyEngagement(ev.ProviderRef, ev.Event, ev.OccurredAt); err != nil {
			return err
		}
		logger.Infof("applied %s for %s", ev.Event, ev.ProviderRef)
		return nil
	})
	if err != nil {
		logger.Fatalf("consumer stopped: %v", err)
	}
}
