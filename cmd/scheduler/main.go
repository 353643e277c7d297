package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/crmforge/outreach-backend/internal/clock"
	"github.com/crmforge/outreach-backend/internal/config"
	"github.com/crmforge/outreach-backend/internal/db"
	"github.com/crmforge/outreach-backend/internal/dispatch"
	"github.com/crmforge/outreach-backend/internal/log"
	"github.com/crmforge/outreach-backend/internal/provider"
	"github.com/crmforge/outreach-backend/internal/repository"
	"github.com/crmforge/outreach-backend/internal/scheduler"
	"github.com/crmforge/outreach-backend/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Outbound campaign and workflow scheduler",
}

func main() {
	var tenant string
	var noLock bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scheduling pass and exit",
		Run: func(cmd *cobra.Command, args []string) {
			engine := mustBuildEngine(noLock)
			defer engine.close()
			engine.pass(cmd.Context(), tenant)
		},
	}

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Run scheduling passes on the configured interval until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			engine := mustBuildEngine(noLock)
			defer engine.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.GetLogger().Infof("polling every %s", engine.cfg.Scheduler.PollInterval)
			ticker := time.NewTicker(engine.cfg.Scheduler.PollInterval)
			defer ticker.Stop()

			engine.pass(ctx, tenant)
			for {
				select {
				case <-ctx.Done():
					log.GetLogger().Info("scheduler stopping")
					return
				case <-ticker.C:
					engine.pass(ctx, tenant)
				}
			}
		},
	}

	for _, cmd := range []*cobra.Command{runCmd, pollCmd} {
		cmd.Flags().StringVar(&tenant, "tenant", "", "restrict the pass to one tenant")
		cmd.Flags().BoolVar(&noLock, "no-lock", false, "skip the Redis campaign lock (single-process deployments only)")
		rootCmd.AddCommand(cmd)
	}

	if err := rootCmd.Execute(); err != nil {
		log.GetLogger().Error(err)
		os.Exit(1)
	}
}

type engine struct {
	cfg       config.Config
	sched     *scheduler.Scheduler
	executor  *workflow.Executor
	closeFunc func()
}

func (e *engine) close() { e.closeFunc() }

// pass runs one campaign batch plus one workflow batch. Errors here are
// infrastructure failures; per-contact and per-instance failures are inside
// the summaries.
func (e *engine) pass(ctx context.Context, tenant string) {
	logger := log.GetLogger()

	summary, err := e.sched.ProcessRunningCampaigns(ctx, tenant)
	if err != nil {
		logger.Errorf("campaign pass failed: %v", err)
	} else {
		logger.Infof("campaign pass: %d campaigns, %d dispatched, %d failed, %d skipped",
			summary.Campaigns, summary.Dispatched, summary.Failed, summary.Skipped)
	}

	wfSummary, err := e.executor.ProcessDueInstances(ctx, tenant)
	if err != nil {
		logger.Errorf("workflow pass failed: %v", err)
	} else {
		logger.Infof("workflow pass: %d instances, %d advanced, %d completed, %d paused, %d failed",
			wfSummary.Instances, wfSummary.Advanced, wfSummary.Completed, wfSummary.Paused, wfSummary.Failed)
	}
}

func mustBuildEngine(noLock bool) *engine {
	logger := log.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	conn, err := db.Connect(cfg.DB.DSN())
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	recordRepo := &repository.DispatchRecordRepository{DB: conn}
	workflowRepo := &repository.WorkflowRepository{DB: db.Wrap(conn)}

	sandbox := provider.Sandbox{}
	dispatcher := dispatch.NewDispatcher(recordRepo, campaignRepo, sandbox, sandbox, sandbox, cfg.Scheduler.DispatchTimeout)

	var locker scheduler.Locker = scheduler.NoopLocker{}
	closeFunc := func() { conn.Close() }
	if !noLock {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker = &scheduler.RedisLocker{Client: rdb}
		closeFunc = func() {
			rdb.Close()
			conn.Close()
		}
	}

	sched := &scheduler.Scheduler{
		Campaigns:  campaignRepo,
		Records:    recordRepo,
		Contacts:   contactRepo,
		Dispatcher: dispatcher,
		Locker:     locker,
		Clock:      clock.Real{},
		LockTTL:    cfg.Scheduler.LockTTL,
		Log:        logger,
	}

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

	return &engine{cfg: cfg, sched: sched, executor: executor, closeFunc: closeFunc}
}
