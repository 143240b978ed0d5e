// Package main is the entry point for the finboard reporting service.
// It synchronizes accounting and payroll data from the external source,
// aggregates it into per-period KPI records and serves them over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarelia/finboard/internal/clients/ledgerapi"
	"github.com/clarelia/finboard/internal/config"
	"github.com/clarelia/finboard/internal/database"
	"github.com/clarelia/finboard/internal/ledger"
	"github.com/clarelia/finboard/internal/payroll"
	"github.com/clarelia/finboard/internal/reliability"
	"github.com/clarelia/finboard/internal/scheduler"
	"github.com/clarelia/finboard/internal/server"
	"github.com/clarelia/finboard/internal/store"
	"github.com/clarelia/finboard/internal/syncer"
	"github.com/clarelia/finboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting finboard")

	// Reports database
	reportsDB, err := database.New(database.Config{
		Path:    cfg.ReportsDBPath(),
		Profile: database.ProfileReports,
		Name:    "reports",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open reports database")
	}
	defer reportsDB.Close()

	if err := reportsDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate reports database")
	}

	// Repositories
	periodRepo := store.NewPeriodRepository(reportsDB.Conn(), log)
	payrollRepo := store.NewPayrollRepository(reportsDB.Conn(), log)
	runRepo := store.NewRunRepository(reportsDB.Conn(), log)

	// Classification pipeline
	rules := ledger.DefaultRules()
	if cfg.RulesFile != "" {
		rules, err = ledger.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.RulesFile).Msg("Failed to load classification rules")
		}
	}
	aggregator := ledger.NewAggregator(ledger.NewClassifier(rules))
	treasury := ledger.NewTreasuryCalculator(periodRepo, cfg.TreasurySemantics, log)

	rosters := payroll.Rosters{}
	if cfg.RostersFile != "" {
		rosters, err = payroll.LoadRostersFile(cfg.RostersFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.RostersFile).Msg("Failed to load rosters")
		}
	}
	accountSets := payroll.DefaultAccountSets()
	if cfg.AccountSetsFile != "" {
		accountSets, err = payroll.LoadAccountSetsFile(cfg.AccountSetsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.AccountSetsFile).Msg("Failed to load payroll account sets")
		}
	}
	resolver := payroll.NewRoleResolver(rosters, cfg.PayrollTagCutoverYear, cfg.FieldedTeamLabel)
	payrollClassifier := payroll.NewClassifier(accountSets, resolver)

	// Accounting source client
	sourceClient := ledgerapi.NewClient(
		cfg.SourceBaseURL,
		cfg.SourceAPIToken,
		log,
		ledgerapi.WithRateLimitDelay(time.Duration(cfg.SourceRateLimitMs)*time.Millisecond),
	)
	defer sourceClient.Close()

	orchestrator := syncer.NewOrchestrator(
		sourceClient,
		aggregator,
		payrollClassifier,
		periodRepo,
		payrollRepo,
		runRepo,
		treasury,
		time.Duration(cfg.SyncPeriodDelayMs)*time.Millisecond,
		log,
	)

	// Background jobs
	sched := scheduler.New(log)
	syncJob := scheduler.NewTrailingSyncJob(orchestrator, cfg.SyncTrailingPeriods, log)
	if err := sched.AddJob(cfg.SyncCronSpec, syncJob); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.SyncCronSpec).Msg("Failed to register sync job")
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Bucket:    cfg.Backup.Bucket,
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}
		backupService := reliability.NewBackupService(reportsDB, s3Client, cfg.DataDir, cfg.Backup.Prefix, log)
		if err := sched.AddJob(cfg.Backup.CronSpec, scheduler.NewBackupJob(backupService)); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Backup.CronSpec).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backups disabled (no bucket configured)")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:          log,
		ReportsDB:    reportsDB,
		PeriodRepo:   periodRepo,
		PayrollRepo:  payrollRepo,
		RunRepo:      runRepo,
		Orchestrator: orchestrator,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("finboard stopped")
}
