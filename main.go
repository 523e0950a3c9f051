package main

import (
	"log"

	api "statuspulse-backend/cmd/api"
	"statuspulse-backend/internal/lock"
	projectdomain "statuspulse-backend/internal/project/domain"
	projectRepo "statuspulse-backend/internal/project/repository"
	reportDelivery "statuspulse-backend/internal/report/delivery"
	reportdomain "statuspulse-backend/internal/report/domain"
	reportRepo "statuspulse-backend/internal/report/repository"
	reportUsecase "statuspulse-backend/internal/report/usecase"
	"statuspulse-backend/internal/report/scheduler"
	"statuspulse-backend/pkg/ai"
	"statuspulse-backend/pkg/config"
	"statuspulse-backend/pkg/database"
	"statuspulse-backend/pkg/slack"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&projectdomain.Project{},
		&projectdomain.ComponentOwner{},
		&projectdomain.Task{},
		&projectdomain.TaskActivity{},
		&projectdomain.User{},
		&reportdomain.DeliveryRecord{},
		&lock.Lease{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	projects := projectRepo.NewGormProjectRepository(db)
	deliveries := reportRepo.NewGormDeliveryRecordRepository(db)
	leaseLock := lock.NewLeaseLock(db)

	// Initialize AI provider; a nil provider disables the LLM path and the
	// composer falls back to the deterministic template
	provider, err := ai.NewGenerator(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Printf("[WARN] Failed to initialize AI provider (template fallback only): %v", err)
		provider = nil
	} else if provider == nil {
		log.Printf("[WARN] No AI provider configured, template fallback only")
	}

	builder := reportUsecase.NewSnapshotBuilder(projects, projectdomain.MentionPolicy(cfg.DefaultMentionPolicy))
	composer := reportUsecase.NewComposer(provider, cfg.LLMDisabled)
	slackClient := slack.NewClient()

	reports := reportUsecase.NewReportUsecase(
		projects,
		deliveries,
		leaseLock,
		builder,
		composer,
		slackClient,
		cfg.SlackBotToken,
		cfg.DedupeWindow,
		cfg.LockTTL,
	)

	// Start the report scheduler
	if cfg.SchedulerEnabled {
		reportScheduler := scheduler.NewReportScheduler(projects, reports, cfg.SchedulerInterval, cfg.SchedulerLockTimeout)
		reportScheduler.Start()
	} else {
		log.Println("[WARN] Scheduler disabled, reports only generated via API")
	}

	// Initialize HTTP handler
	reportHandler := reportDelivery.NewReportHandler(reports)
	handler := api.NewHandler(reportHandler, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
