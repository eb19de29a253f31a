package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/dispatcher"
	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/policy"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/application/service"
	"github.com/merchantflow/onboarding/internal/config"
	"github.com/merchantflow/onboarding/internal/contract"
	"github.com/merchantflow/onboarding/internal/infrastructure/external/esign"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/repository"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/sqlite"
	"github.com/merchantflow/onboarding/internal/infrastructure/storage"
	httpserver "github.com/merchantflow/onboarding/internal/interfaces/http"
	"github.com/merchantflow/onboarding/internal/notification"
	"github.com/merchantflow/onboarding/internal/report"
	"github.com/merchantflow/onboarding/internal/webhook"
	"github.com/merchantflow/onboarding/internal/worker"
	"github.com/merchantflow/onboarding/pkg/database"
	"github.com/merchantflow/onboarding/pkg/utils"
)

func main() {
	// Local development overrides; missing .env is fine
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting merchant onboarding service",
		zap.Int("port", cfg.Server.Port))

	// Database and migrations
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	for _, dir := range []string{cfg.Documents.StorageDir, cfg.Reports.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	db := sqlite.NewDB(sqlDB, logger)

	// Repositories
	appRepo := repository.NewApplicationRepository(sqlDB, logger)
	statusRepo := repository.NewStatusRepository(sqlDB, logger)
	activityRepo := repository.NewActivityRepository(sqlDB, logger)
	documentRepo := repository.NewDocumentRepository(sqlDB, logger)
	additionalDocRepo := repository.NewAdditionalDocumentRepository(sqlDB, logger)
	notificationRepo := repository.NewNotificationRepository(sqlDB, logger)

	kvLogger := utils.NewKVLogger(logger)

	// Event dispatcher
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	defer eventDispatcher.Close()

	// Document policy and status machine
	docPolicy := policy.NewDocumentRequirementPolicy(
		cfg.Documents.RequiredCategories,
		additionalDocRepo,
		documentRepo,
		logger,
	)

	stateMachine := machine.New(
		statusRepo,
		activityRepo,
		db,
		docPolicy,
		logger,
		machine.WithDispatcher(eventDispatcher),
	)

	// External collaborators
	esignClient := esign.NewClient(esign.Config{
		BaseURL:   cfg.ESign.BaseURL,
		APIKey:    cfg.ESign.APIKey,
		AccountID: cfg.ESign.AccountID,
		Timeout:   cfg.ESign.Timeout,
	}, logger)

	fileStorage := storage.NewLocalFileStorage(cfg.Documents.StorageDir, logger)
	inspector := contract.NewInspector(cfg.Contract.RequiredTerms, cfg.Contract.MaxPages, logger)

	var emailSender port.EmailSender
	if cfg.SMTP.Host != "" {
		emailSender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger)
	} else {
		logger.Warn("SMTP not configured, emails will only be logged")
		emailSender = notification.NewLogSender(logger)
	}

	// Services
	applicationService := service.NewApplicationService(
		appRepo, statusRepo, activityRepo, additionalDocRepo, documentRepo,
		fileStorage, db, stateMachine, logger,
	)
	documentService := service.NewDocumentService(
		documentRepo, additionalDocRepo, activityRepo, fileStorage,
		db, docPolicy, stateMachine, logger,
	)
	contractService := service.NewContractService(
		appRepo, statusRepo, activityRepo, esignClient, inspector,
		stateMachine, eventDispatcher, logger,
	)

	// Notifications ride on domain events
	notifier := notification.NewNotifier(appRepo, notificationRepo, logger)
	notifier.RegisterHandlers(eventDispatcher)

	// Background workers
	workerManager := worker.NewManager(logger)

	pollerCfg := worker.DefaultEnvelopePollerConfig()
	pollerCfg.PollInterval = cfg.Workers.EnvelopePollInterval
	workerManager.Register(worker.NewEnvelopePoller(pollerCfg, statusRepo, esignClient, contractService, logger))

	emailCfg := worker.DefaultEmailWorkerConfig()
	emailCfg.PollInterval = cfg.Workers.EmailPollInterval
	emailCfg.BatchSize = cfg.Workers.EmailBatchSize
	workerManager.Register(worker.NewEmailWorker(emailCfg, notificationRepo, emailSender, stateMachine, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP layer
	exporter := report.NewExporter(appRepo, statusRepo, logger)
	verifier := webhook.NewVerifier(cfg.ESign.WebhookSecret, logger)
	webhookHandler := webhook.NewHandler(verifier, contractService, logger)

	handlers := httpserver.NewHandlers(
		applicationService, documentService, contractService,
		stateMachine, activityRepo, exporter, cfg.Reports.OutputDir,
		kvLogger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, webhookHandler, kvLogger)

	// Run until interrupted
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	cancel()
	if err := workerManager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server exited")
}
