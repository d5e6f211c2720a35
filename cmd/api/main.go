package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velotrack/workshop-api/docs"
	"github.com/velotrack/workshop-api/internal/auth"
	"github.com/velotrack/workshop-api/internal/authz"
	"github.com/velotrack/workshop-api/internal/config"
	"github.com/velotrack/workshop-api/internal/database"
	"github.com/velotrack/workshop-api/internal/http/handler"
	"github.com/velotrack/workshop-api/internal/http/middleware"
	"github.com/velotrack/workshop-api/internal/http/router"
	"github.com/velotrack/workshop-api/internal/jobs"
	"github.com/velotrack/workshop-api/internal/logger"
	"github.com/velotrack/workshop-api/internal/repository"
	"github.com/velotrack/workshop-api/internal/service"
	"go.uber.org/zap"
)

// @title VeloTrack Workshop API
// @version 1.0
// @description Quotation and invoice lifecycle API for bicycle workshop management

// @contact.name API Support
// @contact.email support@velotrack.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "workshop-api-staging.velotrack.io"
	case "production":
		docs.SwaggerInfo.Host = "api.velotrack.io"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize repositories
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	recordRepo := repository.NewServiceRecordRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Initialize services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	gate := authz.NewRoleGate(cfg.Authz.RolePermissions)

	quotationService := service.NewQuotationService(
		db, quotationRepo, requestRepo, numberSequenceService, gate,
		cfg.Billing.DefaultValidityDays, log,
	)
	invoiceService := service.NewInvoiceService(
		db, invoiceRepo, recordRepo, quotationRepo, numberSequenceService, gate,
		cfg.Billing.DefaultDueDays, log,
	)

	// Initialize middleware
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL())
	authMiddleware := auth.NewMiddleware(tokenManager, cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	quotationHandler := handler.NewQuotationHandler(quotationService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	adminHandler := handler.NewAdminHandler(quotationService, invoiceService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		quotationHandler,
		invoiceHandler,
		adminHandler,
	)

	// Initialize and start scheduler for the lifecycle sweeps
	var scheduler *jobs.Scheduler
	if cfg.Sweep.Enabled {
		scheduler = jobs.NewScheduler(log)
		sweepJob := jobs.NewSweepJob(quotationService, invoiceService, log, cfg.Sweep.TimeoutDuration())

		if err := sweepJob.Register(scheduler, cfg.Sweep.QuotationCron, cfg.Sweep.InvoiceCron); err != nil {
			log.Error("Failed to register sweep jobs", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with lifecycle sweeps",
				zap.String("quotation_cron", cfg.Sweep.QuotationCron),
				zap.String("invoice_cron", cfg.Sweep.InvoiceCron),
				zap.Duration("timeout", cfg.Sweep.TimeoutDuration()),
			)
		}
	} else {
		log.Info("Lifecycle sweeps disabled", zap.Bool("sweep_enabled", cfg.Sweep.Enabled))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
