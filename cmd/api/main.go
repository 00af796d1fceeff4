package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treasury/internal/config"
	"treasury/internal/database"
	"treasury/internal/logger"
	"treasury/internal/router"
	"treasury/internal/scheduler"
	"treasury/internal/validator"

	_ "treasury/internal/docs" // Import swagger docs
)

// @title           Treasury API
// @version         1.0
// @description     Treasury ledger of a boutique network: cash flow approval workflow, account balances, recurring cash flows and balance forecasts.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey JobKeyAuth
// @in header
// @name X-API-Key
// @description Key allowed to trigger batch jobs.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	svc := router.NewServices(dbManager.DB(), appConfig.ForecastMaxDays)
	runner := scheduler.NewRunner(svc.RecurringJob, appConfig.RecurringJobHour)
	// The HTTP trigger goes through the runner so it never overlaps the daily run.
	svc.RecurringJob = runner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.RecurringJobEnabled {
		go runner.Start(ctx)
	} else {
		log.Info("Recurring generation scheduler disabled")
	}
	if appConfig.JobAPIKeyHash == "" {
		log.Warn("JOB_API_KEY_HASH not set, job endpoints are disabled")
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router.New(svc, appConfig.JobAPIKeyHash),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting treasury API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
