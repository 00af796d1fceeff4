// Command recurring runs one recurring generation pass and exits. It is
// meant for cron-style deployments where the API's in-process scheduler is
// disabled. Exit code 2 means some templates failed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"treasury/internal/database"
	"treasury/internal/logger"
	"treasury/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()
	log := logger.Named("recurring")

	dbConfig, err := database.NewConfig()
	if err != nil {
		log.Errorw("configuration error", "error", err)
		os.Exit(1)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		log.Errorw("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbManager.Close()

	db := dbManager.DB()
	ledger := services.NewLedgerService(db)
	job := services.NewRecurringJobService(db, ledger, services.NewBudgetTracker())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := job.Run(ctx, start)
	if err != nil {
		log.Errorw("recurring generation failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}

	log.Infow("recurring generation completed",
		"generated", result.Generated,
		"auto_approved", result.AutoApproved,
		"pending", result.Pending,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration", time.Since(start).String(),
	)

	for _, templateErr := range result.TemplateErrors {
		log.Warnw("template failed",
			"template_id", templateErr.TemplateID,
			"error", templateErr.Error,
		)
	}

	if result.Errors > 0 {
		logger.Sync()
		os.Exit(2)
	}
}
