package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/config"
	"github.com/spec-kit/complaint-workflow/internal/observability"
	"github.com/spec-kit/complaint-workflow/internal/persistence"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	"github.com/spec-kit/complaint-workflow/internal/service"
)

// Backfills the message table from the notes blob of every complaint.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Store.Backend != config.StorePostgres {
		logger.Fatal("notes import needs the postgres store backend", zap.String("store_backend", cfg.Store.Backend))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	report, err := service.BackfillMessages(ctx, repository.NewPostgresStore(pg.PoolHandle()), logger)
	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("imported", report.Imported),
		zap.Int("messages", report.Messages),
		zap.Int("skipped", report.Skipped),
	}
	if err != nil {
		logger.Fatal("notes import failed", append(fields, zap.Error(err))...)
	}
	logger.Info("notes import finished", fields...)
}
