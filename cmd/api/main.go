package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/complaint-workflow/internal/api/http"
	"github.com/spec-kit/complaint-workflow/internal/api/http/handlers"
	"github.com/spec-kit/complaint-workflow/internal/apiclient"
	"github.com/spec-kit/complaint-workflow/internal/auth"
	"github.com/spec-kit/complaint-workflow/internal/config"
	"github.com/spec-kit/complaint-workflow/internal/events"
	"github.com/spec-kit/complaint-workflow/internal/notify"
	"github.com/spec-kit/complaint-workflow/internal/observability"
	"github.com/spec-kit/complaint-workflow/internal/persistence"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	"github.com/spec-kit/complaint-workflow/internal/service"
	"github.com/spec-kit/complaint-workflow/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	checks := map[string]handlers.Pinger{}

	var (
		store    repository.Store
		primary  notify.Channel
		fallback notify.Channel
	)
	switch cfg.Store.Backend {
	case config.StoreAPI:
		client := apiclient.New(cfg.API)
		store = client.Store()
		primary = client.PrimaryChannel()
		fallback = client.FallbackChannel()
	case config.StorePostgres:
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
		store = repository.NewPostgresStore(pg.PoolHandle())
		checks["postgres"] = pg
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore().Store()
	}
	if primary == nil {
		primary = notify.ChannelFunc(store.Notifications.Create)
		if cfg.Notification.WebhookURL != "" {
			fallback = notify.NewWebhookChannel(resty.New().SetTimeout(cfg.API.Timeout()), cfg.Notification.WebhookURL)
		}
	}

	var queue notify.RetryQueue
	switch cfg.Notification.RetryQueue {
	case config.QueueRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
		queue = notify.NewRedisQueue(rdb.Client, notify.DefaultRedisKey)
		checks["redis"] = rdb
	default:
		queue = notify.NewMemoryQueue(cfg.Notification.RetryQueueSize)
	}

	delivery := notify.NewDispatcher(notify.DispatcherOptions{
		Primary:     primary,
		Fallback:    fallback,
		Queue:       queue,
		MaxAttempts: cfg.Notification.MaxAttempts,
		BaseDelay:   cfg.Notification.RetryBaseDelay(),
		Logger:      logger,
		Metrics:     metrics,
	})

	bus := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(bus, delivery, store.Users, logger).RegisterHandlers()

	workflowService := service.NewWorkflowService(service.Dependencies{
		Store:      store,
		Dispatcher: bus,
		Logger:     logger,
		Metrics:    metrics,
	})

	retryWorker := worker.NewRetryWorker(delivery.Queue(), delivery, worker.RetryWorkerConfig{}, logger)
	pollers := worker.NewPollerRegistry(ctx, workflowService, worker.PollerConfig{
		BaseInterval: cfg.Polling.BaseInterval(),
		MaxInterval:  cfg.Polling.MaxInterval(),
	}, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Complaints:     handlers.NewComplaintsHandler(workflowService),
		Quotes:         handlers.NewQuotesHandler(workflowService),
		Notifications:  handlers.NewNotificationsHandler(workflowService),
		Session:        handlers.NewSessionHandler(workflowService, pollers),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store_backend", cfg.Store.Backend),
			zap.String("retry_queue", cfg.Notification.RetryQueue))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return retryWorker.Run(gctx)
	})
	g.Go(func() error {
		return pollers.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
