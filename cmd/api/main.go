package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-sla/internal/api/http"
	"github.com/spec-kit/ticket-sla/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla/internal/cache"
	"github.com/spec-kit/ticket-sla/internal/config"
	"github.com/spec-kit/ticket-sla/internal/events"
	"github.com/spec-kit/ticket-sla/internal/kafka"
	"github.com/spec-kit/ticket-sla/internal/observability"
	"github.com/spec-kit/ticket-sla/internal/persistence"
	"github.com/spec-kit/ticket-sla/internal/repository"
	"github.com/spec-kit/ticket-sla/internal/service"
	"github.com/spec-kit/ticket-sla/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calendar, err := cfg.Calendar.Build()
	if err != nil {
		logger.Fatal("invalid business calendar", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	configRepo := repository.NewSLAConfigRepository(pool)
	configCache := cache.NewSLAConfigCache(redis.Cmdable(), configRepo, cfg.SLA.ConfigCacheTTL(), logger, metrics)

	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Configs:     configCache,
		Calendar:    calendar,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: cfg.SLA.BatchConcurrency,
		MaxBatch:    cfg.SLA.BatchMaxTickets,
	})

	dispatcher := events.NewInMemoryDispatcher()
	var forward events.EventHandler
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SLATopic, logger)
		defer producer.Close() //nolint:errcheck
		forward = producer.Handler()
		logger.Info("forwarding sla events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.SLATopic))
	}
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(dispatcher, logger), forward)

	var sweeper *worker.SLASweeper
	if cfg.Sweeper.Enabled && pool != nil {
		var levels worker.LevelStore
		if redis.Enabled() {
			levels = cache.NewLevelStore(redis.Client, cfg.Sweeper.KeyPrefix, cfg.Sweeper.LevelTTL)
		}
		sweeper = worker.NewSLASweeper(worker.SweeperDependencies{
			TicketRepo: ticketRepo,
			Evaluator:  slaService,
			Levels:     levels,
			Dispatcher: dispatcher,
			Logger:     logger,
			Metrics:    metrics,
			Schedule:   cfg.Sweeper.Schedule,
			PageSize:   cfg.Sweeper.PageSize,
		})
		if err := sweeper.Start(ctx); err != nil {
			logger.Fatal("failed to start sla sweeper", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		SLA:     handlers.NewSLAHandler(slaService, nil),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if sweeper != nil {
		sweeper.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
