package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/ack"
	httptransport "github.com/spec-kit/mailroom/internal/api/http"
	"github.com/spec-kit/mailroom/internal/api/http/handlers"
	"github.com/spec-kit/mailroom/internal/classifier"
	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/conversation"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/guard"
	"github.com/spec-kit/mailroom/internal/mailer"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/persistence"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/resolver"
	"github.com/spec-kit/mailroom/internal/sequence"
	"github.com/spec-kit/mailroom/internal/service"
	"github.com/spec-kit/mailroom/internal/worker"
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

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()

	var ticketRepo repository.TicketRepository
	var sequenceRepo repository.SequenceRepository
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		sequenceRepo = repository.NewSequenceRepository(pool)
	} else {
		logger.Warn("running with in-memory ticket storage")
		ticketRepo = repository.NewMemoryTicketRepository()
		sequenceRepo = repository.NewMemorySequenceRepository()
	}

	var claimStore guard.Store
	if err := redis.Ping(ctx); err == nil {
		claimStore = guard.NewRedisStore(redis.Client, cfg.Guard.ClaimTTL(), cfg.Guard.CompletedTTL())
	} else {
		logger.Warn("running with in-memory claim store")
		claimStore = guard.NewMemoryStore(cfg.Guard.ClaimTTL(), cfg.Guard.CompletedTTL())
	}

	var cls classifier.Classifier = classifier.Disabled{}
	if cfg.Classifier.Endpoint != "" {
		cls = classifier.NewHTTPClassifier(cfg.Classifier)
	}

	dispatcher := events.NewInMemoryDispatcher()

	routingService := service.NewRoutingService(service.RoutingDependencies{
		Guard:    claimStore,
		Resolver: resolver.NewResolver(cfg.Ticket.Prefix, cls, logger),
		Sequencer: sequence.NewSequencer(cfg.Ticket.Prefix, sequenceRepo, ticketRepo, logger,
			sequence.WithFallbackHook(metrics.SequenceFallback.Inc)),
		Merger:     conversation.NewMerger(conversation.NewHeuristicExtractor()),
		Dispatcher: ack.NewDispatcher(mailer.NewSMTPMailer(cfg.Mailer), logger, cfg.Ack.MaxAttempts, cfg.Ack.BackoffStep()),
		TicketRepo: ticketRepo,
		Events:     dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	eventLog := service.NewEventLogService(dispatcher, logger)
	maintenance, err := worker.StartMaintenanceWorker(eventLog, claimStore, cfg.Guard.SweepIntervalSpec, logger)
	if err != nil {
		logger.Fatal("failed to start maintenance worker", zap.Error(err))
	}
	defer maintenance.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:       handlers.NewWebhookHandler(routingService, logger),
		Tickets:       handlers.NewTicketsHandler(routingService),
		WebhookSecret: cfg.App.WebhookSecret,
		Registry:      registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
