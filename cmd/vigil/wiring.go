package main

import (
	"context"
	"fmt"
	"log/slog"

	"vigil-go/internal/api"
	"vigil-go/internal/config"
	"vigil-go/internal/dispatch"
	"vigil-go/internal/engine"
	"vigil-go/internal/ingest"
	"vigil-go/internal/lifecycle"
	"vigil-go/internal/notifier"
	"vigil-go/internal/notifier/email"
	"vigil-go/internal/notifier/email/provider"
	"vigil-go/internal/notifier/webhook"
	"vigil-go/internal/processor"
	"vigil-go/internal/queue"
	kafkaqueue "vigil-go/internal/queue/kafka"
	memoryqueue "vigil-go/internal/queue/memory"
	"vigil-go/internal/store"
	memorystor "vigil-go/internal/store/memory"
	postgresstor "vigil-go/internal/store/postgres"
	redisstor "vigil-go/internal/store/redis"
	"vigil-go/internal/trigger"
)

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server    *api.Server
	processor *processor.Service
	pool      *dispatch.Pool
	triggers  *trigger.Registry
	notifiers *notifier.Registry
}

// backends are the storage and transport implementations for one mode.
type backends struct {
	alerts     store.AlertRepository
	tracker    store.DedupTracker
	highlights store.HighlightStore
	producer   queue.Producer
	consumer   queue.Consumer
	checks     map[string]api.HealthCheck
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var cleanupFuncs []func()
	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	var (
		b   *backends
		err error
	)
	if cfg.Storage.UseMemory() {
		b = initMemoryBackends(logger, &cleanupFuncs)
	} else {
		b, err = initStorageBackends(ctx, cfg, logger, &cleanupFuncs)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	triggers, notifiers, err := buildRegistries(ctx, cfg, b.highlights, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	dispatcher := dispatch.New(notifiers, b.tracker, dispatch.Options{
		Timeout:    cfg.Dispatch.NotifierTimeout,
		Unresolved: cfg.Dispatch.UnresolvedNotifier,
	}, logger)
	pool := dispatch.NewPool(dispatcher, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, logger)

	processorService := processor.NewService(
		b.consumer,
		b.alerts,
		engine.New(triggers, logger),
		pool,
		logger,
	)
	processorService.SetListenerTimeout(cfg.Dispatch.ListenerTimeout)

	ingestService := ingest.NewService(b.producer, logger)
	lifecycleService := lifecycle.NewService(b.alerts, triggers, notifiers, logger)

	server := api.NewServer(api.ServerDeps{
		Config:          &cfg.Server,
		Logger:          logger,
		AlertHandler:    api.NewAlertHandler(lifecycleService, logger),
		RegistryHandler: api.NewRegistryHandler(triggers, notifiers),
		RecordHandler:   api.NewRecordHandler(ingestService, processorService, b.tracker, b.highlights, logger),
		HealthChecks:    b.checks,
	})

	return &dependencies{
		server:    server,
		processor: processorService,
		pool:      pool,
		triggers:  triggers,
		notifiers: notifiers,
	}, cleanup, nil
}

func initMemoryBackends(logger *slog.Logger, cleanupFuncs *[]func()) *backends {
	logger.Info("initializing in-memory storage")

	tracker := memorystor.NewDedupTracker()
	highlights := memorystor.NewHighlightStore()
	memQueue := memoryqueue.NewQueue(10000, logger)
	*cleanupFuncs = append(*cleanupFuncs,
		func() { _ = tracker.Close() },
		func() { _ = highlights.Close() },
		func() { _ = memQueue.Close() },
	)

	return &backends{
		alerts:     memorystor.NewAlertRepository(),
		tracker:    tracker,
		highlights: highlights,
		producer:   memQueue,
		consumer:   memQueue,
	}
}

func initStorageBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger, cleanupFuncs *[]func()) (*backends, error) {
	logger.Info("initializing production storage (Kafka, Redis, PostgreSQL)",
		"dedupBackend", cfg.Storage.DedupBackend,
	)

	db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
	if err != nil {
		return nil, err
	}
	*cleanupFuncs = append(*cleanupFuncs, db.Close)

	if err := db.RunMigrations(ctx); err != nil {
		return nil, err
	}
	logger.Info("database migrations completed")

	redisClient, err := redisstor.NewClient(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	*cleanupFuncs = append(*cleanupFuncs, func() { _ = redisClient.Close() })

	var tracker store.DedupTracker
	switch cfg.Storage.DedupBackend {
	case config.DedupBackendPostgres:
		tracker = postgresstor.NewDedupTracker(db)
	default:
		tracker = redisstor.NewDedupTracker(redisClient)
	}

	kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
	*cleanupFuncs = append(*cleanupFuncs, func() { _ = kafkaProducer.Close() })

	// The consumer is closed by the processor on shutdown.
	kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)

	return &backends{
		alerts:     postgresstor.NewAlertRepository(db),
		tracker:    tracker,
		highlights: redisstor.NewHighlightStore(redisClient),
		producer:   kafkaProducer,
		consumer:   kafkaConsumer,
		checks: map[string]api.HealthCheck{
			"postgres": func(ctx context.Context) error { return db.Pool().Ping(ctx) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	}, nil
}

// buildRegistries registers the built-in triggers and notifiers. Rejected
// registrations are logged by the registries and never stop startup.
func buildRegistries(ctx context.Context, cfg *config.Config, highlights store.HighlightStore, logger *slog.Logger) (*trigger.Registry, *notifier.Registry, error) {
	triggers := trigger.NewRegistry(logger)
	triggers.RegisterAll(trigger.Builtins()...)

	providers, err := provider.FromConfig(ctx, &cfg.Notifiers.Email, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure email providers: %w", err)
	}

	notifiers := notifier.NewRegistry(logger)
	errs := notifiers.RegisterAll(
		notifier.NewNoneNotifier(logger),
		notifier.NewHighlightNotifier(highlights),
		email.New(providers, cfg.Notifiers.Email.From),
		webhook.NewWebhook(&cfg.Notifiers.Webhook),
		webhook.NewIFTTT(&cfg.Notifiers.IFTTT),
		webhook.NewSlack(&cfg.Notifiers.Slack),
	)
	if len(errs) > 0 {
		logger.Warn("some notifiers are unavailable",
			"rejected", len(errs),
			"emailProviders", providers.Names(),
		)
	}

	return triggers, notifiers, nil
}
