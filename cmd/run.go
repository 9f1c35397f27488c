package cmd

import (
	"context"
	"fmt"
	"time"

	"auctionhouse/api"
	"auctionhouse/bidengine"
	"auctionhouse/config"
	"auctionhouse/database"
	"auctionhouse/infrastructure"
	"auctionhouse/infrastructure/idempotency"
	"auctionhouse/infrastructure/observability"
	"auctionhouse/infrastructure/ratelimit"
	"auctionhouse/infrastructure/redismutex"
	"auctionhouse/ledger"
	"auctionhouse/notify"
	"auctionhouse/repository"
	"auctionhouse/roundprocessor"
	"auctionhouse/scheduler"

	log "github.com/sirupsen/logrus"
)

// Run wires every subsystem together and serves the HTTP API until ctx is
// canceled.
func Run(ctx context.Context) error {
	cfg := config.Get()

	log.Info("connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	log.Info("connecting to redis...")
	redisClient, err := infrastructure.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	log.Info("connecting to nats...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	defer natsClient.Close()

	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper)
	if err := eventPublisher.EnsureDomainEventStream(); err != nil {
		return fmt.Errorf("failed to ensure domain event stream: %w", err)
	}

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer observability.ShutdownGlobalMetrics(context.Background())

	uowFactory := repository.NewUnitOfWorkFactory(db, eventPublisher)

	bidEngine := bidengine.New(redisClient)
	locker := redismutex.New(redisClient)
	notifier := notify.New(redisClient, uowFactory, bidEngine)
	idem := idempotency.New(redisClient)
	limiter := ratelimit.New(redisClient)

	sched := scheduler.New(uowFactory)

	processor := roundprocessor.New(uowFactory, bidEngine, sched, locker, notifier, redisClient, roundprocessor.Config{
		TriggerWindow: cfg.AntiSnipeTriggerWindow,
		Extension:     cfg.AntiSnipeExtension,
		MaxExtensions: cfg.AntiSnipeMaxExtensions,
	})

	worker := scheduler.NewWorker(uowFactory, processor)
	stopWorker := worker.Start(ctx)
	defer stopWorker()

	// The ledger writes bid locks on the hot bid path outside of any
	// single request's unit of work, so it is bound directly to the pool
	// rather than to a transaction scoped by the unit of work factory.
	txRepo := repository.NewTransactionRepository(db.Pool)
	led := ledger.New(txRepo)

	server := api.NewServer(api.Deps{
		UowFactory: uowFactory,
		BidEngine:  bidEngine,
		Ledger:     led,
		Scheduler:  sched,
		Processor:  processor,
		Locker:     locker,
		Notifier:   notifier,
		Idem:       idem,
		Limiter:    limiter,
		Config:     cfg,
	})

	app := server.BuildApp()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting HTTP API")
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("error during HTTP shutdown")
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}
}
