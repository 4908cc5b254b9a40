package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/policy"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	eventMetrics := metrics.NewEventMetrics(registry)

	pol := policy.New(nil)
	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())

	opts, err := orders.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	quoter, err := orders.RateQuoterFromConfig(cfg)
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Quoter:   quoter,
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Policy:   pol,
		Observer: metrics.NewOrderMetrics(registry),
		Logger:   logg,
		Options:  opts,
	})
	if err != nil {
		return err
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		return err
	}
	analyticsSvc, err := analytics.NewService(analytics.ServiceParams{
		Orders:   ordersRepo,
		Policy:   pol,
		Location: loc,
		TopN:     cfg.Analytics.TopN,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	broker := events.NewBroker(0, logg)
	broker.OnDrop(eventMetrics.IncDropped)
	defer broker.Close()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	workers := make(chan error, 2)
	background := 0

	if cfg.Events.Sink == config.EventSinkRedis {
		dedupe, err := idempotency.NewManager(redisClient, cfg.Redis.IdempotencyTTL)
		if err != nil {
			return err
		}
		forwarder, err := events.NewForwarder(events.ForwarderParams{
			Subscriber: redisClient,
			Channel:    cfg.Events.RedisChannel,
			Broker:     broker,
			Dedupe:     dedupe,
			Consumer:   "api:" + instance.GetID(),
			Logger:     logg,
		})
		if err != nil {
			return err
		}
		background++
		go func() { workers <- forwarder.Run(ctx) }()
	} else {
		logg.Info(logg.WithField(ctx, "sink", cfg.Events.Sink), "events.feed.disabled")
	}

	if cfg.FeatureFlags.EmbeddedRelay {
		sink, closeSink, sinkErr := events.OpenSink(ctx, cfg.Events, cfg.GCP, redisClient, logg)
		if sinkErr != nil {
			return sinkErr
		}
		defer func() { err = multierr.Append(err, closeSink()) }()
		relay, relayErr := events.NewRelay(events.RelayParams{
			Config:     cfg.Outbox,
			Logger:     logg,
			DB:         dbClient,
			Repository: outboxRepo,
			Sink:       sink,
			Observer:   eventMetrics,
		})
		if relayErr != nil {
			return relayErr
		}
		background++
		go func() { workers <- relay.Run(ctx) }()
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Readiness:   map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			Orders:      ordersSvc,
			Analytics:   analyticsSvc,
			Events:      broker,
			Authorizer:  pol,
			Idempotency: redisClient,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Gatherer:    registry,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	case runErr = <-workers:
		background--
	}
	stop()

	// Close the broker first so open event streams return and Shutdown
	// does not wait on them.
	broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	runErr = multierr.Append(runErr, server.Shutdown(shutdownCtx))

	for ; background > 0; background-- {
		if werr := <-workers; werr != nil && !errors.Is(werr, context.Canceled) {
			runErr = multierr.Append(runErr, werr)
		}
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	logg.Info(ctx, "api shutting down gracefully")
	return runErr
}
