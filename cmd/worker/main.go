package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/mediconnect-api/internal/config"
	"github.com/jwalitptl/mediconnect-api/internal/model"
	"github.com/jwalitptl/mediconnect-api/internal/repository/postgres"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/messaging/redis"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
	"github.com/jwalitptl/mediconnect-api/pkg/worker"
)

const healthAddr = ":8081"

func setupHealthCheck(logger *logger.Logger, store *postgres.Store, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	}).WithFields(map[string]interface{}{"component": "outbox_worker"})
	log.Logger = appLogger.ZL

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	store := postgres.NewStore(db)

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.ZL)
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()

	// Initialize and start outbox processor
	processor, err := worker.NewOutboxProcessor(
		store,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			Retention:     cfg.Outbox.Retention,
			Channels: map[string]string{
				model.EventNotificationCreated: cfg.Redis.Channel,
			},
		},
		appLogger,
		metrics.New("mediconnect_outbox", registry),
	)
	if err != nil {
		appLogger.Fatal(err, "Invalid outbox configuration")
	}

	// Setup health check endpoints
	healthSrv := setupHealthCheck(appLogger, store, registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor.Start(ctx)

	appLogger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "Health check server shutdown failed")
	}
}
