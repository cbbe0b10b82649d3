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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/mediconnect-api/internal/config"
	"github.com/jwalitptl/mediconnect-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/mediconnect-api/internal/handler/appointment"
	doctorHandler "github.com/jwalitptl/mediconnect-api/internal/handler/doctor"
	notificationHandler "github.com/jwalitptl/mediconnect-api/internal/handler/notification"
	userHandler "github.com/jwalitptl/mediconnect-api/internal/handler/user"
	"github.com/jwalitptl/mediconnect-api/internal/middleware"
	"github.com/jwalitptl/mediconnect-api/internal/repository"
	"github.com/jwalitptl/mediconnect-api/internal/repository/cache"
	"github.com/jwalitptl/mediconnect-api/internal/repository/memory"
	"github.com/jwalitptl/mediconnect-api/internal/repository/postgres"
	"github.com/jwalitptl/mediconnect-api/internal/router"
	appointmentService "github.com/jwalitptl/mediconnect-api/internal/service/appointment"
	"github.com/jwalitptl/mediconnect-api/internal/service/directory"
	notificationService "github.com/jwalitptl/mediconnect-api/internal/service/notification"
	"github.com/jwalitptl/mediconnect-api/pkg/auth"
	"github.com/jwalitptl/mediconnect-api/pkg/logger"
	"github.com/jwalitptl/mediconnect-api/pkg/metrics"
	"github.com/jwalitptl/mediconnect-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	log.Logger = appLogger.ZL
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, closeStore, err := openStore(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(err, "failed to initialize store", "driver", cfg.Database.Driver)
	}
	defer closeStore()

	if cfg.Database.Seed {
		if err := repository.Seed(ctx, store, security.NewBcryptHasher(0)); err != nil {
			appLogger.Fatal(err, "failed to seed database")
		}
	}

	cached := cache.NewStore(store, cfg.Cache.DoctorTTL, cfg.Cache.CleanupInterval)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New("mediconnect", registry)

	// Initialize services
	dispatcher := notificationService.NewDispatcher(cached, appLogger, m)
	appointmentSvc := appointmentService.NewService(cached, dispatcher, appLogger, m)
	directorySvc := directory.NewService(cached, appLogger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		handler.NewHandler(cached, registry),
		appointmentHandler.NewHandler(appointmentSvc),
		notificationHandler.NewHandler(dispatcher),
		doctorHandler.NewHandler(cached.Doctors(), directorySvc),
		userHandler.NewHandler(directorySvc),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodySize:      middleware.DefaultSizeLimitConfig().MaxBodySize,
			CORSConfig:       middleware.NewCORSConfig(cfg.CORS.AllowedOrigins, cfg.CORS.MaxAge),
			Metrics:          m,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
		return
	}

	appLogger.Info("server exited properly")
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, cfg config.DatabaseConfig, appLogger *logger.Logger) (repository.Store, func(), error) {
	if cfg.Driver == "memory" {
		appLogger.Warn(nil, "using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}
