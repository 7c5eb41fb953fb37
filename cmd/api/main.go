package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lifedash-api/internal/cache"
	"lifedash-api/internal/config"
	"lifedash-api/internal/handler"
	"lifedash-api/internal/middleware"
	"lifedash-api/internal/repository"
	"lifedash-api/internal/router"
	"lifedash-api/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func openRepository(cfg *config.Config, logger *zap.Logger) (*repository.SQLTrackerRepository, error) {
	switch cfg.Database.Driver() {
	case "postgres":
		return repository.NewPostgresTrackerRepository(cfg.Database.PostgresDSN(), logger)
	case "mysql":
		return repository.NewMySQLTrackerRepository(cfg.Database.MySQLDSN(), logger)
	default:
		return repository.NewSQLiteTrackerRepository(cfg.Database.Path, logger)
	}
}

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logger := newLogger(cfg.App.Debug)
	defer logger.Sync()

	logger.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Environment),
	)

	repo, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracker store", zap.String("driver", cfg.Database.Driver()), zap.Error(err))
	}
	defer repo.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Interfaces below stay nil when caching is disabled.
	var (
		tagged    *cache.TaggedCache
		store     cache.Store
		janitor   *service.CacheJanitor
		bus       *cache.RedisInvalidationBus
		publisher service.Publisher
	)

	if cfg.Cache.Enabled {
		tagged, err = cache.New(cache.Config{
			MaxSize:    cfg.Cache.MaxSize,
			DefaultTTL: cfg.Cache.DefaultTTL,
		}, cache.WithLogger(logger))
		if err != nil {
			logger.Fatal("failed to initialize cache", zap.Error(err))
		}
		store = tagged
		registry.MustRegister(cache.NewCollector("lifedash", tagged))

		janitor = service.NewCacheJanitor(tagged, service.JanitorConfig{Interval: cfg.Cache.CleanupInterval}, logger)
		janitor.Start()
		defer janitor.Stop()

		if cfg.Cache.RedisEnabled {
			bus, err = cache.NewRedisInvalidationBus(cache.RedisBusConfig{
				Addr:     cfg.Cache.RedisAddress(),
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				Channel:  cfg.Cache.RedisChannel,
			}, tagged, logger)
			if err != nil {
				logger.Warn("redis invalidation bus unavailable, running single-instance", zap.Error(err))
			} else {
				publisher = bus
				defer bus.Close()
			}
		}
	}

	tracker := service.NewTrackerService(repo, store, publisher, service.TrackerConfig{ReadTTL: cfg.Cache.ReadTTL}, logger)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, tagged, handler.ReadinessCheck{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := repo.GetStats(ctx)
			return err
		},
	})
	trackerHandler := handler.NewTrackerHandler(tracker, logger)
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Cache:     tagged,
		Tracker:   tracker,
		Janitor:   janitor,
		Publisher: publisher,
		DBType:    cfg.Database.Driver(),
		Logger:    logger,
	})

	if len(cfg.App.APIKeys) == 0 {
		logger.Warn("API_KEYS is empty, authentication is disabled")
	}
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys:     cfg.App.APIKeys,
		PublicPaths: router.PublicPaths,
	})

	r := router.New(router.Config{
		Handler:        healthHandler,
		TrackerHandler: trackerHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	if tagged != nil {
		s := tagged.Stats()
		logger.Info("final cache stats",
			zap.Int64("hits", s.Hits),
			zap.Int64("misses", s.Misses),
			zap.Float64("hit_rate", s.HitRate),
		)
	}
	logger.Info("server stopped")
}
