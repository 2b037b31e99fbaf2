package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"activityhub.io/notifications/internal/application"
	"activityhub.io/notifications/internal/auth"
	"activityhub.io/notifications/internal/config"
	"activityhub.io/notifications/internal/domain"
	"activityhub.io/notifications/internal/infrastructure/memory"
	"activityhub.io/notifications/internal/infrastructure/postgres"
	"activityhub.io/notifications/internal/infrastructure/redis"
	kafkaconsumer "activityhub.io/notifications/internal/kafka"
	transporthttp "activityhub.io/notifications/internal/transport/http"
)

// storage bundles whichever driver is configured.
type storage interface {
	domain.Repository
	domain.SettingsRepository
	Ping(ctx context.Context) error
}

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.DefaultContextLogger = &log.Logger

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	configureLogging(cfg.Log, cfg.Server)
	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting notification service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────────
	var store storage
	switch cfg.Database.Driver {
	case "memory":
		store = memory.New()
		log.Warn().Msg("using in-memory storage; data is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.Database.DSN(),
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		store = pgStorage{Repository: postgres.New(pool, cfg.Database.CallTimeout), pool: pool}
		log.Info().Int32("max_conns", cfg.Database.MaxConns).Msg("postgres connected")
	}

	// ── Unread count cache (optional) ────────────────────────────────────────
	opts := []application.Option{
		application.WithPagination(application.Pagination{
			DefaultLimit: cfg.Pagination.DefaultLimit,
			MaxLimit:     cfg.Pagination.MaxLimit,
		}),
	}
	var countCache *redis.CountCache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// The cache is an optimisation; run without it.
			log.Warn().Err(err).Msg("redis unavailable, unread counts will not be cached")
		} else {
			defer client.Close()
			countCache = redis.NewCountCache(client, cfg.Redis.CountTTL)
			opts = append(opts, application.WithCountCache(countCache))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	// ── Application Service ───────────────────────────────────────────────────
	svc := application.NewService(store, store, opts...)

	resolver, err := auth.NewResolver(auth.Config{
		Secret:       cfg.Auth.JWTSecret,
		Algorithm:    cfg.Auth.JWTAlgorithm,
		ServiceToken: cfg.Auth.ServiceToken,
		Issuer:       cfg.Auth.Issuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth configuration")
	}

	// ── HTTP Server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, store)
	if countCache != nil {
		handler.WithHealthCheck("cache", countCache)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := transporthttp.NewRouter(handler, resolver, transporthttp.RouterConfig{
		BasePath:       cfg.Server.BasePath,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    metricsPath,
	})

	// ── Kafka Consumer (optional) ─────────────────────────────────────────────
	if cfg.Kafka.Enabled {
		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroupID,
			cfg.Kafka.Topics,
			svc,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka consumer")
		}
		go consumer.Start(ctx)
		log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")
	}

	// ── Archived purge job ────────────────────────────────────────────────────
	if cfg.TTL.ArchivedRetentionDays > 0 && cfg.TTL.PurgeInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.TTL.PurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					svc.PurgeArchived(ctx, cfg.TTL.ArchivedRetentionDays)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// ── Start HTTP Server ─────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	// ── Graceful Shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("notification service stopped")
}

// pgStorage adds the pool's health probe to the procedure repository.
type pgStorage struct {
	*postgres.Repository
	pool interface{ Ping(context.Context) error }
}

func (s pgStorage) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func configureLogging(lc config.LogConfig, sc config.ServerConfig) {
	if lc.Format == "json" || sc.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
		if !sc.IsProduction() {
			level = zerolog.DebugLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}
