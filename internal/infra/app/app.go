package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-lockout/internal/core/port"
	"github.com/arklim/social-platform-lockout/internal/infra/config"
	"github.com/arklim/social-platform-lockout/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-lockout/internal/infra/kafka"
	"github.com/arklim/social-platform-lockout/internal/infra/logger"
	redisinfra "github.com/arklim/social-platform-lockout/internal/infra/redis"
	"github.com/arklim/social-platform-lockout/internal/infra/telemetry"
	postgresrepo "github.com/arklim/social-platform-lockout/internal/repository/postgres"
	redisrepo "github.com/arklim/social-platform-lockout/internal/repository/redis"
	"github.com/arklim/social-platform-lockout/internal/transport/http/middleware"
	"github.com/arklim/social-platform-lockout/internal/transport/http/routes"
	"github.com/arklim/social-platform-lockout/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	tracer    *telemetry.TracerProvider
	protector *usecase.BruteForceProtector
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	failureStore := redisrepo.NewLoginFailureRepository(redisClient.Client(), cfg.Redis.FailurePrefix, cfg.Redis.FailureTTL)
	repos := postgresrepo.NewRepositories(pool, cfg.Lockout.RealmDefaults())

	var notifier port.LockoutNotifier
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			notifier = kafkainfra.NewStubPublisher(log)
		} else {
			notifier = kafkainfra.NewLockoutPublisher(producer, cfg.App, log)
			log.Info("kafka lockout publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		notifier = kafkainfra.NewStubPublisher(log)
	}

	metrics, err := telemetry.NewLockoutMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init lockout metrics: %w", err)
	}

	protector := usecase.NewBruteForceProtector(failureStore, repos.Users, repos.Realms, notifier, log).
		WithQueueCapacity(cfg.Lockout.QueueCapacity).
		WithApplyTimeout(cfg.Lockout.ApplyTimeout).
		WithMetrics(metrics)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:    cfg,
		Logger:    log,
		Metrics:   httpMetrics,
		Protector: protector,
		Failures:  failureStore,
		Database:  pool,
		Cache:     redisClient,
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		producer:  producer,
		tracer:    tracer,
		protector: protector,
	}, nil
}

// Protector exposes the running protector for in-process consumers.
func (a *Application) Protector() *usecase.BruteForceProtector {
	return a.protector
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	a.protector.Start()
	defer func() {
		_ = a.protector.Close()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting lockout service",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
