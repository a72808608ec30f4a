package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/audit"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/cache"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/gateway"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-incentive-service/internal/ports"
)

func NewLogger(level, serviceName string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	return slog.New(handler).With("service", serviceName)
}

// Run wires the full service graph and blocks until ctx is canceled or a
// server fails.
func Run(ctx context.Context, cfg Config) error {
	logger := NewLogger(cfg.LogLevel, cfg.ServiceName)

	db, err := postgres.Connect(ctx, cfg.Postgres.DSN, 20)
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}
	repos := postgres.NewRepositories(db)

	redisClient, err := cache.Connect(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	usage := cache.NewUsageTracker(redisClient, "incentive:usage")

	var publisher ports.DomainPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, kafkaErr := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.DefaultTopic, nil)
		if kafkaErr != nil {
			return kafkaErr
		}
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
	} else {
		logger.Warn("no kafka brokers configured, events go to the log stream only",
			"module", "bootstrap", "layer", "app")
		publisher = events.NewLoggingPublisher(logger)
	}

	service := application.NewService(application.Dependencies{
		Config:       application.Config{ServiceName: cfg.ServiceName},
		Incentives:   repos.Incentives,
		Audit:        repos.Audit,
		Idempotency:  repos.Idempotency,
		Outbox:       repos.Outbox,
		Usage:        usage,
		Gateway:      gateway.NewSimulatedProvider(logger, 50*time.Millisecond),
		DomainEvents: publisher,
		AuditLogger:  audit.NewLogger(logger),
	})

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(logger, handler, httpadapter.RouterConfig{
		JWTSecret: []byte(cfg.HTTP.JWTSecret),
		Ready: func() bool {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				return false
			}
			return sqlDB.Ping() == nil
		},
	})
	httpServer := &nethttp.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpcadapter.NewServer(logger, cfg.GRPC.Addr)
	outboxWorker := events.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.Worker.OutboxInterval, cfg.Worker.OutboxBatch)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http server listening", "module", "bootstrap", "layer", "app", "addr", cfg.HTTP.Addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", serveErr)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if serveErr := grpcServer.Run(runCtx); serveErr != nil {
			errCh <- serveErr
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if workerErr := outboxWorker.Run(runCtx); workerErr != nil && !errors.Is(workerErr, context.Canceled) {
			errCh <- workerErr
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runExpirySweeper(runCtx, logger, service, cfg.Worker.SweepInterval)
	}()

	var runErr error
	select {
	case <-runCtx.Done():
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http shutdown failed", "module", "bootstrap", "layer", "app", "error", shutdownErr)
	}
	wg.Wait()
	return runErr
}

func runExpirySweeper(ctx context.Context, logger *slog.Logger, service *application.Service, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.SweepExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "expiry sweep failed",
					"module", "bootstrap", "layer", "app", "operation", "sweep_expired", "outcome", "failure", "error", err)
				continue
			}
			if removed > 0 {
				logger.InfoContext(ctx, "expired incentives removed",
					"module", "bootstrap", "layer", "app", "operation", "sweep_expired", "outcome", "success", "removed", removed)
			}
		}
	}
}
