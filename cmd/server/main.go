package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/usecase"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/port"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/artifact"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/config"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/kafka"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/postgres"
	grpcpresentation "github.com/sibi-seeni/credit-churn-deploy/internal/presentation/grpc"
	"github.com/sibi-seeni/credit-churn-deploy/internal/presentation/rest"
	pkgkafka "github.com/sibi-seeni/credit-churn-deploy/pkg/kafka"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/observability"
	pgutil "github.com/sibi-seeni/credit-churn-deploy/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("churn-serve stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("churn-serve stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting churn-serve",
		slog.String("artifact_dir", cfg.ArtifactDir),
		slog.String("environment", cfg.Environment),
	)

	// Load the artifact set before anything listens.
	set, err := artifact.Load(cfg.ArtifactDir)
	if err != nil {
		return fmt.Errorf("loading artifacts: %w", err)
	}
	logger.Info("artifact set loaded",
		slog.String("artifact_set_id", set.ID().String()),
		slog.String("model_type", set.Manifest().ModelType),
		slog.Int("features", set.Schema().Len()),
		slog.Any("categorical_columns", set.Registry().Columns()),
	)

	// Initialize tracing.
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", slog.String("error", err.Error()))
	} else {
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			_ = shutdownTracer(flushCtx)
		}()
	}

	// Initialize metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	defer meterProvider.Shutdown(context.Background()) //nolint:errcheck

	health := rest.NewHealthHandler(cfg.ServiceName, set.ID().String(), logger)

	// Optional prediction audit log.
	var repo port.PredictionRepository
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := pgutil.NewPool(dbCtx, pgutil.Config{URL: cfg.DatabaseURL, ApplicationName: cfg.ServiceName, MaxConns: 10})
		dbCancel()
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := pgutil.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to database, audit log enabled")

		repo = postgres.NewPredictionRepository(pool)
		health.AddCheck("database", func(ctx context.Context) error { return pgutil.HealthCheck(ctx, pool) })
	}

	// Optional event publishing.
	var publisher port.EventPublisher
	if brokers := pkgkafka.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		producer := pkgkafka.NewProducer(pkgkafka.Config{Brokers: brokers})
		defer producer.Close()
		publisher = kafka.NewPublisher(producer, cfg.PredictionTopic, cfg.ServiceName, logger)
		logger.Info("prediction events enabled",
			slog.Any("brokers", brokers),
			slog.String("topic", cfg.PredictionTopic),
		)
	}

	predictor, err := usecase.NewPredictChurn(set, repo, publisher, logger, usecase.WithRecordTimeout(cfg.RecordTimeout))
	if err != nil {
		return err
	}
	predictHandler, err := rest.NewPredictHandler(predictor, meterProvider.Meter(cfg.ServiceName), cfg.MaxBodyBytes, logger)
	if err != nil {
		return fmt.Errorf("initializing prediction handler: %w", err)
	}

	publicMux := http.NewServeMux()
	predictHandler.RegisterRoutes(publicMux)
	var public http.Handler = publicMux
	if cfg.RateLimitRPS > 0 {
		public = rest.RateLimit(rest.NewClientRateLimiter(cfg.RateLimitRPS), logger)(public)
	}
	publicServer := newHTTPServer(cfg.HTTPAddress(), rest.RequestLogger(logger)(public))

	opsMux := http.NewServeMux()
	health.RegisterRoutes(opsMux)
	opsMux.Handle("GET /metrics", metricsHandler)
	opsServer := newHTTPServer(cfg.OpsAddress(), opsMux)

	grpcServer, err := grpcpresentation.NewServer(grpcpresentation.Options{
		Address:     cfg.GRPCAddress(),
		ServiceName: cfg.ServiceName,
		CertFile:    cfg.GRPCTLSCertFile,
		KeyFile:     cfg.GRPCTLSKeyFile,
		Reflection:  cfg.GRPCReflection,
	}, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("prediction server starting", slog.String("address", cfg.HTTPAddress()))
		return serveHTTP(publicServer)
	})
	g.Go(func() error {
		logger.Info("ops server starting", slog.String("address", cfg.OpsAddress()))
		return serveHTTP(opsServer)
	})
	g.Go(func() error {
		if err := grpcServer.Start(); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down churn-serve")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		grpcServer.Stop()
		return errors.Join(
			publicServer.Shutdown(shutdownCtx),
			opsServer.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func serveHTTP(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server %s error: %w", srv.Addr, err)
	}
	return nil
}
