// Package main is the entry point for the quote service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/bootstrap"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/metrics"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

// sessionCleanupInterval is how often expired visitor sessions are dropped.
const sessionCleanupInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load and validate configuration (fail fast)
	cfg, err := bootstrap.LoadConfig(os.Getenv("APP_ENVIRONMENT"))
	if err != nil {
		return err
	}

	// 2. Initialize logging
	logger := bootstrap.NewLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	// 3. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if shutdownErr := telProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 4. Open storage, build the remote source and load the collection
	sessions := memory.NewSessionStore(cfg.Session.TTL)

	book, err := bootstrap.OpenBook(ctx, cfg, logger, bootstrap.BookConfig{
		Sessions: sessions,
		Metrics:  metrics.NewQuotes(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := book.Close(); closeErr != nil {
			logger.Error("closing storage", slog.Any("error", closeErr))
		}
	}()

	logger.Info("quotes loaded", slog.Int("count", book.Len()))

	// 5. Health checks: storage is critical, the remote source only degrades readiness
	healthRegistry, err := newHealthRegistry(book)
	if err != nil {
		return err
	}

	// 6. HTTP server and routes
	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewDefaultRouterConfig(
		logger,
		cfg,
		handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime), nil),
		handlers.NewQuoteHandler(book.QuoteBook),
	))

	// 7. Run server, sync worker and session cleanup until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(gctx, logger, server, cfg.Server.ShutdownTimeout)
	})

	if cfg.Sync.Enabled {
		worker := app.NewSyncWorker(book, app.SyncWorkerConfig{
			Interval:  cfg.Sync.Interval,
			Immediate: cfg.Sync.Immediate,
			Logger:    logger,
		})
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	g.Go(func() error {
		sessions.RunCleanup(gctx, sessionCleanupInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

func newHealthRegistry(book *bootstrap.Book) (*ports.DefaultHealthRegistry, error) {
	registry := ports.NewHealthRegistry()

	if book.Storage.Checker != nil {
		if err := registry.Register(book.Storage.Checker); err != nil {
			return nil, fmt.Errorf("registering storage health check: %w", err)
		}
	}

	if err := registry.RegisterOptional(book.Remote); err != nil {
		return nil, fmt.Errorf("registering remote health check: %w", err)
	}

	return registry, nil
}

// serve runs server until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration) error {
	serverErr := server.Start()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		logger.Info("initiating graceful shutdown", slog.Duration("timeout", shutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
