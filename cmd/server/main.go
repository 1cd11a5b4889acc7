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

	"github.com/joho/godotenv"

	rag_http "rag-governor/internal/adapter/rag_http"
	"rag-governor/internal/di"
	"rag-governor/internal/domain"
	"rag-governor/internal/infra/config"
	"rag-governor/internal/infra/logger"
	"rag-governor/internal/infra/metrics"
	"rag-governor/internal/infra/otel"
	"rag-governor/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", slog.String("error", err.Error()))
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Initialize Telemetry
	ctx := context.Background()
	registry := metrics.NewRegistry()
	providers, shutdownOTel, err := otel.InitProvider(ctx, otel.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
	}, registry)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}

	// 3. Initialize Logger
	log := logger.NewWithOptions(logger.Options{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		EnableOTel:  cfg.OTel.Enabled,
	})
	slog.SetDefault(log)

	telemetry, err := otel.NewPipelineTelemetry(providers.TracerProvider, providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("failed to init pipeline telemetry: %w", err)
	}

	// 4. Wire Components
	app, err := di.NewApplicationComponents(cfg, telemetry, log)
	if err != nil {
		return fmt.Errorf("failed to wire components: %w", err)
	}

	collectors, err := metrics.RegisterIndexCollectors(registry, func() *domain.CorpusIndex {
		return app.Holder.Load()
	})
	if err != nil {
		return fmt.Errorf("failed to register index metrics: %w", err)
	}
	app.Worker.WithObserver(func(res *usecase.RefreshResult, err error) {
		if err != nil {
			collectors.Failures.Inc()
			return
		}
		if res != nil && res.Swapped {
			collectors.Swaps.Inc()
		}
	})

	// 5. Build Initial Index
	if err := initialRefresh(ctx, app, collectors, log); err != nil && cfg.Corpus.Require {
		return err
	}

	// 6. Start Worker
	// Without a watcher the worker still retries a failed initial build.
	if cfg.Corpus.Watch || app.Holder.Load() == nil {
		if err := app.Worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reindex worker: %w", err)
		}
		if app.Holder.Load() == nil {
			app.Worker.Trigger()
		}
	}
	defer func() {
		log.Info("stopping_reindex_worker")
		app.Worker.Stop()
	}()

	// 7. Initialize Echo
	tracerProvider := providers.TracerProvider
	if !cfg.OTel.Enabled {
		tracerProvider = nil
	}
	e := rag_http.NewServer(app.Handler, rag_http.ServerOptions{
		ServiceName:    cfg.ServiceName,
		TracerProvider: tracerProvider,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Metrics:        metrics.Handler(registry),
		Logger:         log,
	})

	// 8. Start Server
	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("server_starting", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_failed", slog.String("error", err.Error()))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := e.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// initialRefresh builds the first snapshot. On failure the server still
// starts and /readyz reports loading until the worker succeeds.
func initialRefresh(ctx context.Context, app *di.ApplicationComponents, collectors *metrics.IndexCollectors, log *slog.Logger) error {
	start := time.Now()
	res, err := app.RefreshUsecase.Execute(ctx)
	if err != nil {
		collectors.Failures.Inc()
		log.Error("initial_index_build_failed",
			slog.String("corpus", app.Source.Describe()),
			slog.String("error", err.Error()))
		return err
	}
	if res.Swapped {
		collectors.Swaps.Inc()
	}
	log.Info("initial_index_built",
		slog.Int("document_count", res.DocumentCount),
		slog.String("fingerprint", res.Fingerprint),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
