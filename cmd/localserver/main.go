// Command localserver runs the local-mode REST service that performs the
// actual downloads with yt-dlp.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ytdlpro/config"
	"ytdlpro/handler"
	"ytdlpro/internal/localserver"
	"ytdlpro/internal/settings"
	"ytdlpro/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfiguration()

	deps := initializeDependencies(cfg)

	app := buildApplication(cfg, deps)

	if err := startApplication(cfg, app); err != nil {
		app.logger.Error(context.Background(), "Local server failed", err, nil)
		log.Fatalf("Failed to start: %v", err)
	}
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	provider observability.Provider
	tasks    *localserver.Service
	settings settings.Store
	logger   observability.Logger
	metrics  observability.Metrics
}

// Application holds the complete application stack
type Application struct {
	server  *http.Server
	tasks   *localserver.Service
	logger  observability.Logger
	metrics observability.Metrics
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoad()
	return cfgProvider.MustGet()
}

// initializeDependencies sets up all infrastructure dependencies
func initializeDependencies(cfg *config.Config) *Dependencies {
	provider := observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		AdditionalFields: observability.Fields{
			"version": cfg.Version,
		},
	})

	logger := provider.Logger("main")
	metrics := provider.Metrics("main")

	logger.Info(context.Background(), "Starting local server", observability.Fields{
		"service":        cfg.ServiceName,
		"version":        cfg.Version,
		"environment":    cfg.Environment,
		"output_dir":     cfg.Local.OutputDir,
		"max_concurrent": cfg.Local.MaxConcurrent,
		"tool":           cfg.Local.ToolPath,
	})
	metrics.RecordSuccess("application_start")

	tasks := localserver.NewService(
		localserver.NewExecRunner(cfg.Local.ToolPath, cfg.Local.OutputDir),
		localserver.ServiceConfigFrom(cfg.Local),
		provider.Logger("localserver.tasks"),
		provider.Metrics("localserver.tasks"),
	)

	return &Dependencies{
		provider: provider,
		tasks:    tasks,
		settings: settings.New(cfg.Local.SettingsFile),
		logger:   logger,
		metrics:  metrics,
	}
}

// buildApplication assembles the HTTP server
func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	srv := &localserver.Server{
		Tasks:    deps.tasks,
		Settings: deps.settings,
		Limits: localserver.Limits{
			MaxConcurrentDownloads: cfg.Local.MaxConcurrent,
			RetryAttempts:          cfg.Retry.MaxAttempts,
			DownloadTimeout:        cfg.Remote.Timeout,
		},
		Version:        cfg.Version,
		Logger:         deps.provider.Logger("localserver"),
		Metrics:        deps.provider.Metrics("localserver"),
		MetricsHandler: promhttp.Handler(),
	}

	return &Application{
		server: &http.Server{
			Addr:              cfg.Local.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		tasks:   deps.tasks,
		logger:  deps.logger,
		metrics: deps.metrics,
	}
}

// startApplication serves until SIGINT or SIGTERM, then cancels running
// downloads and drains the server.
func startApplication(cfg *config.Config, app *Application) error {
	startTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.tasks.StartSweeper(ctx)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Local server listening", observability.Fields{"addr": cfg.Local.Addr})
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = app.tasks.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Local.ShutdownWindow)
	defer cancel()

	handler.Shutdown(shutdownCtx, app.logger, app.metrics, startTime)

	err := app.server.Shutdown(shutdownCtx)
	if closeErr := app.tasks.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
