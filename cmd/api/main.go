// Command api serves the analysis functions, inside AWS Lambda behind an
// API Gateway proxy integration or as a plain HTTP server.
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
	"ytdlpro/handler/platforms"
	"ytdlpro/internal/analysis"
	"ytdlpro/internal/settings"
	"ytdlpro/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfiguration()

	deps := initializeDependencies(cfg)

	app := buildApplication(cfg, deps)

	startApplication(cfg, app)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	provider observability.Provider
	analyzer *analysis.Backend
	settings settings.Store
	logger   observability.Logger
	metrics  observability.Metrics
}

// Application holds the complete application stack
type Application struct {
	router   *platforms.Router
	platform string
	logger   observability.Logger
	metrics  observability.Metrics
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

	logger.Info(context.Background(), "Starting application", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
	})
	metrics.RecordSuccess("application_start")

	analyzer := analysis.NewBackend(
		analysis.BackendConfigFrom(cfg),
		analysis.YTDLPLister{},
		provider.Logger("analysis.backend"),
		provider.Metrics("analysis.backend"),
	)

	return &Dependencies{
		provider: provider,
		analyzer: analyzer,
		settings: settings.New(cfg.Local.SettingsFile),
		logger:   logger,
		metrics:  metrics,
	}
}

// buildApplication assembles the functions behind the middleware chain
func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	factory := handler.NewFactory(deps.provider).
		WithHandlerConfig(cfg.Handler).
		WithRetryConfig(cfg.Retry)

	platform := factory.Platform()

	router := analysis.NewRouter(factory, analysis.APIDeps{
		Analyzer: deps.analyzer,
		Settings: deps.settings,
		Limits: analysis.SettingsLimits{
			MaxConcurrentDownloads: cfg.Local.MaxConcurrent,
			RetryAttempts:          cfg.Analysis.Attempts,
			DownloadTimeout:        cfg.Analysis.Timeout,
			ServerType:             "serverless",
		},
		Version:  cfg.Version,
		Platform: platform,
		Provider: deps.provider,
	})

	deps.logger.Info(context.Background(), "Functions registered", observability.Fields{
		"functions": router.Names(),
		"platform":  platform,
	})

	return &Application{
		router:   router,
		platform: platform,
		logger:   deps.logger,
		metrics:  deps.metrics,
	}
}

// startApplication starts the application and begins processing
func startApplication(cfg *config.Config, app *Application) {
	if app.platform == handler.PlatformLambda {
		app.logger.Info(context.Background(), "Starting Lambda handler", nil)
		platforms.NewLambdaAdapter(app.router, cfg.Lambda.Timeout).Start()
		return
	}

	if err := serveHTTP(cfg, app); err != nil {
		app.logger.Error(context.Background(), "HTTP server failed", err, nil)
		app.metrics.RecordError("application_start", "http_server")
		log.Fatalf("Failed to start: %v", err)
	}
}

// serveHTTP runs the functions and the metrics endpoint until SIGINT or SIGTERM.
func serveHTTP(cfg *config.Config, app *Application) error {
	startTime := time.Now()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/*", platforms.NewHTTPAdapter(app.router, cfg.Handler.MaxRequestSize))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Handler.Timeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "HTTP server listening", observability.Fields{"addr": cfg.HTTP.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Local.ShutdownWindow)
	defer cancel()

	handler.Shutdown(shutdownCtx, app.logger, app.metrics, startTime)
	return srv.Shutdown(shutdownCtx)
}
