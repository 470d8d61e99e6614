package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Provider loads the Config once per process.
type Provider struct {
	config *Config
	mu     sync.RWMutex
	loaded bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the process-wide provider.
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Load reads the .env files and the environment once. Later calls are
// no-ops.
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	if err := loadEnvFiles(); err != nil {
		return err
	}

	cfg := p.parseConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// MustLoad is Load for main packages: it panics on error.
func (p *Provider) MustLoad() {
	if err := p.Load(); err != nil {
		panic(err)
	}
}

func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return nil, errors.New("configuration not loaded")
	}
	return p.config, nil
}

func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// loadEnvFiles applies .env, then .env.<ENVIRONMENT>, then .env.local.
// Missing files are skipped. Real environment variables beat .env; the two
// later files override everything before them.
func loadEnvFiles() error {
	files := []string{".env"}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env.local")

	for i, name := range files {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		load := godotenv.Overload
		if i == 0 {
			load = godotenv.Load
		}
		if err := load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// parseConfig reads every setting from the environment over DefaultConfig.
func (p *Provider) parseConfig() *Config {
	d := DefaultConfig()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", d.Environment),
		ServiceName: getEnv("SERVICE_NAME", d.ServiceName),
		LogLevel:    getEnv("LOG_LEVEL", d.LogLevel),
		Version:     getEnv("SERVICE_VERSION", d.Version),

		HTTP: HTTPConfig{
			Addr:      getEnv("HTTP_ADDR", d.HTTP.Addr),
			Timeout:   getDuration("HTTP_TIMEOUT", d.HTTP.Timeout),
			UserAgent: getEnv("HTTP_USER_AGENT", d.HTTP.UserAgent),
		},

		Lambda: LambdaConfig{
			Timeout: getDuration("LAMBDA_TIMEOUT", d.Lambda.Timeout),
		},

		Handler: HandlerConfig{
			Timeout:        getDuration("HANDLER_TIMEOUT", d.Handler.Timeout),
			MaxRequestSize: int64(getInt("HANDLER_MAX_REQUEST_SIZE", int(d.Handler.MaxRequestSize))),
			EnableMetrics:  getBool("HANDLER_ENABLE_METRICS", d.Handler.EnableMetrics),
			EnableTracing:  getBool("HANDLER_ENABLE_TRACING", d.Handler.EnableTracing),
			Platform:       getEnv("HANDLER_PLATFORM", d.Handler.Platform),
		},

		Retry: RetryConfig{
			MaxAttempts:       getInt("RETRY_MAX_ATTEMPTS", d.Retry.MaxAttempts),
			InitialBackoff:    getDuration("RETRY_INITIAL_BACKOFF", d.Retry.InitialBackoff),
			MaxBackoff:        getDuration("RETRY_MAX_BACKOFF", d.Retry.MaxBackoff),
			BackoffMultiplier: getFloat64("RETRY_BACKOFF_MULTIPLIER", d.Retry.BackoffMultiplier),
		},

		Remote: RemoteConfig{
			BaseURL:             getEnv("REMOTE_BASE_URL", d.Remote.BaseURL),
			Mode:                getEnv("REMOTE_MODE", d.Remote.Mode),
			Timeout:             getDuration("REMOTE_TIMEOUT", d.Remote.Timeout),
			ReachabilityTimeout: getDuration("REMOTE_REACHABILITY_TIMEOUT", d.Remote.ReachabilityTimeout),
			UserAgent:           getEnv("REMOTE_USER_AGENT", ""),
		},

		Coordinator: CoordinatorConfig{
			PollInterval:    getDuration("POLL_INTERVAL", d.Coordinator.PollInterval),
			CompletionGrace: getDuration("COMPLETION_GRACE", d.Coordinator.CompletionGrace),
		},

		Local: LocalConfig{
			Addr:           getEnv("LOCAL_ADDR", d.Local.Addr),
			OutputDir:      getEnv("LOCAL_OUTPUT_DIR", d.Local.OutputDir),
			MaxConcurrent:  getInt("LOCAL_MAX_CONCURRENT", d.Local.MaxConcurrent),
			ToolPath:       getEnv("LOCAL_TOOL_PATH", d.Local.ToolPath),
			TaskRetention:  getDuration("LOCAL_TASK_RETENTION", d.Local.TaskRetention),
			SweepInterval:  getDuration("LOCAL_SWEEP_INTERVAL", d.Local.SweepInterval),
			SettingsFile:   getEnv("SETTINGS_FILE", d.Local.SettingsFile),
			ShutdownWindow: getDuration("LOCAL_SHUTDOWN_WINDOW", d.Local.ShutdownWindow),
		},

		Analysis: AnalysisConfig{
			Timeout:  getDuration("ANALYSIS_TIMEOUT", d.Analysis.Timeout),
			Attempts: getInt("ANALYSIS_ATTEMPTS", d.Analysis.Attempts),
		},
	}

	cfg.applyDefaults()
	return cfg
}
