package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	HTTP        HTTPConfig
	Lambda      LambdaConfig
	Handler     HandlerConfig
	Retry       RetryConfig
	Remote      RemoteConfig
	Coordinator CoordinatorConfig
	Local       LocalConfig
	Analysis    AnalysisConfig
}

// HTTPConfig holds HTTP server and outbound client settings
type HTTPConfig struct {
	Addr      string // listen address of the serverless API in HTTP mode
	Timeout   time.Duration
	UserAgent string
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	Timeout time.Duration
}

// HandlerConfig holds handler configuration
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableMetrics  bool
	EnableTracing  bool
	Platform       string // auto-detected if empty
}

// RetryConfig holds the handler retry policy. MaxAttempts of zero disables it.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Remote modes
const (
	ModeCloud = "cloud"
	ModeLocal = "local"
)

// RemoteConfig describes the server the coordinator talks to
type RemoteConfig struct {
	BaseURL             string
	Mode                string // cloud or local
	Timeout             time.Duration
	ReachabilityTimeout time.Duration
	UserAgent           string
}

// CoordinatorConfig controls the polling loop
type CoordinatorConfig struct {
	PollInterval    time.Duration
	CompletionGrace time.Duration
}

// LocalConfig configures the local-mode REST service
type LocalConfig struct {
	Addr           string
	OutputDir      string
	MaxConcurrent  int
	ToolPath       string
	TaskRetention  time.Duration
	SweepInterval  time.Duration
	SettingsFile   string
	ShutdownWindow time.Duration
}

// AnalysisConfig configures the server-side analysis backend
type AnalysisConfig struct {
	Timeout  time.Duration
	Attempts int
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.Handler.Timeout <= 0 {
		errors = append(errors, "HANDLER_TIMEOUT must be positive")
	}
	if c.Handler.MaxRequestSize <= 0 {
		errors = append(errors, "HANDLER_MAX_REQUEST_SIZE must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		errors = append(errors, "RETRY_MAX_ATTEMPTS cannot be negative")
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		errors = append(errors, "RETRY_BACKOFF_MULTIPLIER must be >= 1.0")
	}

	if c.Remote.BaseURL == "" {
		errors = append(errors, "REMOTE_BASE_URL is required")
	}
	if c.Remote.Mode != ModeCloud && c.Remote.Mode != ModeLocal {
		errors = append(errors, fmt.Sprintf("REMOTE_MODE must be %q or %q", ModeCloud, ModeLocal))
	}
	if c.Remote.Timeout <= 0 {
		errors = append(errors, "REMOTE_TIMEOUT must be positive")
	}
	if c.Remote.ReachabilityTimeout <= 0 || c.Remote.ReachabilityTimeout > c.Remote.Timeout {
		errors = append(errors, "REMOTE_REACHABILITY_TIMEOUT must be positive and not exceed REMOTE_TIMEOUT")
	}

	if c.Coordinator.PollInterval <= 0 {
		errors = append(errors, "POLL_INTERVAL must be positive")
	}
	if c.Coordinator.CompletionGrace < c.Coordinator.PollInterval {
		errors = append(errors, "COMPLETION_GRACE must be at least POLL_INTERVAL")
	}

	if c.Local.MaxConcurrent < 1 {
		errors = append(errors, "LOCAL_MAX_CONCURRENT must be at least 1")
	}
	if c.Local.ToolPath == "" {
		errors = append(errors, "LOCAL_TOOL_PATH is required")
	}

	if c.Analysis.Attempts < 1 {
		errors = append(errors, "ANALYSIS_ATTEMPTS must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// applyDefaults applies environment-specific defaults
func (c *Config) applyDefaults() {
	c.Remote.Mode = strings.ToLower(strings.TrimSpace(c.Remote.Mode))
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")

	if c.Remote.UserAgent == "" {
		c.Remote.UserAgent = c.HTTP.UserAgent
	}

	if c.IsProduction() {
		c.Handler.EnableMetrics = true
		c.Handler.EnableTracing = true
	}

	if c.IsLocal() {
		c.Handler.EnableTracing = false
	}
}

// IsLocal returns true if running in local/development environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
