package config

import "time"

// DefaultHandlerConfig returns the handler defaults used when no environment is loaded.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		Timeout:        30 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024,
		EnableMetrics:  true,
		EnableTracing:  true,
	}
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:      ":8888",
		Timeout:   30 * time.Second,
		UserAgent: "ytdlpro/1.0",
	}
}

// DefaultRetryConfig leaves retries off; analysis calls are not idempotent
// from the caller's point of view.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       0,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func DefaultLambdaConfig() LambdaConfig {
	return LambdaConfig{
		Timeout: 30 * time.Second,
	}
}

// DefaultRemoteConfig points at a local-mode server on its default port.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL:             "http://localhost:8080",
		Mode:                ModeLocal,
		Timeout:             30 * time.Second,
		ReachabilityTimeout: 3 * time.Second,
		UserAgent:           "ytdlpro/1.0",
	}
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		PollInterval:    2 * time.Second,
		CompletionGrace: 5 * time.Second,
	}
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Addr:           ":8080",
		OutputDir:      "downloads",
		MaxConcurrent:  3,
		ToolPath:       "yt-dlp",
		TaskRetention:  24 * time.Hour,
		SweepInterval:  time.Hour,
		SettingsFile:   "",
		ShutdownWindow: 10 * time.Second,
	}
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Timeout:  25 * time.Second,
		Attempts: 3,
	}
}

// DefaultConfig returns a complete, valid configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		ServiceName: "ytdlpro",
		LogLevel:    "info",
		Version:     "1.0.0",
		HTTP:        DefaultHTTPConfig(),
		Lambda:      DefaultLambdaConfig(),
		Handler:     DefaultHandlerConfig(),
		Retry:       DefaultRetryConfig(),
		Remote:      DefaultRemoteConfig(),
		Coordinator: DefaultCoordinatorConfig(),
		Local:       DefaultLocalConfig(),
		Analysis:    DefaultAnalysisConfig(),
	}
}
