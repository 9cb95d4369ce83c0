// Package config loads stack-launcher configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for the managed stack. The backend command and port mirror the
// uvicorn API server; the frontend command mirrors the Streamlit UI. Both
// can be overridden through the environment or a stack manifest.
const (
	DefaultBackendPort     = 8000
	DefaultBackendCommand  = "uvicorn app.api:app --host {host} --port {port}"
	DefaultFrontendCommand = "streamlit run streamlit_app.py --server.address {host} --server.port {port}"
)

// Config holds the fully resolved launcher configuration for one run.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Deployment environment
	PlatformHint         string `mapstructure:"PLATFORM_HINT"`
	FrontendPortOverride int    `mapstructure:"FRONTEND_PORT_OVERRIDE"`
	BackendPort          int    `mapstructure:"BACKEND_PORT"`

	// Service commands (whitespace-separated argv, {host}/{port} expanded
	// per service at launch time)
	BackendCommand  string `mapstructure:"BACKEND_COMMAND"`
	FrontendCommand string `mapstructure:"FRONTEND_COMMAND"`

	// Readiness gate
	ReadyStrategy string        `mapstructure:"READY_STRATEGY"`
	ReadyTimeout  time.Duration `mapstructure:"READY_TIMEOUT"`
	ReadyInterval time.Duration `mapstructure:"READY_INTERVAL"`
	ReadyHTTPPath string        `mapstructure:"READY_HTTP_PATH"`

	// Shutdown and observability
	GracefulTimeout time.Duration `mapstructure:"GRACEFUL_TIMEOUT"`
	OpsPort         int           `mapstructure:"OPS_PORT"`

	// Optional declarative stack manifest (yaml)
	ManifestPath string `mapstructure:"STACK_MANIFEST"`
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory. Defaults cover a plain local run.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PLATFORM_HINT", "default")
	v.SetDefault("FRONTEND_PORT_OVERRIDE", 0)
	v.SetDefault("BACKEND_PORT", DefaultBackendPort)
	v.SetDefault("BACKEND_COMMAND", DefaultBackendCommand)
	v.SetDefault("FRONTEND_COMMAND", DefaultFrontendCommand)
	v.SetDefault("READY_STRATEGY", "liveness")
	v.SetDefault("READY_TIMEOUT", 10*time.Second)
	v.SetDefault("READY_INTERVAL", 500*time.Millisecond)
	v.SetDefault("READY_HTTP_PATH", "/health")
	v.SetDefault("GRACEFUL_TIMEOUT", 10*time.Second)
	v.SetDefault("OPS_PORT", 0)
	v.SetDefault("STACK_MANIFEST", "")

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	// Read .env when present (ignore if not found - env vars still apply)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside the run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendCommand) == "" {
		return fmt.Errorf("BACKEND_COMMAND must not be empty")
	}
	if strings.TrimSpace(c.FrontendCommand) == "" {
		return fmt.Errorf("FRONTEND_COMMAND must not be empty")
	}
	if c.BackendPort < 1 || c.BackendPort > 65535 {
		return fmt.Errorf("BACKEND_PORT must be between 1 and 65535, got %d", c.BackendPort)
	}
	if c.FrontendPortOverride < 0 || c.FrontendPortOverride > 65535 {
		return fmt.Errorf("FRONTEND_PORT_OVERRIDE must be between 0 and 65535, got %d", c.FrontendPortOverride)
	}
	switch c.ReadyStrategy {
	case "liveness", "delay", "http":
	default:
		return fmt.Errorf("READY_STRATEGY must be liveness, delay or http, got %q", c.ReadyStrategy)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("READY_TIMEOUT must be a positive duration")
	}
	if c.ReadyInterval <= 0 {
		return fmt.Errorf("READY_INTERVAL must be a positive duration")
	}
	if c.GracefulTimeout <= 0 {
		return fmt.Errorf("GRACEFUL_TIMEOUT must be a positive duration")
	}
	if c.OpsPort < 0 || c.OpsPort > 65535 {
		return fmt.Errorf("OPS_PORT must be between 0 and 65535, got %d", c.OpsPort)
	}
	return nil
}

// BackendArgv returns the backend command split into argv form.
func (c *Config) BackendArgv() []string {
	return strings.Fields(c.BackendCommand)
}

// FrontendArgv returns the frontend command split into argv form.
func (c *Config) FrontendArgv() []string {
	return strings.Fields(c.FrontendCommand)
}
