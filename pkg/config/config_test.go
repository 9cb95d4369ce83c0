package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "default", cfg.PlatformHint)
	assert.Equal(t, 0, cfg.FrontendPortOverride)
	assert.Equal(t, DefaultBackendPort, cfg.BackendPort)
	assert.Equal(t, DefaultBackendCommand, cfg.BackendCommand)
	assert.Equal(t, DefaultFrontendCommand, cfg.FrontendCommand)
	assert.Equal(t, "liveness", cfg.ReadyStrategy)
	assert.Equal(t, 10*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadyInterval)
	assert.Equal(t, "/health", cfg.ReadyHTTPPath)
	assert.Equal(t, 10*time.Second, cfg.GracefulTimeout)
	assert.Equal(t, 0, cfg.OpsPort)
	assert.Empty(t, cfg.ManifestPath)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PLATFORM_HINT", "render")
	t.Setenv("FRONTEND_PORT_OVERRIDE", "9000")
	t.Setenv("BACKEND_PORT", "8080")
	t.Setenv("READY_STRATEGY", "http")
	t.Setenv("READY_TIMEOUT", "30s")
	t.Setenv("READY_INTERVAL", "1s")
	t.Setenv("OPS_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "render", cfg.PlatformHint)
	assert.Equal(t, 9000, cfg.FrontendPortOverride)
	assert.Equal(t, 8080, cfg.BackendPort)
	assert.Equal(t, "http", cfg.ReadyStrategy)
	assert.Equal(t, 30*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, time.Second, cfg.ReadyInterval)
	assert.Equal(t, 9090, cfg.OpsPort)
}

func TestLoad_InvalidStrategy(t *testing.T) {
	t.Setenv("READY_STRATEGY", "hope")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READY_STRATEGY")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BackendCommand:  DefaultBackendCommand,
			FrontendCommand: DefaultFrontendCommand,
			BackendPort:     DefaultBackendPort,
			ReadyStrategy:   "liveness",
			ReadyTimeout:    10 * time.Second,
			ReadyInterval:   500 * time.Millisecond,
			GracefulTimeout: 10 * time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"empty backend command", func(c *Config) { c.BackendCommand = "  " }, "BACKEND_COMMAND"},
		{"empty frontend command", func(c *Config) { c.FrontendCommand = "" }, "FRONTEND_COMMAND"},
		{"backend port zero", func(c *Config) { c.BackendPort = 0 }, "BACKEND_PORT"},
		{"backend port too large", func(c *Config) { c.BackendPort = 70000 }, "BACKEND_PORT"},
		{"negative override", func(c *Config) { c.FrontendPortOverride = -1 }, "FRONTEND_PORT_OVERRIDE"},
		{"bad strategy", func(c *Config) { c.ReadyStrategy = "sleep" }, "READY_STRATEGY"},
		{"zero timeout", func(c *Config) { c.ReadyTimeout = 0 }, "READY_TIMEOUT"},
		{"zero interval", func(c *Config) { c.ReadyInterval = 0 }, "READY_INTERVAL"},
		{"zero grace", func(c *Config) { c.GracefulTimeout = 0 }, "GRACEFUL_TIMEOUT"},
		{"bad ops port", func(c *Config) { c.OpsPort = -1 }, "OPS_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestArgvSplitting(t *testing.T) {
	cfg := &Config{
		BackendCommand:  "uvicorn app.api:app --host {host} --port {port}",
		FrontendCommand: "streamlit  run   streamlit_app.py",
	}

	assert.Equal(t, []string{"uvicorn", "app.api:app", "--host", "{host}", "--port", "{port}"}, cfg.BackendArgv())
	// Runs of whitespace collapse.
	assert.Equal(t, []string{"streamlit", "run", "streamlit_app.py"}, cfg.FrontendArgv())
}
