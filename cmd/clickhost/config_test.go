package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./clickhost.yaml", cfg.Spec.Path)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4318, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./data/clickhost.db", cfg.Database.DSN)
	assert.Equal(t, "localhost", cfg.Runner.HostAddress)
	assert.Equal(t, 500*time.Millisecond, cfg.Runner.ReadyInterval)
	assert.Equal(t, 60*time.Second, cfg.Runner.ReadyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Runner.StopTimeout)
	assert.False(t, cfg.Runner.KeepContainers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
spec:
  path: "/etc/clickhost/app.yaml"

server:
  host: "127.0.0.1"
  port: 9000
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

runner:
  host_address: "10.0.0.5"
  ready_timeout: 2m
  keep_containers: true

log:
  level: "debug"
  format: "text"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "/etc/clickhost/app.yaml", cfg.Spec.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "10.0.0.5", cfg.Runner.HostAddress)
	assert.Equal(t, 2*time.Minute, cfg.Runner.ReadyTimeout)
	assert.True(t, cfg.Runner.KeepContainers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("CLICKHOST_SPEC_PATH", "/srv/app.yaml")
	t.Setenv("CLICKHOST_SERVER_PORT", "3000")
	t.Setenv("CLICKHOST_DATABASE_DSN", "/custom/path.db")
	t.Setenv("CLICKHOST_RUNNER_HOST_ADDRESS", "192.168.1.1")
	t.Setenv("CLICKHOST_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/app.yaml", cfg.Spec.Path)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "192.168.1.1", cfg.Runner.HostAddress)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4318, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "pretty"} {
		cfg := &Config{
			Log: LogConfig{
				Level:  "info",
				Format: format,
			},
		}
		assert.NotNil(t, SetupLogger(cfg), format)
	}
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "invalid",
			Format: "json",
		},
	}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 4318,
		},
	}

	assert.Equal(t, "localhost:4318", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"CLICKHOST_SPEC_PATH",
		"CLICKHOST_SERVER_HOST",
		"CLICKHOST_SERVER_PORT",
		"CLICKHOST_DATABASE_DSN",
		"CLICKHOST_RUNNER_HOST_ADDRESS",
		"CLICKHOST_LOG_LEVEL",
		"CLICKHOST_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
