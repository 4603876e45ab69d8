package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "exposure-agent/1.0", cfg.Backend.UserAgent)
	assert.Equal(t, "http://127.0.0.1:18913", cfg.Engine.BaseURL)
	assert.Equal(t, "sqlite", cfg.State.Driver)
	assert.Equal(t, "exposure-agent.db", cfg.State.Path)
	assert.Equal(t, "keyset-cache", cfg.Cache.Dir)
	assert.Equal(t, 240, cfg.Agent.DefaultIntervalMinutes)
	assert.Equal(t, 15, cfg.Agent.OverdueCheckIntervalMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
backend:
  base_url: https://backend.example.org
state:
  driver: postgres
  database_url: postgres://localhost/exposure
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example.org", cfg.Backend.BaseURL)
	assert.Equal(t, "postgres", cfg.State.Driver)
	assert.Equal(t, "postgres://localhost/exposure", cfg.State.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 240, cfg.Agent.DefaultIntervalMinutes)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
state:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("EN_STATE_DRIVER", "postgres")
	t.Setenv("EN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.State.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("EN_AGENT_DEFAULT_INTERVAL_MINUTES", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Agent.DefaultIntervalMinutes)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validConfig returns a Config that passes validation in every mode.
func validConfig() *Config {
	return &Config{
		Backend: BackendConfig{BaseURL: "https://backend.example.org"},
		State:   StateConfig{Driver: "sqlite", Path: "state.db"},
		Agent: AgentConfig{
			DefaultIntervalMinutes:      240,
			OverdueCheckIntervalMinutes: 15,
		},
	}
}

func TestValidateProcess_AllPresent(t *testing.T) {
	assert.NoError(t, validConfig().Validate("process"))
}

func TestValidateProcess_MissingBackendURL(t *testing.T) {
	cfg := validConfig()
	cfg.Backend.BaseURL = ""

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url is required")
}

func TestValidateState_SQLiteNeedsPath(t *testing.T) {
	cfg := validConfig()
	cfg.State.Path = ""

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "state.path is required")
}

func TestValidateState_PostgresNeedsURL(t *testing.T) {
	cfg := validConfig()
	cfg.State.Driver = "postgres"
	cfg.State.DatabaseURL = ""

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "state.database_url is required")

	cfg.State.DatabaseURL = "postgres://localhost/exposure"
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateState_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.State.Driver = "mysql"

	err := cfg.Validate("process")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "state.driver must be sqlite or postgres")
}

func TestValidateAgent_Intervals(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.DefaultIntervalMinutes = 0

	err := cfg.Validate("agent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent.default_interval_minutes must be > 0")

	cfg.Agent.DefaultIntervalMinutes = 240
	cfg.Agent.OverdueCheckIntervalMinutes = -1
	err = cfg.Validate("agent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent.overdue_check_interval_minutes must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validConfig().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
