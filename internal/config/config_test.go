package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemma", cfg.LLM.Model)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.Ordering.MaxOrderItems)
	assert.Equal(t, 3, cfg.Ordering.UpsellingThreshold)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "restaurant_orders.db", cfg.Database.URL)
	assert.Equal(t, "info", cfg.LogLevel)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.Equal(t, "0.08", rate.String())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, `
log_level: debug
llm:
  model: claude
  timeout: 5s
ordering:
  max_order_items: 8
database:
  driver: postgres
  url: postgres://bistro@localhost/bistro?sslmode=disable
server:
  port: 8181
sessions:
  idle_timeout: 10m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "claude", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 8, cfg.Ordering.MaxOrderItems)
	assert.Equal(t, 3, cfg.Ordering.UpsellingThreshold, "untouched keys keep defaults")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.Metrics.Port)
	assert.Equal(t, 10*time.Minute, cfg.Sessions.IdleTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("DATABASE_URL", "orders-test.db")
	t.Setenv("BISTRO_MODEL", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "google-key", cfg.LLM.GoogleAPIKey)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "orders-test.db", cfg.Database.URL)
	assert.Equal(t, "gemini", cfg.LLM.Model)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BISTRO_JWT_SECRET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BISTRO_JWT_SECRET") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "llm: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("DEBUG_MODE", "sometimes")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.LLM.Temperature = 3
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ordering.TaxRate = "abc"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ordering.TaxRate = "-0.1"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ordering.TaxRate = "0"
	require.NoError(t, cfg.Validate())
	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, *Default(), cfg)
}
