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

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 3.0, cfg.Notion.RPS, 0.001)
	assert.Equal(t, "geocode_cache.json", cfg.Geocode.CachePath)
	assert.InDelta(t, 1.0, cfg.Geocode.RPS, 0.001)
	assert.Equal(t, 1, cfg.Geocode.Burst)
	assert.Equal(t, 4, cfg.Geocode.MaxWorkers)
	assert.Equal(t, 20, cfg.Geocode.AutosaveEvery)
	assert.Equal(t, "widgets", cfg.Widget.OutputDir)
	assert.Equal(t, "clients_store.json", cfg.Widget.StorePath)
	assert.InDelta(t, 49.0, cfg.Widget.CenterLat, 0.001)
	assert.InDelta(t, 31.0, cfg.Widget.CenterLng, 0.001)
	assert.Equal(t, "БАЗА", cfg.Import.Source)
	assert.Equal(t, "dedupe_archive.db", cfg.Dedupe.ArchiveDB)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
geocode:
  rps: 0.5
  max_workers: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Geocode.RPS, 0.001)
	assert.Equal(t, 8, cfg.Geocode.MaxWorkers)
	// Defaults still apply for unset values
	assert.Equal(t, "geocode_cache.json", cfg.Geocode.CachePath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BAZA_LOG_LEVEL", "warn")
	t.Setenv("BAZA_NOTION_TOKEN", "ntn_secret")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "ntn_secret", cfg.Notion.Token)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("BAZA_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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

// validDefaults returns a Config with the fields validation looks at.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Notion.Token = "ntn_token"
	cfg.Notion.ClientDB = "client-db-id"
	cfg.Geocode.RPS = 1
	cfg.Geocode.MaxWorkers = 4
	cfg.Server.Port = 8080
	cfg.Notify.WebhookURL = "https://chat.example.com/hook"
	return cfg
}

func TestValidateGeocode_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("geocode"))
}

func TestValidateGeocode_MissingNotion(t *testing.T) {
	cfg := validDefaults()
	cfg.Notion.Token = ""
	cfg.Notion.ClientDB = ""

	err := cfg.Validate("geocode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.client_db is required")
}

func TestValidateGeocode_WorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Geocode.MaxWorkers = 0
	err := cfg.Validate("geocode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.max_workers must be between 1 and 32")

	cfg.Geocode.MaxWorkers = 33
	assert.Error(t, cfg.Validate("geocode"))

	cfg.Geocode.MaxWorkers = 32
	assert.NoError(t, cfg.Validate("geocode"))
}

func TestValidateGeocode_RateBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocode.RPS = 0

	err := cfg.Validate("widget")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocode.rps must be > 0")
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateNotify_MissingWebhook(t *testing.T) {
	cfg := validDefaults()
	cfg.Notify.WebhookURL = ""

	err := cfg.Validate("notify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.webhook_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
