package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/pewinrate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "https://legulegu.com", cfg.Source.BaseURL)
	assert.Equal(t, "/api/stock-a/ttm-lyr", cfg.Source.Path)
	assert.Equal(t, 15*time.Second, cfg.SourceTimeout())
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, time.Hour, cfg.RefreshInterval())
	assert.Equal(t, []float64{90, 80}, cfg.Ranking.WinRateLevels)
	assert.False(t, cfg.Ranking.RejectInvalid)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Report.Rows)
	assert.Equal(t, []float64{90, 80}, cfg.Ranking.WinRateLevels)
}

func TestLoad_YAMLValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
source:
  base_url: "http://localhost:9000"
cache:
  ttl_seconds: -1
ranking:
  reject_invalid: true
  win_rate_levels: [95, 85, 70]
monitor:
  interval_seconds: 60
report:
  rows: 10
  table: true
`))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Source.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.True(t, cfg.Ranking.RejectInvalid)
	assert.Equal(t, []float64{95, 85, 70}, cfg.Ranking.WinRateLevels)
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 10, cfg.Report.Rows)
	assert.True(t, cfg.Report.Table)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PEWINRATE_SOURCE_URL", "http://mirror.local")
	t.Setenv("PEWINRATE_CACHE_TTL_SECONDS", "120")

	cfg, err := config.Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://mirror.local", cfg.Source.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
}

func TestLoad_BadEnvTTL(t *testing.T) {
	t.Setenv("PEWINRATE_CACHE_TTL_SECONDS", "soon")
	_, err := config.Load(writeConfig(t, "{}"))
	assert.Error(t, err)
}

func TestLoad_InvalidLevel(t *testing.T) {
	_, err := config.Load(writeConfig(t, "ranking:\n  win_rate_levels: [120]\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := config.Load(writeConfig(t, "source: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_NaNLevel(t *testing.T) {
	_, err := config.Load(writeConfig(t, "ranking:\n  win_rate_levels: [90, .nan]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "win_rate_levels")
}
