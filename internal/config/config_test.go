package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8501", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Server.ParseWorkers)
	assert.True(t, cfg.Scraper.Headless)
	assert.Equal(t, 2*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, filepath.Join("cache", "tournaments.csv"), cfg.TournamentsCSV())
	assert.Equal(t, filepath.Join("cache", "tournament_matches.csv"), cfg.MatchesCSV())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir: /data/cache
server:
  addr: ":9000"
  session_ttl: 30m
scraper:
  headless: false
  timeout: 45s
`), 0644))

	t.Setenv("ESALYTICS_ADDR", ":9100")
	t.Setenv("ESALYTICS_PARSE_WORKERS", "4")
	t.Setenv("ESALYTICS_PROXY", "socks5://127.0.0.1:9050")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/cache", cfg.CacheDir)
	assert.Equal(t, ":9100", cfg.Server.Addr, "env wins over file")
	assert.Equal(t, 4, cfg.Server.ParseWorkers)
	assert.Equal(t, 30*time.Minute, cfg.GetSessionTTL())
	assert.False(t, cfg.Scraper.Headless)
	assert.Equal(t, 45*time.Second, cfg.GetScraperTimeout())
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.Scraper.Proxy)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultUserAgent, cfg.Scraper.UserAgent)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [oops"), 0644))
	_, err := Load(bad)
	assert.Error(t, err)

	ttl := filepath.Join(dir, "ttl.yaml")
	require.NoError(t, os.WriteFile(ttl, []byte("server:\n  session_ttl: forever\n  parse_workers: 1\n"), 0644))
	_, err = Load(ttl)
	assert.ErrorContains(t, err, "session_ttl")

	t.Setenv("ESALYTICS_HEADLESS", "maybe")
	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "ESALYTICS_HEADLESS")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":7777"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", loaded.Server.Addr)
}
