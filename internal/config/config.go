// Package config loads esalytics settings from ~/.esalytics/config.yaml and
// ESALYTICS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration. Durations are kept as strings in YAML
// ("30m", "45s") and read through the getters.
type Config struct {
	DBPath   string        `yaml:"db_path"`
	CacheDir string        `yaml:"cache_dir"`
	Server   ServerConfig  `yaml:"server"`
	Scraper  ScraperConfig `yaml:"scraper"`
}

// ServerConfig configures the dashboard.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	UploadDir    string `yaml:"upload_dir"`
	SessionTTL   string `yaml:"session_ttl"`
	ParseWorkers int    `yaml:"parse_workers"`
	// MaxUploadMB bounds one multipart upload request.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// ScraperConfig configures the headless browser scrapers.
type ScraperConfig struct {
	Headless    bool   `yaml:"headless"`
	Timeout     string `yaml:"timeout"`
	Concurrency int    `yaml:"concurrency"`
	CookieFile  string `yaml:"cookie_file"`
	UserAgent   string `yaml:"user_agent"`
	// Proxy is passed to Chromium as --proxy-server, e.g. "socks5://127.0.0.1:9050".
	Proxy string `yaml:"proxy"`
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Dir returns ~/.esalytics, or ./.esalytics when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".esalytics")
}

// DefaultPath is the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DBPath:   filepath.Join(Dir(), "esalytics.db"),
		CacheDir: "cache",
		Server: ServerConfig{
			Addr:         ":8501",
			UploadDir:    filepath.Join(os.TempDir(), "esalytics-uploads"),
			SessionTTL:   "2h",
			ParseWorkers: 2,
			MaxUploadMB:  2048,
		},
		Scraper: ScraperConfig{
			Headless:    true,
			Timeout:     "30s",
			Concurrency: 2,
			CookieFile:  "cookies.json",
			UserAgent:   DefaultUserAgent,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) applyEnvOverrides() error {
	c.DBPath = getEnv("ESALYTICS_DB", c.DBPath)
	c.CacheDir = getEnv("ESALYTICS_CACHE_DIR", c.CacheDir)
	c.Server.Addr = getEnv("ESALYTICS_ADDR", c.Server.Addr)
	c.Server.UploadDir = getEnv("ESALYTICS_UPLOAD_DIR", c.Server.UploadDir)
	c.Server.SessionTTL = getEnv("ESALYTICS_SESSION_TTL", c.Server.SessionTTL)
	c.Scraper.Timeout = getEnv("ESALYTICS_SCRAPER_TIMEOUT", c.Scraper.Timeout)
	c.Scraper.CookieFile = getEnv("ESALYTICS_COOKIE_FILE", c.Scraper.CookieFile)
	c.Scraper.UserAgent = getEnv("ESALYTICS_USER_AGENT", c.Scraper.UserAgent)
	c.Scraper.Proxy = getEnv("ESALYTICS_PROXY", c.Scraper.Proxy)

	if v := os.Getenv("ESALYTICS_PARSE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ESALYTICS_PARSE_WORKERS: %w", err)
		}
		c.Server.ParseWorkers = n
	}
	if v := os.Getenv("ESALYTICS_SCRAPER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ESALYTICS_SCRAPER_CONCURRENCY: %w", err)
		}
		c.Scraper.Concurrency = n
	}
	if v := os.Getenv("ESALYTICS_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ESALYTICS_HEADLESS: %w", err)
		}
		c.Scraper.Headless = b
	}
	return nil
}

// Validate checks numeric limits and duration syntax.
func (c *Config) Validate() error {
	if c.Server.ParseWorkers < 1 {
		return fmt.Errorf("server.parse_workers must be at least 1, got %d", c.Server.ParseWorkers)
	}
	if c.Scraper.Concurrency < 1 {
		return fmt.Errorf("scraper.concurrency must be at least 1, got %d", c.Scraper.Concurrency)
	}
	if _, err := time.ParseDuration(c.Server.SessionTTL); err != nil {
		return fmt.Errorf("server.session_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Scraper.Timeout); err != nil {
		return fmt.Errorf("scraper.timeout: %w", err)
	}
	return nil
}

// GetSessionTTL returns the dashboard session idle TTL.
func (c *Config) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Server.SessionTTL)
	if err != nil {
		return 2 * time.Hour
	}
	return d
}

// GetScraperTimeout returns the page navigation timeout.
func (c *Config) GetScraperTimeout() time.Duration {
	d, err := time.ParseDuration(c.Scraper.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TournamentsCSV is the tournament list cache.
func (c *Config) TournamentsCSV() string { return filepath.Join(c.CacheDir, "tournaments.csv") }

// MatchesCSV is the tournament match listing cache.
func (c *Config) MatchesCSV() string { return filepath.Join(c.CacheDir, "tournament_matches.csv") }
