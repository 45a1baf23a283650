// Package common provides shared utilities for vin-stock-ai
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the server
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	LLM         LLMConfig       `toml:"llm"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Updater     UpdaterConfig   `toml:"updater"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the embedded database location.
type StorageConfig struct {
	Path string `toml:"path"` // sqlite file, or ":memory:"
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Finnhub    FinnhubConfig    `toml:"finnhub"`
	OpenRouter OpenRouterConfig `toml:"openrouter"`
	Gemini     GeminiConfig     `toml:"gemini"`
}

// FinnhubConfig holds Finnhub API configuration
type FinnhubConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FinnhubConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// OpenRouterConfig holds OpenRouter chat completion configuration
type OpenRouterConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Referer string `toml:"referer"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *OpenRouterConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LLMConfig selects the completion provider used by the analysis features.
type LLMConfig struct {
	Provider string `toml:"provider"` // "openrouter" or "gemini"
}

// DashboardConfig holds dashboard cache settings
type DashboardConfig struct {
	CacheTTL string `toml:"cache_ttl"`
}

// GetCacheTTL returns the dashboard freshness window
func (c *DashboardConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, FreshnessDashboard)
}

// UpdaterConfig controls the batch quote/news/history updater.
type UpdaterConfig struct {
	Enabled      bool   `toml:"enabled"`
	Interval     string `toml:"interval"`
	RequestDelay string `toml:"request_delay"`
}

// GetInterval returns how often the scheduler runs the updater
func (c *UpdaterConfig) GetInterval() time.Duration {
	return parseDuration(c.Interval, 15*time.Minute)
}

// GetRequestDelay returns the pause between upstream calls
func (c *UpdaterConfig) GetRequestDelay() time.Duration {
	return parseDuration(c.RequestDelay, 100*time.Millisecond)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
	MaxAgeDays int      `toml:"max_age_days"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/vinstock.db",
		},
		Clients: ClientsConfig{
			Finnhub: FinnhubConfig{
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 30,
				Timeout:   "30s",
			},
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "meta-llama/llama-3.1-8b-instruct:free",
				Timeout: "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		LLM: LLMConfig{
			Provider: "openrouter",
		},
		Dashboard: DashboardConfig{
			CacheTTL: "10s",
		},
		Updater: UpdaterConfig{
			Enabled:      false,
			Interval:     "15m",
			RequestDelay: "100ms",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "./logs/vinstock.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first so its values
// participate in the overrides; existing environment variables win.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	config.LLM.Provider = normalizeProvider(config.LLM.Provider)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VINSTOCK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("VINSTOCK_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("VINSTOCK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("VINSTOCK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("VINSTOCK_DB_PATH"); path != "" {
		config.Storage.Path = path
	}

	if p := os.Getenv("VINSTOCK_LLM_PROVIDER"); p != "" {
		config.LLM.Provider = p
	}

	// Vendor keys use the names the hosted functions were deployed with
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		config.Clients.Finnhub.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		config.Clients.OpenRouter.APIKey = v
	}
	if v := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// LLMAPIKey returns the key for the configured completion provider.
func (c *Config) LLMAPIKey() string {
	if c.LLM.Provider == ProviderGemini {
		return c.Clients.Gemini.APIKey
	}
	return c.Clients.OpenRouter.APIKey
}

// LLM provider names
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

func normalizeProvider(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case ProviderGemini, "google":
		return ProviderGemini
	default:
		return ProviderOpenRouter
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
