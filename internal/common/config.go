package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Workers     WorkersConfig   `toml:"workers"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Discovery   DiscoveryConfig `toml:"discovery"`
	Scraper     ScraperConfig   `toml:"scraper"`
	LLM         LLMConfig       `toml:"llm"`
	Claude      ClaudeConfig    `toml:"claude"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Ollama      OllamaConfig    `toml:"ollama"`
	Secrets     SecretsConfig   `toml:"secrets"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// WorkersConfig controls the background job worker pool
type WorkersConfig struct {
	Concurrency  int    `toml:"concurrency" validate:"gte=1"` // Number of concurrent workers
	PollInterval string `toml:"poll_interval"`                // e.g. "500ms" - how often idle workers poll for jobs
	JobTimeout   string `toml:"job_timeout"`                  // e.g. "10m" - hard ceiling per job
	RetentionAge string `toml:"retention_age"`                // e.g. "168h" - terminal jobs older than this are swept
}

// SchedulerConfig controls the cron-driven refresh sweep
type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	RefreshSchedule string `toml:"refresh_schedule"` // Cron expression, e.g. "0 6 * * *"
	EnqueueStagger  string `toml:"enqueue_stagger"`  // Delay between enqueued jobs, e.g. "5s"
}

// DiscoveryConfig holds tunable policy for the tiered discovery engine
type DiscoveryConfig struct {
	MinVendorThreshold int `toml:"min_vendor_threshold" validate:"gte=1"` // Distinct vendors required before escalation stops
	MaxTemplateStores  int `toml:"max_template_stores" validate:"gte=1"`  // Max template stores scraped per discovery
	StoreConcurrency   int `toml:"store_concurrency" validate:"gte=1"`    // Parallel template scrapes per discovery
}

// ScraperConfig configures the crawl4ai sidecar client and local fallback
type ScraperConfig struct {
	BaseURL       string `toml:"base_url"`       // Sidecar base URL, e.g. "http://localhost:11235"
	Timeout       string `toml:"timeout"`        // Per-request timeout, e.g. "30s"
	MaxConcurrent int    `toml:"max_concurrent"` // Batch scrape concurrency
	LocalFallback bool   `toml:"local_fallback"` // Use headless Chrome when the sidecar is unreachable
}

// LLMConfig holds cross-provider settings
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "claude", "openai", "gemini", "ollama"
	RateLimit       int    `toml:"rate_limit"`       // Requests per second per provider
}

type ClaudeConfig struct {
	Enabled     bool    `toml:"enabled"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type OpenAIConfig struct {
	Enabled     bool    `toml:"enabled"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	Enabled     bool    `toml:"enabled"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type OllamaConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"` // e.g. "http://localhost:11434/api"
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// SecretsConfig configures the secret store used to seal stored API keys
type SecretsConfig struct {
	Key string `toml:"key"` // 32-byte key, hex encoded; empty disables sealing
}

// LoadConfig loads configuration with the resolution order:
// defaults -> config file -> environment variables
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies MERX_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MERX_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("MERX_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("MERX_SCRAPER_URL"); v != "" {
		config.Scraper.BaseURL = v
	}
	if v := os.Getenv("MERX_WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Workers.Concurrency = n
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.OpenAI.APIKey == "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("MERX_SECRETS_KEY"); v != "" {
		config.Secrets.Key = v
	}
}

// Validate checks structural constraints and duration strings
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"workers.poll_interval":     c.Workers.PollInterval,
		"workers.job_timeout":       c.Workers.JobTimeout,
		"workers.retention_age":     c.Workers.RetentionAge,
		"scheduler.enqueue_stagger": c.Scheduler.EnqueueStagger,
		"scraper.timeout":           c.Scraper.Timeout,
		"claude.timeout":            c.Claude.Timeout,
		"openai.timeout":            c.OpenAI.Timeout,
		"gemini.timeout":            c.Gemini.Timeout,
		"ollama.timeout":            c.Ollama.Timeout,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q: %w", key, value, err)
		}
	}

	return nil
}

// PollIntervalDuration returns the parsed worker poll interval
func (c *WorkersConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// JobTimeoutDuration returns the parsed hard job ceiling
func (c *WorkersConfig) JobTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.JobTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// RetentionAgeDuration returns the parsed terminal-job retention window
func (c *WorkersConfig) RetentionAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.RetentionAge)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// EnqueueStaggerDuration returns the parsed stagger between scheduled enqueues
func (c *SchedulerConfig) EnqueueStaggerDuration() time.Duration {
	d, err := time.ParseDuration(c.EnqueueStagger)
	if err != nil || d < 0 {
		return 5 * time.Second
	}
	return d
}

// TimeoutDuration returns the parsed scrape request timeout
func (c *ScraperConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
