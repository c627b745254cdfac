package common

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/merx",
				ResetOnStartup: false,
			},
		},
		Workers: WorkersConfig{
			Concurrency:  4,
			PollInterval: "500ms",
			JobTimeout:   "10m",
			RetentionAge: "168h",
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			RefreshSchedule: "0 6 * * *",
			EnqueueStagger:  "5s",
		},
		Discovery: DiscoveryConfig{
			MinVendorThreshold: 3,
			MaxTemplateStores:  5,
			StoreConcurrency:   3,
		},
		Scraper: ScraperConfig{
			BaseURL:       "http://localhost:11235",
			Timeout:       "30s",
			MaxConcurrent: 3,
			LocalFallback: true,
		},
		LLM: LLMConfig{
			DefaultProvider: "claude",
			RateLimit:       5,
		},
		Claude: ClaudeConfig{
			Enabled:     true,
			Model:       "claude-sonnet-4-20250514",
			Timeout:     "60s",
			MaxTokens:   8192,
			Temperature: 0.2,
		},
		OpenAI: OpenAIConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			Timeout:     "60s",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			Enabled:     false,
			Model:       "gemini-2.0-flash",
			Timeout:     "60s",
			Temperature: 0.2,
		},
		Ollama: OllamaConfig{
			Enabled: false,
			BaseURL: "http://localhost:11434/api",
			Model:   "llama3.1",
			Timeout: "120s",
		},
		Secrets: SecretsConfig{},
	}
}
