package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
)

// BuildProviders constructs every enabled AI provider from configuration.
// API keys resolve KV-first with config fallback; each provider is wrapped
// with the configured rate limit. At least one provider must be enabled.
func BuildProviders(ctx context.Context, config *common.Config, kv interfaces.KeyValueStorage, secrets interfaces.SecretStore, logger arbor.ILogger) ([]interfaces.AIProvider, error) {
	var providers []interfaces.AIProvider

	if config.Claude.Enabled {
		apiKey, err := common.ResolveAPIKey(ctx, kv, secrets, "anthropic_api_key", config.Claude.APIKey)
		if err != nil {
			return nil, fmt.Errorf("claude: %w", err)
		}
		service, err := NewClaudeService(&config.Claude, apiKey, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, WithRateLimit(service, config.LLM.RateLimit))
	}

	if config.OpenAI.Enabled {
		apiKey, err := common.ResolveAPIKey(ctx, kv, secrets, "openai_api_key", config.OpenAI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		service, err := NewOpenAIService(&config.OpenAI, apiKey, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, WithRateLimit(service, config.LLM.RateLimit))
	}

	if config.Gemini.Enabled {
		apiKey, err := common.ResolveAPIKey(ctx, kv, secrets, "gemini_api_key", config.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		service, err := NewGeminiService(ctx, &config.Gemini, apiKey, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, WithRateLimit(service, config.LLM.RateLimit))
	}

	if config.Ollama.Enabled {
		service, err := NewOllamaService(&config.Ollama, logger)
		if err != nil {
			return nil, err
		}
		// Local server, no vendor rate limit
		providers = append(providers, service)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no AI providers enabled; enable at least one of claude, openai, gemini, ollama")
	}

	logger.Info().
		Int("provider_count", len(providers)).
		Str("default_provider", config.LLM.DefaultProvider).
		Msg("AI providers initialized")

	return providers, nil
}

// DefaultProvider returns the provider matching the configured default, or
// the first provider when no match exists
func DefaultProvider(providers []interfaces.AIProvider, defaultID string) interfaces.AIProvider {
	for _, p := range providers {
		if p.ID() == defaultID {
			return p
		}
	}
	if len(providers) > 0 {
		return providers[0]
	}
	return nil
}
