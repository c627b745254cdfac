package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
)

// ClaudeService implements the AIProvider interface using the Anthropic
// Claude API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a new Claude provider instance
func NewClaudeService(config *common.ClaudeConfig, apiKey string, logger arbor.ILogger) (*ClaudeService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude provider (set via ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeService{
		config:    config,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", config.Model).
		Str("timeout", timeout.String()).
		Int("max_tokens", maxTokens).
		Msg("Claude provider initialized")

	return service, nil
}

// ID returns the stable provider identifier
func (s *ClaudeService) ID() string {
	return "claude"
}

// Complete generates text for a prompt
func (s *ClaudeService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", common.ErrInvalidInput)
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}
	return s.generate(ctx, messages)
}

// AnalyzeImage generates text describing the supplied image
func (s *ClaudeService) AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image data cannot be empty", common.ErrInvalidInput)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(
			anthropic.NewImageBlockBase64(mimeType, encoded),
			anthropic.NewTextBlock(prompt),
		),
	}
	return s.generate(ctx, messages)
}

// HealthCheck probes the Claude API with a minimal completion
func (s *ClaudeService) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("Reply with OK")),
	}
	response, err := s.generate(probeCtx, messages)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Claude health check failed")
		return false
	}
	return strings.TrimSpace(response) != ""
}

// Close releases client resources
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude provider")
	return nil
}

// generate encapsulates the Claude API message call
func (s *ClaudeService) generate(ctx context.Context, messages []anthropic.MessageParam) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  messages,
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	startTime := time.Now()
	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", common.WrapProviderError(s.ID(), err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("%w: claude: empty response", common.ErrProviderRejected)
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Str("duration", time.Since(startTime).String()).
		Msg("Claude completion finished")

	return response.String(), nil
}
