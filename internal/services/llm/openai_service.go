package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
)

// OpenAIService implements the AIProvider interface using the OpenAI
// chat completions API.
type OpenAIService struct {
	config  *common.OpenAIConfig
	logger  arbor.ILogger
	client  openai.Client
	timeout time.Duration
}

// NewOpenAIService creates a new OpenAI provider instance
func NewOpenAIService(config *common.OpenAIConfig, apiKey string, logger arbor.ILogger) (*OpenAIService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required for OpenAI provider (set via OPENAI_API_KEY or openai.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	service := &OpenAIService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Str("timeout", timeout.String()).
		Msg("OpenAI provider initialized")

	return service, nil
}

// ID returns the stable provider identifier
func (s *OpenAIService) ID() string {
	return "openai"
}

// Complete generates text for a prompt
func (s *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", common.ErrInvalidInput)
	}

	return s.generate(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

// AnalyzeImage generates text describing the supplied image via a data URL
func (s *OpenAIService) AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image data cannot be empty", common.ErrInvalidInput)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	}

	return s.generate(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(parts),
	})
}

// HealthCheck probes the OpenAI API with a minimal completion
func (s *OpenAIService) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generate(probeCtx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("Reply with OK"),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("OpenAI health check failed")
		return false
	}
	return strings.TrimSpace(response) != ""
}

// Close releases client resources
func (s *OpenAIService) Close() error {
	s.logger.Debug().Msg("Closing OpenAI provider")
	return nil
}

// generate encapsulates the chat completion call
func (s *OpenAIService) generate(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.config.Model),
		Messages: messages,
	}
	if s.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(s.config.Temperature))
	}
	if s.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(s.config.MaxTokens))
	}

	startTime := time.Now()
	completion, err := s.client.Chat.Completions.New(timeoutCtx, params)
	if err != nil {
		return "", common.WrapProviderError(s.ID(), err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no completion choices returned", common.ErrProviderRejected)
	}

	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: openai: empty response", common.ErrProviderRejected)
	}

	s.logger.Debug().
		Int("response_length", len(content)).
		Str("duration", time.Since(startTime).String()).
		Msg("OpenAI completion finished")

	return content, nil
}
