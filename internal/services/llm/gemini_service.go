package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"google.golang.org/genai"
)

// GeminiService implements the AIProvider interface using the Google
// Gemini API.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiService creates a new Gemini provider instance
func NewGeminiService(ctx context.Context, config *common.GeminiConfig, apiKey string, logger arbor.ILogger) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Google API key is required for Gemini provider (set via GEMINI_API_KEY or gemini.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Str("timeout", timeout.String()).
		Msg("Gemini provider initialized")

	return service, nil
}

// ID returns the stable provider identifier
func (s *GeminiService) ID() string {
	return "gemini"
}

// Complete generates text for a prompt
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", common.ErrInvalidInput)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return s.generate(ctx, contents)
}

// AnalyzeImage generates text describing the supplied image
func (s *GeminiService) AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image data cannot be empty", common.ErrInvalidInput)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: parts},
	}
	return s.generate(ctx, contents)
}

// HealthCheck probes the Gemini API with a minimal completion
func (s *GeminiService) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Complete(probeCtx, "Reply with OK")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Gemini health check failed")
		return false
	}
	return strings.TrimSpace(response) != ""
}

// Close releases client resources
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini provider")
	s.client = nil
	return nil
}

// generate encapsulates the GenerateContent call
func (s *GeminiService) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if s.config.Temperature > 0 {
		config.Temperature = genai.Ptr(s.config.Temperature)
	}

	startTime := time.Now()
	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		return "", common.WrapProviderError(s.ID(), err)
	}

	// Iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("%w: gemini: empty response", common.ErrProviderRejected)
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Str("duration", time.Since(startTime).String()).
		Msg("Gemini completion finished")

	return response.String(), nil
}
