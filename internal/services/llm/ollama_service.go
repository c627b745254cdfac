package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
)

// ollamaGenerateRequest is the request body for the Ollama generate API
type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64-encoded
	Stream bool     `json:"stream"`
}

// ollamaGenerateResponse is the non-streaming generate response
type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// OllamaService implements the AIProvider interface against a local
// Ollama server. All calls stay on localhost; no cloud credentials.
type OllamaService struct {
	config     *common.OllamaConfig
	logger     arbor.ILogger
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewOllamaService creates a new local Ollama provider instance
func NewOllamaService(config *common.OllamaConfig, logger arbor.ILogger) (*OllamaService, error) {
	if config.Model == "" {
		config.Model = "llama3.1"
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	service := &OllamaService{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		timeout:    timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Str("base_url", baseURL).
		Msg("Ollama provider initialized")

	return service, nil
}

// ID returns the stable provider identifier
func (s *OllamaService) ID() string {
	return "ollama"
}

// Complete generates text for a prompt
func (s *OllamaService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", common.ErrInvalidInput)
	}
	return s.generate(ctx, ollamaGenerateRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		Stream: false,
	})
}

// AnalyzeImage generates text describing the supplied image. Requires a
// multimodal model to be configured (e.g. llava).
func (s *OllamaService) AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: image data cannot be empty", common.ErrInvalidInput)
	}
	return s.generate(ctx, ollamaGenerateRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	})
}

// HealthCheck probes the local server's version endpoint
func (s *OllamaService) HealthCheck(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, s.baseURL+"/version", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ollama health check failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases client resources
func (s *OllamaService) Close() error {
	s.logger.Debug().Msg("Closing Ollama provider")
	return nil
}

// generate posts one non-streaming generate request
func (s *OllamaService) generate(ctx context.Context, reqBody ollamaGenerateRequest) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, s.baseURL+"/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", common.WrapProviderError(s.ID(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", common.WrapProviderError(s.ID(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: ollama: status %d: %s", common.ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", fmt.Errorf("%w: ollama: invalid response: %v", common.ErrProviderRejected, err)
	}
	if strings.TrimSpace(genResp.Response) == "" {
		return "", fmt.Errorf("%w: ollama: empty response", common.ErrProviderRejected)
	}

	s.logger.Debug().
		Int("response_length", len(genResp.Response)).
		Str("duration", time.Since(startTime).String()).
		Msg("Ollama completion finished")

	return genResp.Response, nil
}
