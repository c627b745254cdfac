package interfaces

import (
	"context"
)

// AIProvider is the uniform capability contract over heterogeneous AI
// backends. Implementations wrap one vendor's wire protocol (Claude,
// OpenAI, Gemini, local Ollama) and must carry an explicit timeout on
// every network call.
type AIProvider interface {
	// ID returns the stable provider identifier, e.g. "claude"
	ID() string

	// Complete generates text for a prompt
	Complete(ctx context.Context, prompt string) (string, error)

	// AnalyzeImage generates text describing the supplied image
	AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error)

	// HealthCheck reports whether the backend is reachable. It never
	// returns an error; failures are logged and reported as false.
	HealthCheck(ctx context.Context) bool

	// Close releases client resources
	Close() error
}
