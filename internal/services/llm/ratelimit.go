package llm

import (
	"context"

	"github.com/ternarybob/merx/internal/interfaces"
	"golang.org/x/time/rate"
)

// limitedProvider wraps an AIProvider with a per-provider rate limiter so
// fan-outs and scheduled sweeps stay inside vendor rate limits
type limitedProvider struct {
	inner   interfaces.AIProvider
	limiter *rate.Limiter
}

// WithRateLimit wraps a provider with a requests-per-second limit.
// A non-positive limit returns the provider unwrapped.
func WithRateLimit(provider interfaces.AIProvider, rps int) interfaces.AIProvider {
	if rps <= 0 {
		return provider
	}
	return &limitedProvider{
		inner:   provider,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (p *limitedProvider) ID() string {
	return p.inner.ID()
}

func (p *limitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}

func (p *limitedProvider) AnalyzeImage(ctx context.Context, data []byte, mimeType string, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.AnalyzeImage(ctx, data, mimeType, prompt)
}

func (p *limitedProvider) HealthCheck(ctx context.Context) bool {
	return p.inner.HealthCheck(ctx)
}

func (p *limitedProvider) Close() error {
	return p.inner.Close()
}
