package common

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error kinds for job and discovery failures. Callers classify with
// errors.Is; the concrete cause stays wrapped for diagnostics.
var (
	// ErrProviderUnreachable covers network, DNS and timeout failures
	// talking to an AI or scrape backend
	ErrProviderUnreachable = errors.New("provider unreachable")

	// ErrProviderRejected covers 4xx and structured errors returned by a provider
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrInvalidInput covers malformed URLs, empty queries and missing job input
	ErrInvalidInput = errors.New("invalid input")

	// ErrAllProvidersFailed is returned by the aggregator when zero of N providers succeeded
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrDiscoveryExhausted is returned when every attempted tier errored or
	// yielded nothing and no tier was skipped as unnecessary
	ErrDiscoveryExhausted = errors.New("discovery exhausted")

	// ErrCancelled marks user-requested cancellation, not a system failure
	ErrCancelled = errors.New("cancelled")

	// ErrJobTimeout marks a job that exceeded its hard execution ceiling
	ErrJobTimeout = errors.New("job timeout exceeded")
)

// WrapProviderError classifies a raw provider call failure into the
// taxonomy while preserving the underlying cause
func WrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrProviderUnreachable, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrProviderUnreachable, provider, err)
	}

	return fmt.Errorf("%w: %s: %v", ErrProviderRejected, provider, err)
}

// UserMessage maps an error to a short non-technical summary suitable for a
// job's error field. Technical detail stays in the job's structured logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrJobTimeout):
		return "The job took too long and was stopped"
	case errors.Is(err, ErrInvalidInput):
		return "The request was missing required information"
	case errors.Is(err, ErrAllProvidersFailed):
		return "No AI provider was able to answer"
	case errors.Is(err, ErrDiscoveryExhausted):
		return "No prices could be found right now"
	case errors.Is(err, ErrProviderUnreachable):
		return "A backend service could not be reached"
	case errors.Is(err, ErrProviderRejected):
		return "A backend service rejected the request"
	default:
		return "Something went wrong"
	}
}
