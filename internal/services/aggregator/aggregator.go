// -----------------------------------------------------------------------
// AI provider fan-out aggregator
// -----------------------------------------------------------------------

package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

// MergePolicy combines the successful responses of a fan-out into one
// answer. It is only invoked with at least one successful response.
type MergePolicy func(responses []models.ProviderResponse) string

// Aggregator fans a prompt out to every configured AI provider and merges
// whatever came back. A single failing provider never fails the fan-out;
// only a total wipeout does.
type Aggregator struct {
	providers []interfaces.AIProvider
	merge     MergePolicy
	logger    arbor.ILogger
}

// New creates an aggregator over the given providers. A nil merge policy
// defaults to confidence-weighted selection.
func New(providers []interfaces.AIProvider, merge MergePolicy, logger arbor.ILogger) *Aggregator {
	if merge == nil {
		merge = MergeByConfidence
	}
	return &Aggregator{
		providers: providers,
		merge:     merge,
		logger:    logger,
	}
}

// ProviderIDs returns the IDs of all configured providers
func (a *Aggregator) ProviderIDs() []string {
	ids := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		ids = append(ids, p.ID())
	}
	return ids
}

// Complete fans the prompt out to every provider concurrently
func (a *Aggregator) Complete(ctx context.Context, prompt string) models.AggregatedResult {
	return a.fanOut(ctx, func(ctx context.Context, p interfaces.AIProvider) (string, error) {
		return p.Complete(ctx, prompt)
	})
}

// AnalyzeImage fans an image analysis request out to every provider
func (a *Aggregator) AnalyzeImage(ctx context.Context, imageData []byte, mimeType, prompt string) models.AggregatedResult {
	return a.fanOut(ctx, func(ctx context.Context, p interfaces.AIProvider) (string, error) {
		return p.AnalyzeImage(ctx, imageData, mimeType, prompt)
	})
}

func (a *Aggregator) fanOut(ctx context.Context, call func(context.Context, interfaces.AIProvider) (string, error)) models.AggregatedResult {
	if len(a.providers) == 0 {
		return models.AggregatedResult{Err: common.ErrAllProvidersFailed}
	}

	// Single provider: no fan-out machinery, its answer is the answer
	if len(a.providers) == 1 {
		p := a.providers[0]
		text, err := call(ctx, p)
		if err != nil {
			a.logger.Warn().Err(err).Str("provider", p.ID()).Msg("Provider call failed")
			return models.AggregatedResult{Err: fmt.Errorf("%w: last failure: %v", common.ErrAllProvidersFailed, err)}
		}
		return models.AggregatedResult{Merged: text, Contributing: []string{p.ID()}}
	}

	responses := make([]models.ProviderResponse, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p interfaces.AIProvider) {
			defer wg.Done()
			text, err := call(ctx, p)
			responses[i] = models.ProviderResponse{ProviderID: p.ID(), Text: text, Err: err}
		}(i, p)
	}
	wg.Wait()

	var succeeded []models.ProviderResponse
	var lastErr error
	for _, r := range responses {
		if r.Succeeded() {
			succeeded = append(succeeded, r)
		} else {
			lastErr = r.Err
			a.logger.Warn().Err(r.Err).Str("provider", r.ProviderID).Msg("Provider call failed, continuing with remaining providers")
		}
	}

	if len(succeeded) == 0 {
		return models.AggregatedResult{Err: fmt.Errorf("%w: last failure: %v", common.ErrAllProvidersFailed, lastErr)}
	}

	contributing := make([]string, 0, len(succeeded))
	for _, r := range succeeded {
		contributing = append(contributing, r.ProviderID)
	}
	sort.Strings(contributing)

	return models.AggregatedResult{
		Merged:       a.merge(succeeded),
		Contributing: contributing,
	}
}
