// -----------------------------------------------------------------------
// Provider fan-out result types
// -----------------------------------------------------------------------

package models

// ProviderResponse is the result of one AI provider call within a fan-out.
// Exactly one of Text/Err is set.
type ProviderResponse struct {
	ProviderID string
	Text       string
	Err        error
}

// Succeeded reports whether the provider contributed a usable response
func (r ProviderResponse) Succeeded() bool {
	return r.Err == nil
}

// AggregatedResult merges the non-error responses of a provider fan-out.
// Err is set only when zero providers succeeded.
type AggregatedResult struct {
	Merged       string
	Contributing []string
	Err          error
}
