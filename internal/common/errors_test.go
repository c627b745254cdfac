package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection refused" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return false }

var _ net.Error = fakeNetError{}

func TestWrapProviderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrProviderUnreachable},
		{"net error", fakeNetError{}, ErrProviderUnreachable},
		{"wrapped net error", fmt.Errorf("dial: %w", fakeNetError{}), ErrProviderUnreachable},
		{"api error", errors.New("400 bad request"), ErrProviderRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapProviderError("claude", tt.err)
			if !errors.Is(got, tt.expected) {
				t.Errorf("Expected %v classification, got %v", tt.expected, got)
			}
		})
	}

	if WrapProviderError("claude", nil) != nil {
		t.Error("Nil error must stay nil")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{fmt.Errorf("%w: job x", ErrCancelled), "Cancelled"},
		{fmt.Errorf("%w: job x", ErrJobTimeout), "The job took too long and was stopped"},
		{fmt.Errorf("%w: empty query", ErrInvalidInput), "The request was missing required information"},
		{ErrAllProvidersFailed, "No AI provider was able to answer"},
		{fmt.Errorf("%w: all tiers", ErrDiscoveryExhausted), "No prices could be found right now"},
		{errors.New("raw panic text"), "Something went wrong"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.expected {
			t.Errorf("UserMessage(%v) = %q, expected %q", tt.err, got, tt.expected)
		}
	}
}

func TestDurationHelpers_Fallbacks(t *testing.T) {
	w := &WorkersConfig{PollInterval: "nonsense", JobTimeout: "", RetentionAge: "-1h"}
	if w.PollIntervalDuration() != 500*time.Millisecond {
		t.Errorf("Expected poll fallback 500ms, got %v", w.PollIntervalDuration())
	}
	if w.JobTimeoutDuration() != 10*time.Minute {
		t.Errorf("Expected timeout fallback 10m, got %v", w.JobTimeoutDuration())
	}
	if w.RetentionAgeDuration() != 7*24*time.Hour {
		t.Errorf("Expected retention fallback 168h, got %v", w.RetentionAgeDuration())
	}

	w2 := &WorkersConfig{PollInterval: "250ms", JobTimeout: "5m", RetentionAge: "48h"}
	if w2.PollIntervalDuration() != 250*time.Millisecond || w2.JobTimeoutDuration() != 5*time.Minute {
		t.Error("Expected configured durations to parse")
	}
}
