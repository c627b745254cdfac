package aggregator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/interfaces"
	"github.com/ternarybob/merx/internal/models"
)

type fakeProvider struct {
	id    string
	reply string
	err   error
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.reply, p.err
}

func (p *fakeProvider) AnalyzeImage(ctx context.Context, imageData []byte, mimeType, prompt string) (string, error) {
	return p.reply, p.err
}

func (p *fakeProvider) HealthCheck(ctx context.Context) bool { return p.err == nil }
func (p *fakeProvider) Close() error                         { return nil }

func TestAggregator_FanOut(t *testing.T) {
	t.Run("Failing provider is isolated", func(t *testing.T) {
		agg := New([]interfaces.AIProvider{
			&fakeProvider{id: "a", reply: `{"confidence": 0.7, "answer": "a"}`},
			&fakeProvider{id: "b", err: errors.New("rate limited")},
			&fakeProvider{id: "c", reply: `{"confidence": 0.9, "answer": "c"}`},
		}, nil, common.GetLogger())

		result := agg.Complete(context.Background(), "identify this")
		if result.Err != nil {
			t.Fatalf("Expected fan-out to succeed, got %v", result.Err)
		}
		if len(result.Contributing) != 2 || result.Contributing[0] != "a" || result.Contributing[1] != "c" {
			t.Errorf("Expected contributing [a c], got %v", result.Contributing)
		}
	})

	t.Run("All providers failing yields terminal error", func(t *testing.T) {
		agg := New([]interfaces.AIProvider{
			&fakeProvider{id: "a", err: errors.New("a timed out")},
			&fakeProvider{id: "b", err: errors.New("b rate limited")},
		}, nil, common.GetLogger())

		result := agg.Complete(context.Background(), "identify this")
		if !errors.Is(result.Err, common.ErrAllProvidersFailed) {
			t.Errorf("Expected ErrAllProvidersFailed, got %v", result.Err)
		}
		if !strings.Contains(result.Err.Error(), "b rate limited") {
			t.Errorf("Expected the last provider failure in the error, got %v", result.Err)
		}
		if len(result.Contributing) != 0 {
			t.Errorf("Expected no contributors, got %v", result.Contributing)
		}
	})

	t.Run("Single failing provider keeps its failure detail", func(t *testing.T) {
		agg := New([]interfaces.AIProvider{
			&fakeProvider{id: "only", err: errors.New("connection refused")},
		}, nil, common.GetLogger())

		result := agg.Complete(context.Background(), "identify this")
		if !errors.Is(result.Err, common.ErrAllProvidersFailed) {
			t.Errorf("Expected ErrAllProvidersFailed, got %v", result.Err)
		}
		if !strings.Contains(result.Err.Error(), "connection refused") {
			t.Errorf("Expected the provider failure in the error, got %v", result.Err)
		}
	})

	t.Run("Single provider bypasses merge", func(t *testing.T) {
		merged := false
		policy := func(responses []models.ProviderResponse) string {
			merged = true
			return responses[0].Text
		}
		agg := New([]interfaces.AIProvider{
			&fakeProvider{id: "only", reply: "plain answer"},
		}, policy, common.GetLogger())

		result := agg.Complete(context.Background(), "hello")
		if result.Err != nil {
			t.Fatalf("Expected success, got %v", result.Err)
		}
		if result.Merged != "plain answer" {
			t.Errorf("Expected the single provider's answer, got %q", result.Merged)
		}
		if merged {
			t.Error("Merge policy must not run for a single provider")
		}
	})

	t.Run("No providers configured", func(t *testing.T) {
		agg := New(nil, nil, common.GetLogger())
		result := agg.Complete(context.Background(), "hello")
		if !errors.Is(result.Err, common.ErrAllProvidersFailed) {
			t.Errorf("Expected ErrAllProvidersFailed, got %v", result.Err)
		}
	})
}

func TestMergeByConfidence(t *testing.T) {
	responses := []models.ProviderResponse{
		{ProviderID: "a", Text: `{"confidence": 0.4, "product_name": "cola"}`},
		{ProviderID: "b", Text: `{"confidence": 0.95, "product_name": "diet cola"}`},
		{ProviderID: "c", Text: "unstructured prose"},
	}
	got := MergeByConfidence(responses)
	if got != responses[1].Text {
		t.Errorf("Expected highest-confidence response, got %q", got)
	}
}

func TestMergeByConfidence_NoStructured(t *testing.T) {
	responses := []models.ProviderResponse{
		{ProviderID: "a", Text: "first prose"},
		{ProviderID: "b", Text: "second prose"},
	}
	if got := MergeByConfidence(responses); got != "first prose" {
		t.Errorf("Expected first success when nothing is structured, got %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", `Sure! Here it is: {"a": 1} hope that helps`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"brace in string", `{"a": "}"}`, `{"a": "}"}`},
		{"no object", "no json here", ""},
		{"unbalanced", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.expected {
				t.Errorf("ExtractJSON(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}
