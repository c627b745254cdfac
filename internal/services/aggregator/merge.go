// -----------------------------------------------------------------------
// Merge policies for provider fan-out
// -----------------------------------------------------------------------

package aggregator

import (
	"encoding/json"
	"strings"

	"github.com/ternarybob/merx/internal/models"
)

// MergeFirstSuccess returns the first successful response in provider
// order
func MergeFirstSuccess(responses []models.ProviderResponse) string {
	return responses[0].Text
}

// MergeByConfidence prefers the structured response with the highest
// self-reported confidence. Responses that are not JSON objects, or that
// carry no confidence field, rank below any that do; when nothing is
// structured the first success wins.
func MergeByConfidence(responses []models.ProviderResponse) string {
	best := responses[0]
	bestConfidence := -1.0
	for _, r := range responses {
		c, ok := extractConfidence(r.Text)
		if ok && c > bestConfidence {
			best = r
			bestConfidence = c
		}
	}
	return best.Text
}

func extractConfidence(text string) (float64, bool) {
	payload := ExtractJSON(text)
	if payload == "" {
		return 0, false
	}
	var parsed struct {
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil || parsed.Confidence == nil {
		return 0, false
	}
	return *parsed.Confidence, true
}

// ExtractJSON pulls the first JSON object out of a provider response,
// tolerating markdown code fences and surrounding prose. Returns "" when
// no object is present.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown fences if the whole body is fenced
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate
				}
				return ""
			}
		}
	}
	return ""
}
