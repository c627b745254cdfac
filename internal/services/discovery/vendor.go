// -----------------------------------------------------------------------
// Vendor name normalization
// -----------------------------------------------------------------------

package discovery

import (
	"strings"
	"unicode"
)

// canonicalVendors maps folded vendor keys to their display names. Domains
// and common aliases of major retailers collapse onto one canonical name so
// "amazon.com", "AMAZON" and "Amazon" are the same vendor.
var canonicalVendors = map[string]string{
	"amazon":       "Amazon",
	"amazoncom":    "Amazon",
	"amazoncomau":  "Amazon",
	"walmart":      "Walmart",
	"walmartcom":   "Walmart",
	"target":       "Target",
	"targetcom":    "Target",
	"ebay":         "eBay",
	"ebaycom":      "eBay",
	"bestbuy":      "Best Buy",
	"bestbuycom":   "Best Buy",
	"costco":       "Costco",
	"costcocom":    "Costco",
	"kroger":       "Kroger",
	"krogercom":    "Kroger",
	"safeway":      "Safeway",
	"safewaycom":   "Safeway",
	"wholefoods":   "Whole Foods",
	"homedepot":    "Home Depot",
	"homedepotcom": "Home Depot",
	"lowes":        "Lowe's",
	"lowescom":     "Lowe's",
	"woolworths":   "Woolworths",
	"coles":        "Coles",
	"colescomau":   "Coles",
	"aldi":         "Aldi",
	"walgreens":    "Walgreens",
	"cvs":          "CVS",
	"instacart":    "Instacart",
}

// NormalizeVendor canonicalizes a discovered vendor name. Normalization is
// idempotent and insensitive to case, punctuation and domain suffixes:
// known retailers map to a canonical display name, unknown vendors are
// title-cased. Returns "" for names with no letters or digits.
func NormalizeVendor(raw string) string {
	key := foldVendor(raw)
	if key == "" {
		return ""
	}
	if canonical, ok := canonicalVendors[key]; ok {
		return canonical
	}
	return titleCaseVendor(raw)
}

// foldVendor reduces a vendor name to lowercase letters and digits,
// stripping scheme, www and a trailing top-level-domain-free form so both
// "Amazon.com" and "amazon" fold to comparable keys
func foldVendor(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// titleCaseVendor cleans and title-cases an unknown vendor name
func titleCaseVendor(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s = strings.TrimPrefix(s, "www.")
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return ""
	}

	// Drop a trailing TLD word left over from a domain-shaped name
	if len(words) > 1 {
		switch strings.ToLower(words[len(words)-1]) {
		case "com", "net", "org", "au", "co", "uk", "ca":
			words = words[:len(words)-1]
		}
	}

	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
