package discovery

import "testing"

func TestNormalizeVendor_Canonical(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"amazon.com", "Amazon"},
		{"Amazon", "Amazon"},
		{"AMAZON", "Amazon"},
		{"https://www.amazon.com/dp/B01", "Amazon"},
		{"wal-mart", "Walmart"},
		{"Best Buy", "Best Buy"},
		{"bestbuy.com", "Best Buy"},
		{"ebay", "eBay"},
		{"CVS", "CVS"},
	}
	for _, tt := range tests {
		if got := NormalizeVendor(tt.in); got != tt.expected {
			t.Errorf("NormalizeVendor(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizeVendor_Equivalence(t *testing.T) {
	// Different spellings of the same retailer must collapse to one vendor
	groups := [][]string{
		{"amazon.com", "Amazon", "AMAZON", "www.amazon.com"},
		{"walmart", "Walmart.com", "WAL-MART"},
		{"home depot", "homedepot.com", "Home Depot"},
	}
	for _, group := range groups {
		first := NormalizeVendor(group[0])
		for _, v := range group[1:] {
			if got := NormalizeVendor(v); got != first {
				t.Errorf("NormalizeVendor(%q) = %q, expected %q (same as %q)", v, got, first, group[0])
			}
		}
	}
}

func TestNormalizeVendor_Idempotent(t *testing.T) {
	inputs := []string{"amazon.com", "joe's corner store", "TARGET", "shopify.com", "Fresh-Mart 24/7"}
	for _, in := range inputs {
		once := NormalizeVendor(in)
		if twice := NormalizeVendor(once); twice != once {
			t.Errorf("NormalizeVendor not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeVendor_UnknownTitleCased(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"joe's hardware", "Joe's Hardware"},
		{"GREEN GROCER", "Green Grocer"},
		{"shopmart.com", "Shopmart"},
	}
	for _, tt := range tests {
		if got := NormalizeVendor(tt.in); got != tt.expected {
			t.Errorf("NormalizeVendor(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizeVendor_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "---"} {
		if got := NormalizeVendor(in); got != "" {
			t.Errorf("NormalizeVendor(%q) = %q, expected empty", in, got)
		}
	}
}
