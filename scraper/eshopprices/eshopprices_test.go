package eshopprices

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"$59.99", 59.99},
		{"R$ 299,00", 299.00},
		{"£1,299.00", 1299.00},
		{"R$ 1.299,00", 1299.00},
		{"", 0},
		{"Free", 0},
	}

	for _, tt := range tests {
		got := parsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("parsePrice(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCurrencyFor(t *testing.T) {
	if cur, ok := currencyFor("DE"); !ok || cur != "EUR" {
		t.Errorf("currencyFor(DE) = %q, %v; want EUR, true", cur, ok)
	}
	if _, ok := currencyFor("JP"); ok {
		t.Error("unmapped country should not resolve")
	}
}
