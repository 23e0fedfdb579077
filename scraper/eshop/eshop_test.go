package eshop

import "testing"

func TestParseRawValue(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"59.99", 59.99},
		{"59,99", 59.99},
		{"1,299.00", 1299.00},
		{"1.299,00", 1299.00},
		{"12.499,50", 12499.50},
		{"7300", 7300},
		{"", 0},
		{"n/a", 0},
	}

	for _, tt := range tests {
		got := parseRawValue(tt.raw)
		if got != tt.want {
			t.Errorf("parseRawValue(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRegionTable(t *testing.T) {
	cur, ok := Currency("BR")
	if !ok || cur != "BRL" {
		t.Errorf("Currency(BR) = %q, %v; want BRL, true", cur, ok)
	}

	if _, ok := Currency("XX"); ok {
		t.Error("unknown region should not resolve")
	}

	for code, info := range Regions {
		if info.Family != "americas" && info.Family != "europe" {
			t.Errorf("%s: unexpected family %q", code, info.Family)
		}
		if info.Currency == "" {
			t.Errorf("%s: missing currency", code)
		}
	}
}
