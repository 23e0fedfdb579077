package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCurrency is returned when a rate is requested for a currency
// code absent from the table. Callers decide whether to skip the region or
// substitute a rate; the table never picks one silently.
var ErrUnknownCurrency = errors.New("unknown currency")

// RateTable maps currency codes to fixed conversion rates into the
// reference currency. It is plain config data, injected where needed;
// updating a rate is a data change, not a code change.
type RateTable map[string]float64

// Rate returns the conversion rate for the given currency code.
func (t RateTable) Rate(code string) (float64, error) {
	rate, ok := t[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return rate, nil
}

// DefaultRates returns the built-in table of conversion rates into BRL.
func DefaultRates() RateTable {
	return RateTable{
		"USD": 5.80,
		"CAD": 4.20,
		"MXN": 0.32,
		"BRL": 1.00,
		"ARS": 0.0062,
		"CLP": 0.0062,
		"COP": 0.0014,
		"PEN": 1.55,
		"EUR": 6.20,
		"GBP": 7.20,
		"JPY": 0.039,
		"AUD": 3.60,
		"NZD": 3.40,
		"HKD": 0.74,
		"KRW": 0.0043,
		"ZAR": 0.31,
		"RUB": 0.063,
		"CHF": 6.50,
		"SEK": 0.54,
		"NOK": 0.53,
		"DKK": 0.83,
		"PLN": 1.45,
		"CZK": 0.25,
	}
}
