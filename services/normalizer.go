package services

import (
	"errors"
	"fmt"
	"math"

	"eshop-price-tracker/models"
)

// ErrInvalidQuote marks a quote that carries no usable pricing information.
// Such quotes are skipped and counted by the merge engine, never fatal.
var ErrInvalidQuote = errors.New("invalid quote")

// Normalize converts one raw regional quote into a canonical PriceRecord,
// deriving the effective price, discount percent and reference-currency
// values. refRate converts the quote's origin currency into the reference
// currency; resolving it (including the unknown-currency case) is the
// caller's job.
func Normalize(q *models.RawQuote, refRate float64) (models.PriceRecord, error) {
	if q.ListPrice <= 0 {
		return models.PriceRecord{}, fmt.Errorf("%w: non-positive list price %.2f for %q",
			ErrInvalidQuote, q.ListPrice, q.Title)
	}
	if q.Title == "" {
		return models.PriceRecord{}, fmt.Errorf("%w: empty title", ErrInvalidQuote)
	}

	effective := q.ListPrice
	onSale := q.SalePrice > 0 && q.SalePrice < q.ListPrice
	if onSale {
		effective = q.SalePrice
	}

	discount := 0
	if onSale {
		// Same semantics as Math.round: half rounds away from zero.
		discount = int(math.Round(100 * (1 - effective/q.ListPrice)))
	}

	return models.PriceRecord{
		Region:            q.Region,
		Currency:          q.Currency,
		ListPrice:         q.ListPrice,
		EffectivePrice:    effective,
		DiscountPercent:   discount,
		ListPriceRef:      q.ListPrice * refRate,
		EffectivePriceRef: effective * refRate,
		OnSale:            onSale,
	}, nil
}
