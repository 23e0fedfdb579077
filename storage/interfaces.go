package storage

import "eshop-price-tracker/models"

// IndexWriter is the interface any merged-index backend must satisfy.
type IndexWriter interface {
	Write(games []*models.GameEntity) error
	Close() error
}

// IndexLoader restores a previously persisted index so a run can merge
// incrementally on top of it.
type IndexLoader interface {
	Load() ([]*models.GameEntity, error)
}

// RawQuoteWriter is the interface for persisting unprocessed fetched quotes.
type RawQuoteWriter interface {
	WriteRaw(quotes []*models.RawQuote) error
	Close() error
}
