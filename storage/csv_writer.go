package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"eshop-price-tracker/models"
)

// CSVWriter dumps raw (unmerged) quotes to a CSV file, one append per
// region fetch. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"region", "currency", "nsuid", "title", "list_price", "sale_price", "slug", "fetched_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends the given quotes to the CSV file.
func (c *CSVWriter) WriteRaw(quotes []*models.RawQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range quotes {
		row := []string{
			q.Region,
			q.Currency,
			q.NSUID,
			q.Title,
			strconv.FormatFloat(q.ListPrice, 'f', 2, 64),
			strconv.FormatFloat(q.SalePrice, 'f', 2, 64),
			q.Slug,
			q.FetchedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
