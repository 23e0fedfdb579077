package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"eshop-price-tracker/models"
)

// JSONStore persists the merged index as an ordered JSON array of games.
// Last successful write wins; a run that fetched only some regions still
// writes a valid partial index.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store for the given file path. Intermediate
// directories are created on the first write.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Write serializes the games in their current order, via a temp file and
// rename so a crash mid-write can't truncate the previous index.
func (s *JSONStore) Write(games []*models.GameEntity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	data, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal index: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("json: rename into place: %w", err)
	}
	return nil
}

// Load reads a previously written index. A missing file is not an error:
// it returns an empty slice so the first run starts from scratch.
func (s *JSONStore) Load() ([]*models.GameEntity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("json: read %q: %w", s.path, err)
	}

	var games []*models.GameEntity
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("json: parse %q: %w", s.path, err)
	}
	return games, nil
}

// Close is a no-op; JSONStore holds no open handles between writes.
func (s *JSONStore) Close() error { return nil }
