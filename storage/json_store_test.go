package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"eshop-price-tracker/models"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.json")
	store := NewJSONStore(path)

	games := []*models.GameEntity{
		{
			Title: "Game X",
			NSUID: "70010000001234",
			Slug:  "/games/game-x",
			Prices: []models.PriceRecord{
				{Region: "US", Currency: "USD", ListPrice: 59.99, EffectivePrice: 44.99,
					DiscountPercent: 25, ListPriceRef: 347.94, EffectivePriceRef: 260.94, OnSale: true},
				{Region: "BR", Currency: "BRL", ListPrice: 299.00, EffectivePrice: 299.00,
					ListPriceRef: 299.00, EffectivePriceRef: 299.00},
			},
		},
		{
			Title: "No Identifier Game",
			Prices: []models.PriceRecord{
				{Region: "GB", Currency: "GBP", ListPrice: 49.99, EffectivePrice: 49.99,
					ListPriceRef: 359.93, EffectivePriceRef: 359.93},
			},
		},
	}

	if err := store.Write(games); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(games, loaded) {
		t.Errorf("round trip mismatch:\nwrote  %+v\nloaded %+v", games[0], loaded[0])
	}

	// Entity order must be preserved.
	if loaded[0].Title != "Game X" || loaded[1].Title != "No Identifier Game" {
		t.Error("entity order not preserved")
	}
}

func TestJSONStoreMissingFile(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "nope.json"))

	games, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if games != nil {
		t.Errorf("missing file should load nil, got %d games", len(games))
	}
}

func TestJSONStoreOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	store := NewJSONStore(path)

	if err := store.Write([]*models.GameEntity{{Title: "Old"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Write([]*models.GameEntity{{Title: "New"}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Title != "New" {
		t.Errorf("last write should win, got %+v", loaded)
	}
}
