package services

import (
	"reflect"
	"testing"

	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerAt(utils.LevelError) }

func testRates() RateTable {
	return RateTable{"USD": 5.80, "BRL": 1.00, "CAD": 4.20, "EUR": 6.20, "GBP": 7.20}
}

func usBatch() []*models.RawQuote {
	return []*models.RawQuote{
		{NSUID: "70010000001234", Title: "Game X", ListPrice: 59.99, SalePrice: 44.99, Currency: "USD"},
		{Title: "Indie Gem", ListPrice: 19.99, Currency: "USD"},
	}
}

func brBatch() []*models.RawQuote {
	return []*models.RawQuote{
		{NSUID: "70010000001234", Title: "Game X: Edição Brasileira", ListPrice: 299.00, SalePrice: 199.90, Currency: "BRL"},
		{Title: "Indie Gem", ListPrice: 36.50, Currency: "BRL"},
	}
}

func TestMergeIdentifierWinsAcrossLocalizedTitles(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("US", "USD", usBatch())
	m.Merge("BR", "BRL", brBatch())

	if m.Index().Len() != 2 {
		t.Fatalf("index size: got %d, want 2", m.Index().Len())
	}

	g, ok := m.Index().ByNSUID("70010000001234")
	if !ok {
		t.Fatal("entity not found by NSUID")
	}
	if len(g.Prices) != 2 {
		t.Errorf("price records: got %d, want 2", len(g.Prices))
	}
	if g.Title != "Game X" {
		t.Errorf("display title: got %q, want first-seen %q", g.Title, "Game X")
	}
}

func TestMergeTitleFallbackWithoutIdentifiers(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("US", "USD", []*models.RawQuote{
		{Title: "Super Mario Odyssey™", ListPrice: 59.99, Currency: "USD"},
	})
	m.Merge("BR", "BRL", []*models.RawQuote{
		{Title: "Super  Mario Odyssey", ListPrice: 299.00, Currency: "BRL"},
	})

	if m.Index().Len() != 1 {
		t.Fatalf("index size: got %d, want 1", m.Index().Len())
	}
	g := m.Index().Games()[0]
	if len(g.Prices) != 2 {
		t.Errorf("price records: got %d, want 2", len(g.Prices))
	}
}

func TestMergeIdempotent(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("US", "USD", usBatch())
	m.Merge("BR", "BRL", brBatch())
	snapshot := cloneGames(m.Index().Games())

	res := m.Merge("BR", "BRL", brBatch())

	if res.Created != 0 {
		t.Errorf("re-merge created %d entities, want 0", res.Created)
	}
	if res.Appended != 0 {
		t.Errorf("re-merge appended %d records, want 0", res.Appended)
	}
	if !reflect.DeepEqual(snapshot, cloneGames(m.Index().Games())) {
		t.Error("re-merging an identical batch changed the index")
	}
}

func TestMergeReplacesRegionInPlace(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("US", "USD", usBatch())
	m.Merge("BR", "BRL", brBatch())

	res := m.Merge("US", "USD", []*models.RawQuote{
		{NSUID: "70010000001234", Title: "Game X", ListPrice: 59.99, SalePrice: 29.99, Currency: "USD"},
	})
	if res.Replaced != 1 {
		t.Fatalf("Replaced: got %d, want 1", res.Replaced)
	}

	g, _ := m.Index().ByNSUID("70010000001234")
	if len(g.Prices) != 2 {
		t.Fatalf("price records: got %d, want 2", len(g.Prices))
	}
	// US was merged first, so it must still occupy position 0.
	if g.Prices[0].Region != "US" {
		t.Errorf("position 0 region: got %q, want US", g.Prices[0].Region)
	}
	if g.Prices[0].EffectivePrice != 29.99 {
		t.Errorf("replaced effective price: got %.2f, want 29.99", g.Prices[0].EffectivePrice)
	}
	if g.Prices[1].Region != "BR" {
		t.Errorf("position 1 region: got %q, want BR", g.Prices[1].Region)
	}
	if g.Prices[1].EffectivePrice != 199.90 {
		t.Errorf("BR record must be untouched: got %.2f", g.Prices[1].EffectivePrice)
	}
}

func TestMergeCommutativeAcrossRegions(t *testing.T) {
	ab := NewMerger(testRates(), newTestLogger())
	ab.Merge("US", "USD", usBatch())
	ab.Merge("BR", "BRL", brBatch())

	ba := NewMerger(testRates(), newTestLogger())
	ba.Merge("BR", "BRL", brBatch())
	ba.Merge("US", "USD", usBatch())

	if ab.Index().Len() != ba.Index().Len() {
		t.Fatalf("entity counts differ: %d vs %d", ab.Index().Len(), ba.Index().Len())
	}

	for _, g := range ab.Index().Games() {
		var other *models.GameEntity
		if g.NSUID != "" {
			other, _ = ba.Index().ByNSUID(g.NSUID)
		} else {
			other, _ = ba.Index().ByTitle(NormalizeTitle(g.Title))
		}
		if other == nil {
			t.Fatalf("entity %q missing after reversed merge order", g.Title)
		}
		for _, p := range g.Prices {
			op, ok := other.PriceFor(p.Region)
			if !ok {
				t.Errorf("%q missing %s record in reversed order", g.Title, p.Region)
				continue
			}
			if !reflect.DeepEqual(p, op) {
				t.Errorf("%q %s record differs: %+v vs %+v", g.Title, p.Region, p, op)
			}
		}
	}
}

func TestMergeSkipsInvalidQuotes(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	res := m.Merge("US", "USD", []*models.RawQuote{
		{Title: "Free Game", ListPrice: 0, Currency: "USD"},
		{Title: "", ListPrice: 10, Currency: "USD"},
		{Title: "Paid Game", ListPrice: 9.99, Currency: "USD"},
		{Title: "Weird Currency", ListPrice: 9.99, Currency: "XYZ"},
	})

	if res.Skipped != 3 {
		t.Errorf("Skipped: got %d, want 3", res.Skipped)
	}
	if res.Appended != 1 {
		t.Errorf("Appended: got %d, want 1", res.Appended)
	}
	if m.Index().Len() != 1 {
		t.Errorf("index size: got %d, want 1", m.Index().Len())
	}
}

func TestMergeUnknownRegionCurrencySkipsBatch(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	res := m.Merge("XX", "XYZ", usBatch())
	if res.Err == nil {
		t.Error("expected surfaced error for unknown region currency")
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped: got %d, want 2", res.Skipped)
	}
	if m.Index().Len() != 0 {
		t.Errorf("index should stay empty, got %d entities", m.Index().Len())
	}
}

func TestMergeEmptyBatchIsLegitimate(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())
	m.Merge("US", "USD", usBatch())

	res := m.Merge("CA", "CAD", nil)
	if res.Err != nil || res.Skipped != 0 {
		t.Errorf("empty batch should merge cleanly: %+v", res)
	}
	if m.Index().Len() != 2 {
		t.Errorf("index changed by empty batch: %d entities", m.Index().Len())
	}
}

func TestMergeAdoptsIdentifierForTitleKeyedEntity(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	// First sighting has no identifier.
	m.Merge("US", "USD", []*models.RawQuote{
		{Title: "Stardew Valley", ListPrice: 14.99, Currency: "USD"},
	})
	// Second sighting carries one and must land on the same entity.
	m.Merge("BR", "BRL", []*models.RawQuote{
		{NSUID: "70010000009876", Title: "Stardew Valley", ListPrice: 24.99, Currency: "BRL"},
	})

	if m.Index().Len() != 1 {
		t.Fatalf("index size: got %d, want 1", m.Index().Len())
	}
	g, ok := m.Index().ByNSUID("70010000009876")
	if !ok {
		t.Fatal("entity should be findable by adopted NSUID")
	}
	if len(g.Prices) != 2 {
		t.Errorf("price records: got %d, want 2", len(g.Prices))
	}

	// A different identifier with the same title is a different game.
	m.Merge("CA", "CAD", []*models.RawQuote{
		{NSUID: "70010000005555", Title: "Stardew Valley", ListPrice: 19.99, Currency: "CAD"},
	})
	if m.Index().Len() != 2 {
		t.Errorf("identified quotes with distinct NSUIDs must not collapse: got %d entities", m.Index().Len())
	}
}

func TestMergeSameBatchTitleMatching(t *testing.T) {
	// Later quotes in one batch must see entities created earlier in it.
	m := NewMerger(testRates(), newTestLogger())

	res := m.Merge("US", "USD", []*models.RawQuote{
		{Title: "Hades II", ListPrice: 29.99, Currency: "USD"},
		{Title: "Hades II™", ListPrice: 29.99, Currency: "USD"},
	})

	if res.Created != 1 {
		t.Errorf("Created: got %d, want 1", res.Created)
	}
	if m.Index().Len() != 1 {
		t.Errorf("index size: got %d, want 1", m.Index().Len())
	}
}

func TestMergerFromPriorIndex(t *testing.T) {
	prior := []*models.GameEntity{
		{
			Title: "Game X",
			NSUID: "70010000001234",
			Prices: []models.PriceRecord{
				{Region: "US", Currency: "USD", ListPrice: 59.99, EffectivePrice: 59.99,
					ListPriceRef: 347.94, EffectivePriceRef: 347.94},
			},
		},
	}

	m := NewMergerFrom(prior, testRates(), newTestLogger())
	m.Merge("BR", "BRL", []*models.RawQuote{
		{NSUID: "70010000001234", Title: "Game X", ListPrice: 299.00, Currency: "BRL"},
	})

	if m.Index().Len() != 1 {
		t.Fatalf("index size: got %d, want 1", m.Index().Len())
	}
	g := m.Index().Games()[0]
	if len(g.Prices) != 2 {
		t.Errorf("incremental merge should append to prior entity: got %d records", len(g.Prices))
	}
}

func TestMergeQuoteWithoutCurrencyUsesRegionDefault(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("BR", "BRL", []*models.RawQuote{
		{Title: "Some Game", ListPrice: 100.00},
	})

	g := m.Index().Games()[0]
	if g.Prices[0].Currency != "BRL" {
		t.Errorf("currency: got %q, want BRL", g.Prices[0].Currency)
	}
	if g.Prices[0].EffectivePriceRef != 100.00 {
		t.Errorf("reference price: got %.2f, want 100.00", g.Prices[0].EffectivePriceRef)
	}
}

func TestMergeSecondaryAttachesByApproximateTitle(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())

	// Catalog pass: identified entity with the full edition title.
	m.Merge("US", "USD", []*models.RawQuote{
		{NSUID: "70010000007777", Title: "The Witcher 3: Wild Hunt Complete Edition",
			ListPrice: 59.99, Currency: "USD"},
	})

	// Sale listing carries no identifiers and a shortened title; it must
	// land on the existing entity, not create a duplicate.
	res := m.MergeSecondary("GB", "GBP", []*models.RawQuote{
		{Title: "The Witcher 3: Wild Hunt", ListPrice: 39.99, SalePrice: 9.99, Currency: "GBP"},
	})

	if res.Created != 0 {
		t.Errorf("Created: got %d, want 0", res.Created)
	}
	if m.Index().Len() != 1 {
		t.Fatalf("index size: got %d, want 1", m.Index().Len())
	}

	g, ok := m.Index().ByNSUID("70010000007777")
	if !ok {
		t.Fatal("entity not found by NSUID")
	}
	if len(g.Prices) != 2 {
		t.Fatalf("price records: got %d, want 2", len(g.Prices))
	}
	gb, ok := g.PriceFor("GB")
	if !ok {
		t.Fatal("GB record missing from catalog entity")
	}
	if gb.EffectivePrice != 9.99 || gb.DiscountPercent != 75 {
		t.Errorf("GB record: got %.2f at -%d%%, want 9.99 at -75%%", gb.EffectivePrice, gb.DiscountPercent)
	}
}

func TestMergeSecondaryFallsBackToCreation(t *testing.T) {
	m := NewMerger(testRates(), newTestLogger())
	m.Merge("US", "USD", usBatch())

	res := m.MergeSecondary("GB", "GBP", []*models.RawQuote{
		{Title: "Completely Unrelated Title", ListPrice: 19.99, Currency: "GBP"},
	})

	if res.Created != 1 {
		t.Errorf("Created: got %d, want 1", res.Created)
	}
	if m.Index().Len() != 3 {
		t.Errorf("index size: got %d, want 3", m.Index().Len())
	}
}

func TestMergePrimaryDoesNotUseApproximateTier(t *testing.T) {
	// Catalog merges use exact keys only; containment is reserved for
	// independently keyed secondary sources.
	m := NewMerger(testRates(), newTestLogger())

	m.Merge("US", "USD", []*models.RawQuote{
		{Title: "Mario Kart 8 Deluxe", ListPrice: 59.99, Currency: "USD"},
	})
	m.Merge("CA", "CAD", []*models.RawQuote{
		{Title: "Mario Kart", ListPrice: 79.99, Currency: "CAD"},
	})

	if m.Index().Len() != 2 {
		t.Errorf("index size: got %d, want 2", m.Index().Len())
	}
}

func cloneGames(games []*models.GameEntity) []models.GameEntity {
	out := make([]models.GameEntity, len(games))
	for i, g := range games {
		out[i] = *g
		out[i].Prices = append([]models.PriceRecord(nil), g.Prices...)
	}
	return out
}
