package models

import "time"

// RawQuote is one price observation for one game in one region, as returned
// by a fetch source. It is transient: quotes are merged into the index and
// never persisted themselves.
type RawQuote struct {
	NSUID     string // platform-assigned identifier, may be empty
	Title     string
	ListPrice float64 // origin currency (MSRP)
	SalePrice float64 // origin currency, 0 when no discount was observed
	Currency  string
	Region    string
	Slug      string // opaque store slug/URL
	FetchedAt time.Time
}

// PriceRecord is the canonical per-region price attached to a game.
// Immutable once created; re-merging a region replaces the whole record.
type PriceRecord struct {
	Region            string  `json:"region"`
	Currency          string  `json:"currency"`
	ListPrice         float64 `json:"list_price"`
	EffectivePrice    float64 `json:"effective_price"`
	DiscountPercent   int     `json:"discount_percent"`
	ListPriceRef      float64 `json:"list_price_ref"`
	EffectivePriceRef float64 `json:"effective_price_ref"`
	OnSale            bool    `json:"on_sale"`
}

// GameEntity is one logical game with price records accumulated across
// regions. Title and NSUID come from the first sighting; later merges only
// touch the price list (and NSUID adoption when the first sighting had none).
type GameEntity struct {
	Title    string        `json:"title"`
	NSUID    string        `json:"nsuid,omitempty"`
	Slug     string        `json:"slug,omitempty"`
	CoverURL string        `json:"cover_url,omitempty"`
	Prices   []PriceRecord `json:"prices"`
}

// PriceFor returns the record for the given region, if any.
func (g *GameEntity) PriceFor(region string) (PriceRecord, bool) {
	for _, p := range g.Prices {
		if p.Region == region {
			return p, true
		}
	}
	return PriceRecord{}, false
}

// UpsertPrice replaces the record for rec.Region in place when one exists,
// otherwise appends. Region codes stay unique within the entity.
func (g *GameEntity) UpsertPrice(rec PriceRecord) (replaced bool) {
	for i, p := range g.Prices {
		if p.Region == rec.Region {
			g.Prices[i] = rec
			return true
		}
	}
	g.Prices = append(g.Prices, rec)
	return false
}

// GameIndex holds all merged entities in first-seen order, with lookup maps
// by NSUID and by caller-normalized title. Single-writer: the index has no
// internal locking and is owned by the orchestrating run.
type GameIndex struct {
	games      []*GameEntity
	byNSUID    map[string]*GameEntity
	byTitle    map[string]*GameEntity
	titleOrder []string
}

// NewGameIndex returns an empty index.
func NewGameIndex() *GameIndex {
	return &GameIndex{
		byNSUID: make(map[string]*GameEntity),
		byTitle: make(map[string]*GameEntity),
	}
}

// Len returns the number of entities.
func (ix *GameIndex) Len() int { return len(ix.games) }

// Games returns the entities in first-seen order. Callers must not reorder.
func (ix *GameIndex) Games() []*GameEntity { return ix.games }

// ByNSUID looks an entity up by its platform identifier.
func (ix *GameIndex) ByNSUID(nsuid string) (*GameEntity, bool) {
	g, ok := ix.byNSUID[nsuid]
	return g, ok
}

// ByTitle looks an entity up by normalized title.
func (ix *GameIndex) ByTitle(norm string) (*GameEntity, bool) {
	g, ok := ix.byTitle[norm]
	return g, ok
}

// TitleKeys returns the normalized title keys in registration order,
// used for the approximate-containment scan.
func (ix *GameIndex) TitleKeys() []string { return ix.titleOrder }

// Add appends a new entity and registers its lookup keys. The first entity
// registered under a normalized title keeps that key.
func (ix *GameIndex) Add(g *GameEntity, norm string) {
	ix.games = append(ix.games, g)
	if g.NSUID != "" {
		ix.byNSUID[g.NSUID] = g
	}
	if norm != "" {
		if _, taken := ix.byTitle[norm]; !taken {
			ix.byTitle[norm] = g
			ix.titleOrder = append(ix.titleOrder, norm)
		}
	}
}

// AdoptNSUID records an identifier for an entity that was first seen
// without one.
func (ix *GameIndex) AdoptNSUID(nsuid string, g *GameEntity) {
	if nsuid == "" {
		return
	}
	g.NSUID = nsuid
	ix.byNSUID[nsuid] = g
}

// TotalPriceRecords counts price records across all entities.
func (ix *GameIndex) TotalPriceRecords() int {
	n := 0
	for _, g := range ix.games {
		n += len(g.Prices)
	}
	return n
}

// CoverRef is one cover-art entry from an independently keyed image catalog.
// It usually has no NSUID in common with the price sources, so attachment
// goes through title matching.
type CoverRef struct {
	NSUID    string
	Title    string
	ImageURL string
}

// DiscountEntry is one (game, region) pair in the top-discount ranking.
type DiscountEntry struct {
	Game            *GameEntity
	Region          string
	DiscountPercent int
}

// Deal describes the cheapest way to buy one game across its regions.
type Deal struct {
	Game         *GameEntity
	Region       string
	EffectiveRef float64
	Savings      float64 // vs the most expensive region's effective price
}

// ComparisonReport holds the derived statistics over a merged index.
type ComparisonReport struct {
	ReferenceCurrency string
	TotalGames        int
	TotalPriceRecords int
	MultiRegionGames  int
	RegionCoverage    map[int]int // region count -> entity count
	TopDiscounts      []DiscountEntry
	TotalSavings      float64 // sum of per-game savings, reference currency
	AverageSavings    float64
	BestDeal          *Deal
}
