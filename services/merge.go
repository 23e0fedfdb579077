package services

import (
	"errors"

	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

// Merger folds per-region quote batches into a GameIndex. It is safe to
// call incrementally, one region at a time, and re-merging an identical
// batch is a no-op; the index is single-writer for the duration of a run.
type Merger struct {
	index  *models.GameIndex
	rates  RateTable
	logger *utils.Logger
}

// MergeResult summarizes one region's merge pass.
type MergeResult struct {
	Region   string
	Appended int // price records newly attached
	Replaced int // existing region records overwritten in place
	Created  int // entities created on first sighting
	Skipped  int // quotes dropped (no usable price, empty title, unknown currency)
	Err      error
}

// NewMerger creates a Merger over an empty index.
func NewMerger(rates RateTable, logger *utils.Logger) *Merger {
	return &Merger{
		index:  models.NewGameIndex(),
		rates:  rates,
		logger: logger,
	}
}

// NewMergerFrom seeds the Merger with entities loaded from a previous run,
// rebuilding the identifier and title lookup keys, so incremental runs
// mutate the prior index instead of starting over.
func NewMergerFrom(entities []*models.GameEntity, rates RateTable, logger *utils.Logger) *Merger {
	m := NewMerger(rates, logger)
	for _, g := range entities {
		m.index.Add(g, NormalizeTitle(g.Title))
	}
	return m
}

// Index returns the merged result. The caller owns it between merge calls.
func (m *Merger) Index() *models.GameIndex { return m.index }

// Merge attaches one region's quotes to the index. regionCurrency is the
// storefront's currency, used for quotes that don't carry their own code.
// A batch-level unknown currency skips the whole region with the error
// surfaced in the result; a malformed quote only skips itself.
func (m *Merger) Merge(region, regionCurrency string, quotes []*models.RawQuote) MergeResult {
	return m.merge(region, regionCurrency, quotes, false)
}

// MergeSecondary merges quotes from an independently keyed source that has
// no identifiers in common with the catalogs (the sale-listing scrape).
// Identifier-less quotes additionally fall back to the approximate
// containment match before a new entity is created, so a shortened listing
// title still lands on the catalog entity it belongs to.
func (m *Merger) MergeSecondary(region, regionCurrency string, quotes []*models.RawQuote) MergeResult {
	return m.merge(region, regionCurrency, quotes, true)
}

func (m *Merger) merge(region, regionCurrency string, quotes []*models.RawQuote, approximate bool) MergeResult {
	res := MergeResult{Region: region}

	if _, err := m.rates.Rate(regionCurrency); err != nil {
		m.logger.Warn("[merge] %s: %v — region skipped, no rate substituted", region, err)
		res.Skipped = len(quotes)
		res.Err = err
		return res
	}

	for _, q := range quotes {
		quote := *q
		quote.Region = region
		if quote.Currency == "" {
			quote.Currency = regionCurrency
		}

		rate, err := m.rates.Rate(quote.Currency)
		if err != nil {
			m.logger.Warn("[merge] %s: %q: %v — quote skipped", region, quote.Title, err)
			res.Skipped++
			continue
		}

		rec, err := Normalize(&quote, rate)
		if err != nil {
			if errors.Is(err, ErrInvalidQuote) {
				m.logger.Debug("[merge] %s: %v", region, err)
				res.Skipped++
				continue
			}
			res.Skipped++
			continue
		}

		entity, created := m.resolve(&quote, approximate)
		if created {
			res.Created++
		}

		if entity.UpsertPrice(rec) {
			res.Replaced++
		} else {
			res.Appended++
		}
	}

	m.logger.Info("[merge] %s: +%d records (%d replaced), %d new games, %d skipped — index: %d games",
		region, res.Appended, res.Replaced, res.Created, res.Skipped, m.index.Len())
	return res
}

// resolve finds or creates the entity a quote belongs to. Identifier is
// authoritative between identified quotes; title matching only bridges
// quotes where at least one side has no identifier, and an identified
// quote adopts an identifier-less entity with the same normalized title.
// With approximate set, an identifier-less quote also tries the
// containment fallback before creating a new entity.
func (m *Merger) resolve(q *models.RawQuote, approximate bool) (entity *models.GameEntity, created bool) {
	norm := NormalizeTitle(q.Title)

	if q.NSUID != "" {
		if g, ok := m.index.ByNSUID(q.NSUID); ok {
			return g, false
		}
		if g, ok := m.index.ByTitle(norm); ok && g.NSUID == "" {
			m.index.AdoptNSUID(q.NSUID, g)
			m.fillSlug(g, q)
			return g, false
		}
	} else {
		if g, ok := m.index.ByTitle(norm); ok {
			return g, false
		}
		if approximate {
			if match, ok := FindByTitle(m.index, q.Title); ok {
				if match.Ambiguous {
					m.logger.Warn("[merge] ambiguous %s match for %q → %q (first match kept)",
						match.Tier, q.Title, match.Entity.Title)
				} else if match.Tier == MatchApproximate {
					m.logger.Debug("[merge] %s match: %q → %q", match.Tier, q.Title, match.Entity.Title)
				}
				return match.Entity, false
			}
		}
	}

	g := &models.GameEntity{
		Title: q.Title,
		NSUID: q.NSUID,
		Slug:  q.Slug,
	}
	m.index.Add(g, norm)
	return g, true
}

func (m *Merger) fillSlug(g *models.GameEntity, q *models.RawQuote) {
	if g.Slug == "" && q.Slug != "" {
		g.Slug = q.Slug
	}
}
