package services

import (
	"fmt"
	"sort"
	"strings"

	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

// StatsService derives read-only comparison views over a merged index.
type StatsService struct {
	refCurrency string
	logger      *utils.Logger
}

func NewStatsService(refCurrency string, logger *utils.Logger) *StatsService {
	return &StatsService{refCurrency: refCurrency, logger: logger}
}

// CheapestRegion returns the region with the lowest reference-currency
// effective price. Ties go to the earlier record. Empty string when the
// entity has no prices.
func CheapestRegion(g *models.GameEntity) string {
	if len(g.Prices) == 0 {
		return ""
	}
	best := g.Prices[0]
	for _, p := range g.Prices[1:] {
		if p.EffectivePriceRef < best.EffectivePriceRef {
			best = p
		}
	}
	return best.Region
}

// RegionCoverageHistogram maps region-count to the number of entities
// carrying that many regional prices.
func RegionCoverageHistogram(ix *models.GameIndex) map[int]int {
	hist := make(map[int]int)
	for _, g := range ix.Games() {
		hist[len(g.Prices)]++
	}
	return hist
}

// TopDiscounts lists (game, region) pairs ordered by discount percent
// descending, encounter order breaking ties, truncated to n.
func TopDiscounts(ix *models.GameIndex, n int) []models.DiscountEntry {
	var entries []models.DiscountEntry
	for _, g := range ix.Games() {
		for _, p := range g.Prices {
			if p.DiscountPercent > 0 {
				entries = append(entries, models.DiscountEntry{
					Game:            g,
					Region:          p.Region,
					DiscountPercent: p.DiscountPercent,
				})
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DiscountPercent > entries[j].DiscountPercent
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Generate computes the full comparison report. Savings per game is the
// spread between the most and least expensive regions' effective prices
// in the reference currency; only games priced in 2+ regions contribute.
func (s *StatsService) Generate(ix *models.GameIndex) *models.ComparisonReport {
	report := &models.ComparisonReport{
		ReferenceCurrency: s.refCurrency,
		RegionCoverage:    RegionCoverageHistogram(ix),
	}

	report.TotalGames = ix.Len()
	report.TotalPriceRecords = ix.TotalPriceRecords()
	report.TopDiscounts = TopDiscounts(ix, 10)

	for _, g := range ix.Games() {
		if len(g.Prices) < 2 {
			continue
		}
		report.MultiRegionGames++

		min, max := g.Prices[0].EffectivePriceRef, g.Prices[0].EffectivePriceRef
		cheapest := g.Prices[0].Region
		for _, p := range g.Prices[1:] {
			if p.EffectivePriceRef < min {
				min = p.EffectivePriceRef
				cheapest = p.Region
			}
			if p.EffectivePriceRef > max {
				max = p.EffectivePriceRef
			}
		}

		savings := max - min
		report.TotalSavings += savings

		if report.BestDeal == nil || savings > report.BestDeal.Savings {
			report.BestDeal = &models.Deal{
				Game:         g,
				Region:       cheapest,
				EffectiveRef: min,
				Savings:      savings,
			}
		}
	}

	if report.MultiRegionGames > 0 {
		report.AverageSavings = report.TotalSavings / float64(report.MultiRegionGames)
	}

	return report
}

// Print renders the report to the console.
func (s *StatsService) Print(r *models.ComparisonReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🎮 ESHOP MULTI-REGION PRICE REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Games tracked       : \033[1m%d\033[0m\n", r.TotalGames)
	fmt.Printf("  Price records       : \033[1m%d\033[0m\n", r.TotalPriceRecords)
	fmt.Printf("  Multi-region games  : \033[1m%d\033[0m\n", r.MultiRegionGames)
	fmt.Println()

	fmt.Printf("\033[1;33m  Games by Region Coverage\033[0m\n")
	fmt.Printf("  %s\n", thin)
	var counts []int
	for c := range r.RegionCoverage {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	for _, c := range counts {
		fmt.Printf("  %2d region(s) : %d games\n", c, r.RegionCoverage[c])
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top Discounts\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopDiscounts) == 0 {
		fmt.Printf("  No discounted prices found\n")
	} else {
		for i, d := range r.TopDiscounts {
			fmt.Printf("  \033[1m%2d.\033[0m %-40s %s \033[1;32m-%d%%\033[0m\n",
				i+1, truncate(d.Game.Title, 38), d.Region, d.DiscountPercent)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Cross-Region Savings (%s)\033[0m\n", r.ReferenceCurrency)
	fmt.Printf("  %s\n", thin)
	if r.MultiRegionGames == 0 {
		fmt.Printf("  No games with multiple regions yet\n")
	} else {
		fmt.Printf("  Total potential savings : \033[1;32m%.2f\033[0m\n", r.TotalSavings)
		fmt.Printf("  Average per game        : \033[1;32m%.2f\033[0m\n", r.AverageSavings)
	}
	fmt.Println()

	if r.BestDeal != nil {
		fmt.Printf("\033[1;33m  Biggest Spread\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.BestDeal.Game.Title, 50))
		fmt.Printf("  Cheapest in : \033[1m%s\033[0m at %.2f %s\n",
			r.BestDeal.Region, r.BestDeal.EffectiveRef, r.ReferenceCurrency)
		fmt.Printf("  Saves       : \033[1;31m%.2f %s\033[0m vs the priciest region\n",
			r.BestDeal.Savings, r.ReferenceCurrency)
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// truncate shortens a title for display without splitting multi-byte runes
// in localized titles.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
