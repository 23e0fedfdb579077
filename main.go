package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"eshop-price-tracker/config"
	"eshop-price-tracker/models"
	"eshop-price-tracker/scraper/eshop"
	"eshop-price-tracker/scraper/eshopprices"
	"eshop-price-tracker/services"
	"eshop-price-tracker/storage"
	"eshop-price-tracker/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerAt(utils.ParseLevel(cfg.LogLevel))

	logger.Info("=== eShop Multi-Region Price Tracker starting ===")
	logger.Info("Config — regions: %s | reference: %s | concurrency: %d | rate: %dms",
		strings.Join(cfg.Regions, ","), cfg.ReferenceCurrency, cfg.MaxConcurrency, cfg.RateLimitMs)

	jsonStore := storage.NewJSONStore(cfg.IndexOutputPath)

	prior, err := jsonStore.Load()
	if err != nil {
		logger.Warn("Could not load previous index (%v) — starting fresh", err)
		prior = nil
	}
	if len(prior) > 0 {
		logger.Info("Loaded previous index: %d games — merging incrementally", len(prior))
	}

	csvWriter, err := storage.NewCSVWriter(cfg.RawCSVPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	rates := services.DefaultRates()
	merger := services.NewMergerFrom(prior, rates, logger)
	client := eshop.New(cfg, logger)

	totalQuotes := 0
	for i, region := range cfg.Regions {
		currency, ok := eshop.Currency(region)
		if !ok {
			logger.Warn("Unknown region %q — skipped", region)
			continue
		}

		quotes, err := client.FetchRegion(region)
		if err != nil {
			logger.Error("Fetch failed for %s: %v — merging zero quotes", region, err)
			quotes = nil
		}
		totalQuotes += len(quotes)

		if err := csvWriter.WriteRaw(quotes); err != nil {
			logger.Warn("CSV write failed for %s: %v", region, err)
		}

		merger.Merge(region, currency, quotes)

		if i < len(cfg.Regions)-1 {
			time.Sleep(time.Duration(cfg.RateLimitMs) * time.Millisecond)
		}
	}

	if cfg.ScrapeSales {
		salesScraper := eshopprices.New(cfg, logger)
		saleQuotes, err := salesScraper.Scrape()
		if err != nil {
			logger.Error("Sale scrape failed: %v", err)
		} else {
			currency, _ := eshop.Currency(strings.ToUpper(cfg.SalesCountry))
			merger.MergeSecondary(strings.ToUpper(cfg.SalesCountry), currency, saleQuotes)
			totalQuotes += len(saleQuotes)
		}
	}

	index := merger.Index()

	if index.Len() == 0 {
		logger.Error("No games merged from any source. Exiting.")
		os.Exit(1)
	}
	if totalQuotes == 0 {
		logger.Warn("All region fetches came back empty — persisting prior index unchanged")
	}

	if cfg.FetchCovers {
		covers, err := client.FetchCovers()
		if err != nil {
			logger.Warn("Cover fetch failed: %v", err)
		} else {
			services.AttachCovers(index, covers, logger)
		}
	}

	statsSvc := services.NewStatsService(cfg.ReferenceCurrency, logger)
	report := statsSvc.Generate(index)
	statsSvc.Print(report)

	if err := jsonStore.Write(index.Games()); err != nil {
		logger.Error("JSON write failed: %v", err)
	} else {
		logger.Info("Merged index saved to %s (%d games, %d price records)",
			cfg.IndexOutputPath, index.Len(), index.TotalPriceRecords())
	}

	persistPostgres(cfg, logger, index.Games())

	fmt.Printf("  Done. Raw CSV → %s | Merged index → %s\n\n",
		cfg.RawCSVPath, cfg.IndexOutputPath)
}

// persistPostgres mirrors the JSON index into PostgreSQL. The database is
// optional: when it is unreachable the run still succeeds with JSON output.
func persistPostgres(cfg *config.Config, logger *utils.Logger, games []*models.GameEntity) {
	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Warn("PostgreSQL unavailable (%v) — skipping DB persistence", err)
		return
	}
	defer pgWriter.Close()

	if err := pgWriter.Write(games); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
		return
	}

	if g, p, err := pgWriter.Counts(); err == nil {
		logger.Info("PostgreSQL updated: %d games, %d price rows", g, p)
	}
}
