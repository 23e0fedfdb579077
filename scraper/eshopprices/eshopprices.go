package eshopprices

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"eshop-price-tracker/config"
	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

// baseURL lists games currently on sale; the page is JS-rendered, hence
// the headless browser.
const baseURL = "https://eshop-prices.com/games/on-sale"

// priceValueRe extracts the numeric part of a rendered price string.
var priceValueRe = regexp.MustCompile(`[\d.,]+`)

// Scraper pulls on-sale listings from eshop-prices.com. It is a secondary
// source with no NSUIDs, so its quotes reach the index through title
// matching only.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use eshop-prices Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
			Logger:      logger,
		},
	}
}

// Scrape loads the on-sale listing for the configured country and returns
// identifier-less quotes.
func (s *Scraper) Scrape() ([]*models.RawQuote, error) {
	region := strings.ToUpper(s.cfg.SalesCountry)
	currency, ok := currencyFor(region)
	if !ok {
		return nil, fmt.Errorf("eshopprices: no currency mapping for country %q", region)
	}

	pageURL := fmt.Sprintf("%s?currency=%s", baseURL, currency)
	s.logger.Info("[eshopprices] Scraping sale listings — %s (%s)", region, pageURL)

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	type cardData struct {
		Title    string `json:"title"`
		OldPrice string `json:"oldPrice"`
		NewPrice string `json:"newPrice"`
		URL      string `json:"url"`
	}

	var cards []cardData

	err := s.retry.Do("on-sale-page", func() error {
		ctx, cancel := chromedp.NewContext(silentCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(5*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var cards = document.querySelectorAll('a.game-collection-item, div.game-card, article.game');
					for (var i = 0; i < cards.length; i++) {
						var card = cards[i];

						var titleEl = card.querySelector('h2, h3, .game-collection-item-details-title, .title, .game-title');
						if (!titleEl) continue;

						var oldEl = card.querySelector('.price-old, .original-price, s, del');
						var newEl = card.querySelector('.price-new, .sale-price, .current-price, .price-discounted');
						if (!newEl) {
							newEl = card.querySelector('.price');
						}

						results.push({
							title:    titleEl.textContent.trim(),
							oldPrice: oldEl ? oldEl.textContent.trim() : '',
							newPrice: newEl ? newEl.textContent.trim() : '',
							url:      card.href || ''
						});
					}
					return results;
				})()
			`, &cards),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("eshopprices: %w", err)
	}

	now := time.Now()
	var quotes []*models.RawQuote
	for _, c := range cards {
		listPrice := parsePrice(c.OldPrice)
		salePrice := parsePrice(c.NewPrice)
		if listPrice <= 0 {
			// No struck-through price: the shown price is the list price.
			listPrice = salePrice
			salePrice = 0
		}
		if c.Title == "" || listPrice <= 0 {
			continue
		}

		quotes = append(quotes, &models.RawQuote{
			Title:     c.Title,
			ListPrice: listPrice,
			SalePrice: salePrice,
			Currency:  currency,
			Region:    region,
			Slug:      c.URL,
			FetchedAt: now,
		})
	}

	s.logger.Info("[eshopprices] Collected %d sale quotes (%d cards)", len(quotes), len(cards))
	return quotes, nil
}

// parsePrice extracts a numeric value from rendered price text such as
// "$59.99", "R$ 299,00", "£1,299.00" or "1.299,00 kr". When both
// separators appear, the later one is the decimal separator.
func parsePrice(raw string) float64 {
	m := priceValueRe.FindString(raw)
	if m == "" {
		return 0
	}

	comma := strings.LastIndex(m, ",")
	dot := strings.LastIndex(m, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		m = strings.ReplaceAll(m, ",", "")
	case comma >= 0:
		m = strings.Replace(m, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func currencyFor(country string) (string, bool) {
	switch country {
	case "US":
		return "USD", true
	case "BR":
		return "BRL", true
	case "GB":
		return "GBP", true
	case "CA":
		return "CAD", true
	case "MX":
		return "MXN", true
	case "AU":
		return "AUD", true
	case "ZA":
		return "ZAR", true
	case "PL":
		return "PLN", true
	case "NO":
		return "NOK", true
	case "DE", "FR", "ES", "IT", "PT", "NL", "BE", "AT":
		return "EUR", true
	default:
		return "", false
	}
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
