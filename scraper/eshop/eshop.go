package eshop

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"eshop-price-tracker/config"
	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

const (
	// Nintendo Europe full-text search API; also the cover-art source.
	euSearchAPI = "https://search.nintendo-europe.com/en/select"
	// Nintendo of America Algolia search index.
	noaSearchAPI = "https://u3b6gr4ua3-dsn.algolia.net/1/indexes/ncom_game_en_us/query"
	noaAppID     = "U3B6GR4UA3"
	noaAPIKey    = "9a20c93440cf63cf1a7008d75f7438bf"
	// Price endpoint shared by all storefronts, batched by NSUID.
	priceAPI = "https://api.ec.nintendo.com/v1/price"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	euPageSize  = 1000
	noaPageSize = 200
)

// RegionInfo describes one storefront. NSUIDs are shared within a family
// (Nintendo of America vs Nintendo of Europe), so each family needs its own
// catalog pass before prices can be fetched.
type RegionInfo struct {
	Name     string
	Currency string
	Family   string // "americas" or "europe"
}

// Regions lists the storefronts the client knows how to fetch.
var Regions = map[string]RegionInfo{
	"US": {"United States", "USD", "americas"},
	"CA": {"Canada", "CAD", "americas"},
	"MX": {"Mexico", "MXN", "americas"},
	"BR": {"Brazil", "BRL", "americas"},
	"AR": {"Argentina", "ARS", "americas"},
	"CL": {"Chile", "CLP", "americas"},
	"CO": {"Colombia", "COP", "americas"},
	"PE": {"Peru", "PEN", "americas"},
	"GB": {"United Kingdom", "GBP", "europe"},
	"DE": {"Germany", "EUR", "europe"},
	"FR": {"France", "EUR", "europe"},
	"ES": {"Spain", "EUR", "europe"},
	"IT": {"Italy", "EUR", "europe"},
	"PT": {"Portugal", "EUR", "europe"},
	"NL": {"Netherlands", "EUR", "europe"},
	"BE": {"Belgium", "EUR", "europe"},
	"AT": {"Austria", "EUR", "europe"},
	"CH": {"Switzerland", "CHF", "europe"},
	"PL": {"Poland", "PLN", "europe"},
	"SE": {"Sweden", "SEK", "europe"},
	"NO": {"Norway", "NOK", "europe"},
	"DK": {"Denmark", "DKK", "europe"},
	"ZA": {"South Africa", "ZAR", "europe"},
	"AU": {"Australia", "AUD", "europe"},
	"NZ": {"New Zealand", "NZD", "europe"},
}

type catalogEntry struct {
	nsuid    string
	title    string
	slug     string
	imageURL string
}

// Client fetches regional game catalogs and prices from Nintendo's public
// endpoints. It performs all the network I/O the merge engine stays out of.
type Client struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	pool   *utils.WorkerPool
	seen   *utils.IDSet
	httpc  *http.Client

	mu       sync.Mutex
	catalogs map[string][]catalogEntry // keyed by family, fetched once
}

// New creates a ready-to-use eShop Client.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:   utils.NewIDSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
			Logger:      logger,
		},
		httpc:    &http.Client{Timeout: 30 * time.Second},
		catalogs: make(map[string][]catalogEntry),
	}
}

// Currency returns the storefront currency for a region code.
func Currency(region string) (string, bool) {
	info, ok := Regions[region]
	if !ok {
		return "", false
	}
	return info.Currency, true
}

// FetchRegion returns one region's quotes: the family catalog supplies
// NSUIDs and titles, the price endpoint supplies that storefront's prices.
// A failed region comes back as an error with zero quotes; the caller
// treats it as an empty batch.
func (c *Client) FetchRegion(region string) ([]*models.RawQuote, error) {
	info, ok := Regions[region]
	if !ok {
		return nil, fmt.Errorf("eshop: unknown region %q", region)
	}

	c.logger.Info("[eshop] Fetching %s (%s, %s)", info.Name, region, info.Currency)

	catalog, err := c.catalog(info.Family)
	if err != nil {
		return nil, fmt.Errorf("eshop: %s catalog: %w", info.Family, err)
	}

	byNSUID := make(map[string]catalogEntry, len(catalog))
	nsuids := make([]string, 0, len(catalog))
	for _, e := range catalog {
		if e.nsuid == "" {
			continue
		}
		byNSUID[e.nsuid] = e
		nsuids = append(nsuids, e.nsuid)
	}

	var (
		mu     sync.Mutex
		quotes []*models.RawQuote
	)

	batchSize := c.cfg.PriceBatchSize
	if batchSize <= 0 || batchSize > 50 {
		batchSize = 50
	}

	for start := 0; start < len(nsuids); start += batchSize {
		end := start + batchSize
		if end > len(nsuids) {
			end = len(nsuids)
		}
		batch := nsuids[start:end]
		batchNum := start/batchSize + 1

		c.pool.Submit(func() {
			batchQuotes, err := c.fetchPriceBatch(region, info.Currency, batch, byNSUID)
			if err != nil {
				c.logger.Warn("[eshop] %s batch %d failed: %v", region, batchNum, err)
				return
			}
			mu.Lock()
			quotes = append(quotes, batchQuotes...)
			mu.Unlock()
		})
	}
	c.pool.Wait()

	c.logger.Info("[eshop] %s: %d priced quotes from %d catalog entries",
		region, len(quotes), len(nsuids))
	return quotes, nil
}

// FetchCovers returns cover-art references from the European catalog, which
// carries image URLs the price sources don't.
func (c *Client) FetchCovers() ([]*models.CoverRef, error) {
	catalog, err := c.catalog("europe")
	if err != nil {
		return nil, fmt.Errorf("eshop: cover catalog: %w", err)
	}

	refs := make([]*models.CoverRef, 0, len(catalog))
	for _, e := range catalog {
		if e.imageURL == "" {
			continue
		}
		refs = append(refs, &models.CoverRef{
			NSUID:    e.nsuid,
			Title:    e.title,
			ImageURL: e.imageURL,
		})
	}
	return refs, nil
}

func (c *Client) catalog(family string) ([]catalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entries, ok := c.catalogs[family]; ok {
		return entries, nil
	}

	var (
		entries []catalogEntry
		err     error
	)
	switch family {
	case "europe":
		entries, err = c.fetchEuropeCatalog()
	case "americas":
		entries, err = c.fetchAmericasCatalog()
	default:
		err = fmt.Errorf("unknown catalog family %q", family)
	}
	if err != nil {
		return nil, err
	}

	if c.cfg.CatalogLimit > 0 && len(entries) > c.cfg.CatalogLimit {
		entries = entries[:c.cfg.CatalogLimit]
	}

	c.catalogs[family] = entries
	c.logger.Info("[eshop] %s catalog: %d games", family, len(entries))
	return entries, nil
}

func (c *Client) fetchEuropeCatalog() ([]catalogEntry, error) {
	var entries []catalogEntry

	for offset := 0; ; offset += euPageSize {
		params := url.Values{}
		params.Set("q", "*")
		params.Set("fq", "type:GAME AND system_type:nintendoswitch*")
		params.Set("sort", "sorting_title asc")
		params.Set("start", strconv.Itoa(offset))
		params.Set("rows", strconv.Itoa(euPageSize))
		params.Set("wt", "json")
		params.Set("fl", "title,nsuid_txt,image_url,url")

		var body []byte
		err := c.retry.Do(fmt.Sprintf("eu-catalog-%d", offset), func() error {
			var err error
			body, err = c.get(euSearchAPI + "?" + params.Encode())
			return err
		})
		if err != nil {
			if len(entries) > 0 {
				// Partial catalog still lets the run proceed.
				c.logger.Warn("[eshop] EU catalog truncated at %d entries: %v", len(entries), err)
				return entries, nil
			}
			return nil, err
		}

		docs := gjson.GetBytes(body, "response.docs").Array()
		for _, doc := range docs {
			entries = append(entries, catalogEntry{
				nsuid:    doc.Get("nsuid_txt.0").String(),
				title:    doc.Get("title").String(),
				slug:     doc.Get("url").String(),
				imageURL: doc.Get("image_url").String(),
			})
		}

		if len(docs) < euPageSize {
			break
		}
		if c.cfg.CatalogLimit > 0 && len(entries) >= c.cfg.CatalogLimit {
			break
		}
	}

	return entries, nil
}

func (c *Client) fetchAmericasCatalog() ([]catalogEntry, error) {
	var entries []catalogEntry

	for page := 0; ; page++ {
		payload := fmt.Sprintf(`{"params":"query=&hitsPerPage=%d&page=%d"}`, noaPageSize, page)

		var body []byte
		err := c.retry.Do(fmt.Sprintf("noa-catalog-%d", page), func() error {
			req, err := http.NewRequest(http.MethodPost, noaSearchAPI, strings.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Algolia-API-Key", noaAPIKey)
			req.Header.Set("X-Algolia-Application-Id", noaAppID)

			body, err = c.do(req)
			return err
		})
		if err != nil {
			if len(entries) > 0 {
				c.logger.Warn("[eshop] NoA catalog truncated at %d entries: %v", len(entries), err)
				return entries, nil
			}
			return nil, err
		}

		hits := gjson.GetBytes(body, "hits").Array()
		for _, hit := range hits {
			nsuid := hit.Get("nsuid").String()
			if nsuid != "" && !c.seen.Add("noa:"+nsuid) {
				continue
			}
			entries = append(entries, catalogEntry{
				nsuid: nsuid,
				title: hit.Get("title").String(),
				slug:  hit.Get("url").String(),
			})
		}

		nbPages := gjson.GetBytes(body, "nbPages").Int()
		if int64(page)+1 >= nbPages || len(hits) == 0 {
			break
		}
		if c.cfg.CatalogLimit > 0 && len(entries) >= c.cfg.CatalogLimit {
			break
		}
	}

	return entries, nil
}

func (c *Client) fetchPriceBatch(region, currency string, nsuids []string, byNSUID map[string]catalogEntry) ([]*models.RawQuote, error) {
	params := url.Values{}
	params.Set("country", region)
	params.Set("lang", "en")
	params.Set("ids", strings.Join(nsuids, ","))

	var body []byte
	err := c.retry.Do(fmt.Sprintf("prices-%s", region), func() error {
		var err error
		body, err = c.get(priceAPI + "?" + params.Encode())
		return err
	})
	if err != nil {
		return nil, err
	}

	var quotes []*models.RawQuote
	now := time.Now()

	for _, p := range gjson.GetBytes(body, "prices").Array() {
		if p.Get("sales_status").String() != "onsale" {
			continue
		}

		nsuid := p.Get("title_id").String()
		entry, ok := byNSUID[nsuid]
		if !ok {
			continue
		}

		listPrice := parseRawValue(p.Get("regular_price.raw_value").String())
		if listPrice <= 0 {
			continue
		}
		salePrice := parseRawValue(p.Get("discount_price.raw_value").String())

		cur := p.Get("regular_price.currency").String()
		if cur == "" {
			cur = currency
		}

		quotes = append(quotes, &models.RawQuote{
			NSUID:     nsuid,
			Title:     entry.title,
			ListPrice: listPrice,
			SalePrice: salePrice,
			Currency:  cur,
			Region:    region,
			Slug:      entry.slug,
			FetchedAt: now,
		})
	}

	return quotes, nil
}

func (c *Client) get(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// parseRawValue parses a price raw_value, tolerating decimal commas
// ("59,99"), comma grouping ("1,299.00") and dot grouping ("1.299,00").
// When both separators appear, the later one is the decimal separator.
func parseRawValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
