package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	Regions           []string // storefront country codes to fetch, in order
	ReferenceCurrency string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	CatalogLimit   int // max games pulled from the catalog source, 0 = all
	PriceBatchSize int // NSUIDs per price-API request

	IndexOutputPath string
	RawCSVPath      string

	ScrapeSales  bool // also scrape the eshop-prices.com sale listings
	SalesCountry string
	FetchCovers  bool
	ChromeBin    string
	LogLevel     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "eshop"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "eshop123"),
		PostgresDB:       getEnv("POSTGRES_DB", "eshop_prices"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		Regions:           getEnvList("REGIONS", "US,BR,CA,MX,GB,DE,FR,ES"),
		ReferenceCurrency: getEnv("REFERENCE_CURRENCY", "BRL"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 500),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		CatalogLimit:   getEnvInt("CATALOG_LIMIT", 0),
		PriceBatchSize: getEnvInt("PRICE_BATCH_SIZE", 50),

		IndexOutputPath: getEnv("INDEX_OUTPUT_PATH", "./output/multi_region_prices.json"),
		RawCSVPath:      getEnv("RAW_CSV_PATH", "./output/raw_quotes.csv"),

		ScrapeSales:  getEnvBool("SCRAPE_SALES", false),
		SalesCountry: getEnv("SALES_COUNTRY", "US"),
		FetchCovers:  getEnvBool("FETCH_COVERS", true),
		ChromeBin:    getEnv("CHROME_BIN", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
