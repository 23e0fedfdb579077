package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"eshop-price-tracker/models"
)

// PostgresWriter persists the merged index to PostgreSQL: one row per game
// and one row per regional price.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id        SERIAL PRIMARY KEY,
			nsuid     VARCHAR(32),
			title     TEXT        NOT NULL,
			slug      TEXT        NOT NULL DEFAULT '',
			cover_url TEXT        NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS game_prices (
			id                  SERIAL PRIMARY KEY,
			game_id             INTEGER     NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			region              VARCHAR(8)  NOT NULL,
			currency            VARCHAR(8)  NOT NULL,
			list_price          NUMERIC(12,2) NOT NULL,
			effective_price     NUMERIC(12,2) NOT NULL,
			discount_percent    INTEGER     NOT NULL DEFAULT 0,
			list_price_ref      NUMERIC(12,2) NOT NULL,
			effective_price_ref NUMERIC(12,2) NOT NULL,
			on_sale             BOOLEAN     NOT NULL DEFAULT FALSE,
			UNIQUE (game_id, region)
		);

		CREATE INDEX IF NOT EXISTS idx_games_nsuid            ON games(nsuid);
		CREATE INDEX IF NOT EXISTS idx_game_prices_region     ON game_prices(region);
		CREATE INDEX IF NOT EXISTS idx_game_prices_discount   ON game_prices(discount_percent);
		CREATE INDEX IF NOT EXISTS idx_game_prices_effective  ON game_prices(effective_price_ref);
	`)
	return err
}

// Clear deletes all stored games and prices.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM games")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write replaces the stored index with the given games. The whole write
// runs in one transaction so readers never see a half-replaced index.
func (pw *PostgresWriter) Write(games []*models.GameEntity) error {
	if len(games) == 0 {
		return nil
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM games"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	insertGame, err := tx.Prepare(`
		INSERT INTO games (nsuid, title, slug, cover_url)
		VALUES (NULLIF($1, ''), $2, $3, $4)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("postgres: prepare game insert: %w", err)
	}
	defer insertGame.Close()

	insertPrice, err := tx.Prepare(`
		INSERT INTO game_prices (
			game_id, region, currency, list_price, effective_price,
			discount_percent, list_price_ref, effective_price_ref, on_sale
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("postgres: prepare price insert: %w", err)
	}
	defer insertPrice.Close()

	for _, g := range games {
		var gameID int64
		if err := insertGame.QueryRow(g.NSUID, g.Title, g.Slug, g.CoverURL).Scan(&gameID); err != nil {
			return fmt.Errorf("postgres: insert game %q: %w", g.Title, err)
		}
		for _, p := range g.Prices {
			if _, err := insertPrice.Exec(
				gameID, p.Region, p.Currency, p.ListPrice, p.EffectivePrice,
				p.DiscountPercent, p.ListPriceRef, p.EffectivePriceRef, p.OnSale,
			); err != nil {
				return fmt.Errorf("postgres: insert price %s/%s: %w", g.Title, p.Region, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Counts returns stored game and price-row counts, for post-run logging.
func (pw *PostgresWriter) Counts() (games int, prices int, err error) {
	if err = pw.db.QueryRow("SELECT COUNT(*) FROM games").Scan(&games); err != nil {
		return 0, 0, fmt.Errorf("postgres: count games: %w", err)
	}
	if err = pw.db.QueryRow("SELECT COUNT(*) FROM game_prices").Scan(&prices); err != nil {
		return 0, 0, fmt.Errorf("postgres: count prices: %w", err)
	}
	return games, prices, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
