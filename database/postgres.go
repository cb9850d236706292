package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("connected to database")
	return db, nil
}

// CreateTables creates the schema if it does not exist.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stores (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			scrape_strategy JSONB DEFAULT '{}',
			settings JSONB DEFAULT '{}',
			currency VARCHAR(3) DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id INTEGER,
			current_price DECIMAL(12,2),
			price_cache JSONB DEFAULT '[]',
			notify_price DECIMAL(12,2),
			notify_percent DECIMAL(5,2),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS product_urls (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			store_id INTEGER REFERENCES stores(id) ON DELETE SET NULL,
			url TEXT NOT NULL,
			is_primary BOOLEAN DEFAULT FALSE,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			product_url_id INTEGER REFERENCES product_urls(id) ON DELETE SET NULL,
			price DECIMAL(12,2) NOT NULL,
			currency VARCHAR(3) DEFAULT 'USD',
			recorded_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			notified BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_runs (
			task_name TEXT PRIMARY KEY,
			last_run_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			action TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			ip_address TEXT,
			context JSONB DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_product_urls_product ON product_urls (product_id) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_url ON price_history (product_url_id, recorded_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
