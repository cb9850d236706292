package repository

import (
	"database/sql"
	"fmt"

	"pricetrack/models"
)

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// GetStoreByID returns a store by id.
func (r *StoreRepository) GetStoreByID(id int) (*models.Store, error) {
	query := `
		SELECT id, name, scrape_strategy, settings, currency, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var store models.Store
	err := r.db.QueryRow(query, id).Scan(
		&store.ID, &store.Name, &store.ScrapeStrategy,
		&store.Settings, &store.Currency,
		&store.CreatedAt, &store.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store not found")
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &store, nil
}
