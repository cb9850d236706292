package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pricetrack/models"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AddPriceHistory inserts a new price point and fills in its generated id
// and recorded_at.
func (r *HistoryRepository) AddPriceHistory(h *models.PriceHistory) error {
	query := `
		INSERT INTO price_history (product_id, product_url_id, price, currency, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recorded_at
	`

	recordedAt := h.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	err := r.db.QueryRow(query, h.ProductID, h.ProductURLID, h.Price, h.Currency, recordedAt).
		Scan(&h.ID, &h.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to add price history: %w", err)
	}

	return nil
}

// HistoryRowsForProduct loads every positive-price history row of the
// product, left-joined to its product URL and store. This is the cache
// engine's input; non-positive prices never reach aggregation.
func (r *HistoryRepository) HistoryRowsForProduct(productID int) ([]models.HistoryRow, error) {
	query := `
		SELECT ph.id, ph.product_id, ph.product_url_id, ph.price, ph.currency, ph.recorded_at, ph.notified,
		       COALESCE(pu.url, ''), pu.store_id, COALESCE(s.name, ''), COALESCE(s.currency, ''), s.settings
		FROM price_history ph
		LEFT JOIN product_urls pu ON pu.id = ph.product_url_id
		LEFT JOIN stores s ON s.id = pu.store_id
		WHERE ph.product_id = $1 AND ph.price > 0
		ORDER BY ph.recorded_at ASC
	`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history rows: %w", err)
	}
	defer rows.Close()

	var result []models.HistoryRow
	for rows.Next() {
		var row models.HistoryRow
		var storeID sql.NullInt64
		var settings models.StoreSettings
		err := rows.Scan(
			&row.ID, &row.ProductID, &row.ProductURLID,
			&row.Price, &row.Currency, &row.RecordedAt, &row.Notified,
			&row.URL, &storeID, &row.StoreName, &row.StoreCurrency, &settings,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		row.StoreID = storeID
		row.LocaleCurrency = settings.LocaleCurrency()
		row.Locale = settings.Locale()
		result = append(result, row)
	}

	return result, rows.Err()
}

// FirstHistoryForProduct returns the product's earliest history row, or
// nil when the product has no history.
func (r *HistoryRepository) FirstHistoryForProduct(productID int) (*models.PriceHistory, error) {
	query := `
		SELECT id, product_id, product_url_id, price, currency, recorded_at, notified
		FROM price_history
		WHERE product_id = $1
		ORDER BY recorded_at ASC, id ASC
		LIMIT 1
	`

	var h models.PriceHistory
	err := r.db.QueryRow(query, productID).Scan(
		&h.ID, &h.ProductID, &h.ProductURLID,
		&h.Price, &h.Currency, &h.RecordedAt, &h.Notified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first history row: %w", err)
	}

	return &h, nil
}

// LastNotifiedForURL returns the most recent history row of the URL that
// has already triggered a notification, or nil when none has.
func (r *HistoryRepository) LastNotifiedForURL(productURLID int) (*models.PriceHistory, error) {
	query := `
		SELECT id, product_id, product_url_id, price, currency, recorded_at, notified
		FROM price_history
		WHERE product_url_id = $1 AND notified = true
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	var h models.PriceHistory
	err := r.db.QueryRow(query, productURLID).Scan(
		&h.ID, &h.ProductID, &h.ProductURLID,
		&h.Price, &h.Currency, &h.RecordedAt, &h.Notified,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last notified row: %w", err)
	}

	return &h, nil
}

// HistoryForURLSince returns the URL's history rows recorded after the
// given time, ascending.
func (r *HistoryRepository) HistoryForURLSince(productURLID int, since time.Time) ([]models.PriceHistory, error) {
	query := `
		SELECT id, product_id, product_url_id, price, currency, recorded_at, notified
		FROM price_history
		WHERE product_url_id = $1 AND recorded_at > $2
		ORDER BY recorded_at ASC, id ASC
	`

	rows, err := r.db.Query(query, productURLID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get history rows since: %w", err)
	}
	defer rows.Close()

	var result []models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		err := rows.Scan(
			&h.ID, &h.ProductID, &h.ProductURLID,
			&h.Price, &h.Currency, &h.RecordedAt, &h.Notified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		result = append(result, h)
	}

	return result, rows.Err()
}

// MarkNotified flags a history row as having triggered an alert.
func (r *HistoryRepository) MarkNotified(historyID int) error {
	query := `UPDATE price_history SET notified = true WHERE id = $1`
	if _, err := r.db.Exec(query, historyID); err != nil {
		return fmt.Errorf("failed to mark history notified: %w", err)
	}
	return nil
}
