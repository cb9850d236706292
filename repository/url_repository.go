package repository

import (
	"database/sql"
	"fmt"

	"pricetrack/models"
)

type URLRepository struct {
	db *sql.DB
}

func NewURLRepository(db *sql.DB) *URLRepository {
	return &URLRepository{db: db}
}

// GetURLByID returns a product URL by id.
func (r *URLRepository) GetURLByID(id int) (*models.ProductURL, error) {
	query := `
		SELECT id, product_id, store_id, url, is_primary, is_active, created_at
		FROM product_urls
		WHERE id = $1
	`

	var url models.ProductURL
	err := r.db.QueryRow(query, id).Scan(
		&url.ID, &url.ProductID, &url.StoreID,
		&url.URL, &url.IsPrimary, &url.IsActive, &url.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product URL not found")
		}
		return nil, fmt.Errorf("failed to get product URL: %w", err)
	}

	return &url, nil
}

// GetActiveURLsForProduct returns the product's active URLs in ascending
// id order, the order bulk refreshes process them in.
func (r *URLRepository) GetActiveURLsForProduct(productID int) ([]models.ProductURL, error) {
	query := `
		SELECT id, product_id, store_id, url, is_primary, is_active, created_at
		FROM product_urls
		WHERE product_id = $1 AND is_active = true
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product URLs: %w", err)
	}
	defer rows.Close()

	var urls []models.ProductURL
	for rows.Next() {
		var url models.ProductURL
		err := rows.Scan(
			&url.ID, &url.ProductID, &url.StoreID,
			&url.URL, &url.IsPrimary, &url.IsActive, &url.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product URL: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}
