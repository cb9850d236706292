package repository

import (
	"database/sql"
	"fmt"
	"time"

	"pricetrack/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetProductByID returns a product by id.
func (r *ProductRepository) GetProductByID(id int) (*models.Product, error) {
	query := `
		SELECT id, name, owner_id, current_price, price_cache, notify_price, notify_percent, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	err := r.db.QueryRow(query, id).Scan(
		&product.ID, &product.Name, &product.OwnerID,
		&product.CurrentPrice, &product.PriceCache,
		&product.NotifyPrice, &product.NotifyPercent,
		&product.IsActive, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetActiveProducts returns all active products ordered by id, optionally
// scoped to one owner.
func (r *ProductRepository) GetActiveProducts(ownerID *int) ([]models.Product, error) {
	query := `
		SELECT id, name, owner_id, current_price, price_cache, notify_price, notify_percent, is_active, created_at, updated_at
		FROM products
		WHERE is_active = true
	`
	args := []interface{}{}
	if ownerID != nil {
		query += ` AND owner_id = $1`
		args = append(args, *ownerID)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get active products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID, &product.Name, &product.OwnerID,
			&product.CurrentPrice, &product.PriceCache,
			&product.NotifyPrice, &product.NotifyPercent,
			&product.IsActive, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// SaveProductCache writes the recomputed price cache, current price and
// updated_at onto the product. The cache is replaced wholesale, never
// patched.
func (r *ProductRepository) SaveProductCache(productID int, entries models.CacheEntries, currentPrice *float64, updatedAt time.Time) error {
	query := `
		UPDATE products
		SET price_cache = $2, current_price = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(query, productID, entries, currentPrice, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save product price cache: %w", err)
	}

	return nil
}
