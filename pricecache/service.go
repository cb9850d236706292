package pricecache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricetrack/models"
)

// Repository is the storage surface the cache service needs: load the
// product's joined history and write back the derived cache fields.
type Repository interface {
	HistoryRowsForProduct(productID int) ([]models.HistoryRow, error)
	SaveProductCache(productID int, entries models.CacheEntries, currentPrice *float64, updatedAt time.Time) error
}

// Service rebuilds and persists product price caches.
type Service struct {
	repo        Repository
	horizonDays int
	now         func() time.Time
}

func NewService(repo Repository, horizonDays int) *Service {
	if horizonDays == 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Service{repo: repo, horizonDays: horizonDays, now: time.Now}
}

// RebuildProductPriceCache recomputes the product's price cache from its
// full history and persists the result. A product with no usable history
// yields an empty cache and a null current price; that is not an error.
func (s *Service) RebuildProductPriceCache(productID int) (models.CacheEntries, error) {
	rows, err := s.repo.HistoryRowsForProduct(productID)
	if err != nil {
		return nil, fmt.Errorf("load history for product %d: %w", productID, err)
	}

	now := s.now()
	entries, currentPrice := Rebuild(rows, s.horizonDays, now)

	if err := s.repo.SaveProductCache(productID, entries, currentPrice, now); err != nil {
		return nil, fmt.Errorf("save price cache for product %d: %w", productID, err)
	}

	log.Debug().
		Int("product_id", productID).
		Int("entries", len(entries)).
		Msg("price cache rebuilt")

	return entries, nil
}
