package notify

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"pricetrack/models"
)

func productWithNotifyPrice(threshold float64) *models.Product {
	return &models.Product{ID: 1, NotifyPrice: sql.NullFloat64{Float64: threshold, Valid: true}}
}

func productWithNotifyPercent(threshold float64) *models.Product {
	return &models.Product{ID: 1, NotifyPercent: sql.NullFloat64{Float64: threshold, Valid: true}}
}

func row(price float64) *models.PriceHistory {
	return &models.PriceHistory{Price: price}
}

func TestProductThresholdMet_AbsolutePrice(t *testing.T) {
	product := productWithNotifyPrice(100)

	assert.True(t, ProductThresholdMet(product, row(99.99), nil))
	assert.True(t, ProductThresholdMet(product, row(100), nil), "at the threshold counts")
	assert.False(t, ProductThresholdMet(product, row(100.01), nil))
}

func TestProductThresholdMet_PercentDrop(t *testing.T) {
	product := productWithNotifyPercent(20)
	first := row(200)

	assert.True(t, ProductThresholdMet(product, row(150), first), "25% drop beats 20%")
	assert.False(t, ProductThresholdMet(product, row(160), first), "exactly 20% is not a strict exceed")
	assert.False(t, ProductThresholdMet(product, row(190), first))
}

func TestProductThresholdMet_PercentNeedsBaseline(t *testing.T) {
	product := productWithNotifyPercent(20)

	assert.False(t, ProductThresholdMet(product, row(1), nil), "no first row, no baseline")
	assert.False(t, ProductThresholdMet(product, row(1), row(0)), "zero baseline never divides")
}

func TestProductThresholdMet_NoThresholdsConfigured(t *testing.T) {
	assert.False(t, ProductThresholdMet(&models.Product{ID: 1}, row(0.01), row(1000)))
}

func TestPriceChangedSinceLastNotification(t *testing.T) {
	current := row(50)

	assert.True(t, PriceChangedSinceLastNotification(nil, nil, current), "never notified before")

	assert.False(t, PriceChangedSinceLastNotification(row(50), nil, current), "unchanged since last alert")
	assert.False(t, PriceChangedSinceLastNotification(row(50), []models.PriceHistory{{Price: 50}}, current))

	assert.True(t, PriceChangedSinceLastNotification(row(60), nil, current), "price moved since last alert")
	assert.True(t, PriceChangedSinceLastNotification(row(50), []models.PriceHistory{{Price: 45}, {Price: 50}}, current),
		"a dip between identical endpoints still counts as movement")
}
