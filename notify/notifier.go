package notify

import (
	"github.com/rs/zerolog/log"

	"pricetrack/models"
)

// Notifier is the alert delivery collaborator. The fetcher decides when an
// alert is warranted; implementations only deliver.
type Notifier interface {
	SendPriceAlert(product *models.Product, productURL *models.ProductURL, history *models.PriceHistory) error
	NotifyScrapeFailure(product *models.Product, summary models.BatchSummary) error
}

// LogNotifier writes alerts to the structured log. It is the default
// delivery channel; richer channels implement Notifier the same way.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) SendPriceAlert(product *models.Product, productURL *models.ProductURL, history *models.PriceHistory) error {
	log.Info().
		Int("product_id", product.ID).
		Str("product", product.Name).
		Int("product_url_id", productURL.ID).
		Float64("price", history.Price).
		Str("currency", history.Currency).
		Msg("price alert")
	return nil
}

func (n *LogNotifier) NotifyScrapeFailure(product *models.Product, summary models.BatchSummary) error {
	log.Warn().
		Int("product_id", product.ID).
		Str("product", product.Name).
		Int("failed_urls", summary.FailedURLs).
		Int("total_urls", summary.TotalURLs).
		Msg("scrape failures during refresh")
	return nil
}
