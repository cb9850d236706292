package fetcher

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pricetrack/config"
	"pricetrack/models"
	"pricetrack/notify"
	"pricetrack/scraper"
)

// ErrScraperNotConfigured means no scraper base URL could be resolved for
// a store or from the global settings. It is the only error class that
// crosses the orchestrator boundary; per-URL scrape failures are reported
// in FetchResult instead.
var ErrScraperNotConfigured = errors.New("no scraper base URL configured")

// taskPriceFetch names the schedule-run marker updated after every batch.
const taskPriceFetch = "price_fetch"

// ProductStore is the product read surface the orchestrator needs.
type ProductStore interface {
	GetProductByID(id int) (*models.Product, error)
	GetActiveProducts(ownerID *int) ([]models.Product, error)
}

// URLStore resolves product URLs.
type URLStore interface {
	GetURLByID(id int) (*models.ProductURL, error)
	GetActiveURLsForProduct(productID int) ([]models.ProductURL, error)
}

// StoreCatalog resolves stores.
type StoreCatalog interface {
	GetStoreByID(id int) (*models.Store, error)
}

// HistoryStore persists and queries price history.
type HistoryStore interface {
	AddPriceHistory(h *models.PriceHistory) error
	FirstHistoryForProduct(productID int) (*models.PriceHistory, error)
	LastNotifiedForURL(productURLID int) (*models.PriceHistory, error)
	HistoryForURLSince(productURLID int, since time.Time) ([]models.PriceHistory, error)
	MarkNotified(historyID int) error
}

// AuditStore records schedule-run markers and audit-log entries.
type AuditStore interface {
	RecordScheduleRun(taskName string) error
	RecordAuditLog(action string, actorID int, entityType string, entityID int, ipAddress string, context interface{}) error
}

// CacheRebuilder refreshes a product's derived price cache.
type CacheRebuilder interface {
	RebuildProductPriceCache(productID int) (models.CacheEntries, error)
}

// Actor identifies who triggered a refresh, for audit logging.
type Actor struct {
	ID        int
	IPAddress string
}

// Service orchestrates price fetches: it resolves scraper configuration,
// calls the scraper service, persists history, rebuilds the price cache
// and dispatches notifications. All outbound calls are sequential and
// blocking; batch parallelism belongs to an external job queue.
type Service struct {
	cfg      *config.Settings
	products ProductStore
	urls     URLStore
	stores   StoreCatalog
	history  HistoryStore
	audit    AuditStore
	cache    CacheRebuilder
	notifier notify.Notifier
	client   ScrapeClient
	parser   *scraper.LocaleParser
}

func NewService(cfg *config.Settings, products ProductStore, urls URLStore, stores StoreCatalog,
	history HistoryStore, audit AuditStore, cache CacheRebuilder, notifier notify.Notifier, client ScrapeClient) *Service {
	return &Service{
		cfg:      cfg,
		products: products,
		urls:     urls,
		stores:   stores,
		history:  history,
		audit:    audit,
		cache:    cache,
		notifier: notifier,
		client:   client,
		parser:   scraper.NewLocaleParser(),
	}
}

// FetchPriceForURL fetches the current price for one product URL,
// persists a history row, rebuilds the product's price cache and fires a
// notification when the product's threshold newly triggers. Scrape
// failures come back inside the result; only missing scraper
// configuration (or a storage failure) returns an error.
func (s *Service) FetchPriceForURL(productURLID int) (models.FetchResult, error) {
	failed := func(reason string) models.FetchResult {
		return models.FetchResult{ProductURLID: productURLID, Reason: reason}
	}

	productURL, err := s.urls.GetURLByID(productURLID)
	if err != nil {
		return failed(""), fmt.Errorf("resolve product URL %d: %w", productURLID, err)
	}

	var store *models.Store
	if productURL.StoreID.Valid {
		store, err = s.stores.GetStoreByID(int(productURL.StoreID.Int64))
		if err != nil {
			return failed(""), fmt.Errorf("resolve store for URL %d: %w", productURLID, err)
		}
	}

	reqCfg, payload := buildRequest(s.cfg, productURL, store)
	if reqCfg.BaseURL == "" {
		storeName := ""
		if store != nil {
			storeName = store.Name
		}
		return failed(""), fmt.Errorf("%w (store %q)", ErrScraperNotConfigured, storeName)
	}

	price, currency, reason := s.obtainPrice(reqCfg, payload, productURL, store)
	if reason != "" {
		log.Warn().
			Int("product_url_id", productURL.ID).
			Str("url", productURL.URL).
			Str("reason", reason).
			Msg("price fetch failed")
		return failed(reason), nil
	}
	if currency == "" {
		currency = "USD"
	}

	history := &models.PriceHistory{
		ProductID:    productURL.ProductID,
		ProductURLID: sql.NullInt64{Int64: int64(productURL.ID), Valid: true},
		Price:        price,
		Currency:     currency,
	}
	if err := s.history.AddPriceHistory(history); err != nil {
		return failed(""), err
	}

	if _, err := s.cache.RebuildProductPriceCache(productURL.ProductID); err != nil {
		return failed(""), err
	}

	s.maybeNotify(productURL, history)

	log.Info().
		Int("product_url_id", productURL.ID).
		Float64("price", price).
		Str("currency", currency).
		Msg("price recorded")

	return models.FetchResult{
		ProductURLID: productURL.ID,
		Success:      true,
		Price:        &price,
		Currency:     currency,
	}, nil
}

// obtainPrice runs the primary scrape and, where permitted, the article
// fallback. It returns the parsed price and currency, or a failure reason.
func (s *Service) obtainPrice(reqCfg RequestConfig, payload *ScrapeRequest, productURL *models.ProductURL, store *models.Store) (float64, string, string) {
	resp, err := s.client.Scrape(reqCfg, payload)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.NotFound() {
			// A definite HTTP status error: the endpoint exists and
			// rejected us, no fallback.
			log.Warn().Str("url", productURL.URL).Int("status", statusErr.Code).Msg("scraper rejected request")
			return 0, "", models.ReasonHTTPError
		}
		// 404 (endpoint not implemented) or a transport failure: try the
		// article fallback before giving up.
		if price, currency, ok := s.fetchFallback(reqCfg, productURL, store); ok {
			return price, currency, ""
		}
		return 0, "", models.ReasonHTTPError
	}

	if isEmptyPrice(resp.Price) {
		if price, currency, ok := s.fetchFallback(reqCfg, productURL, store); ok {
			return price, currency, ""
		}
		return 0, "", models.ReasonMissingPrice
	}

	price, symbolCurrency, err := coercePrice(resp.Price, s.parser)
	if err != nil {
		log.Warn().Str("url", productURL.URL).Interface("price", resp.Price).Msg("unparseable price from scraper")
		return 0, "", models.ReasonInvalidPrice
	}

	currency := scraper.NormalizeCurrency(resp.Currency)
	if currency == "" {
		currency = symbolCurrency
	}
	return price, currency, ""
}

// fetchFallback GETs the rendered page through the article endpoint and
// extracts the price locally with the store's price strategy. It never
// fails loudly: any miss degrades to "no fallback data" and the caller's
// original error classification stands.
func (s *Service) fetchFallback(reqCfg RequestConfig, productURL *models.ProductURL, store *models.Store) (float64, string, bool) {
	if store == nil {
		return 0, "", false
	}
	rule := store.ScrapeStrategy["price"]
	if rule.IsZero() {
		return 0, "", false
	}

	article, err := s.client.FetchArticle(reqCfg, productURL.URL)
	if err != nil {
		log.Debug().Str("url", productURL.URL).Err(err).Msg("article fallback failed")
		return 0, "", false
	}

	html := article.HTML()
	if html == "" {
		return 0, "", false
	}

	price, _, err := scraper.ExtractPrice(html, rule, s.parser)
	if err != nil {
		log.Debug().Str("url", productURL.URL).Err(err).Msg("fallback extraction failed")
		return 0, "", false
	}

	currency := scraper.NormalizeCurrency(article.Currency)
	if currency == "" && store.Currency != "" {
		currency = scraper.NormalizeCurrency(store.Currency)
	}
	if currency == "" {
		currency = "USD"
	}

	return price, currency, true
}

// isEmptyPrice treats a null or blank price field as absence, never zero.
func isEmptyPrice(raw interface{}) bool {
	if raw == nil {
		return true
	}
	if str, ok := raw.(string); ok && strings.TrimSpace(str) == "" {
		return true
	}
	return false
}

// coercePrice turns the scraper's price field into a number. Numbers pass
// through; strings are stripped of thousands separators and currency
// symbols before decimal parsing.
func coercePrice(raw interface{}, parser *scraper.LocaleParser) (float64, string, error) {
	switch v := raw.(type) {
	case float64:
		return v, "", nil
	case int:
		return float64(v), "", nil
	case string:
		value, symbol, err := parser.ParsePrice(v)
		if err != nil {
			return 0, "", err
		}
		return value, scraper.NormalizeCurrency(symbol), nil
	default:
		return 0, "", fmt.Errorf("unsupported price type %T", raw)
	}
}

// maybeNotify dispatches a price alert when the product's threshold is met
// and the price actually changed since the last notified row. Notification
// failures are logged, never propagated.
func (s *Service) maybeNotify(productURL *models.ProductURL, history *models.PriceHistory) {
	product, err := s.products.GetProductByID(productURL.ProductID)
	if err != nil {
		log.Warn().Err(err).Int("product_id", productURL.ProductID).Msg("skip notification, product load failed")
		return
	}

	first, err := s.history.FirstHistoryForProduct(product.ID)
	if err != nil {
		log.Warn().Err(err).Int("product_id", product.ID).Msg("skip notification, first history load failed")
		return
	}

	if !notify.ProductThresholdMet(product, history, first) {
		return
	}

	lastNotified, err := s.history.LastNotifiedForURL(productURL.ID)
	if err != nil {
		log.Warn().Err(err).Int("product_url_id", productURL.ID).Msg("skip notification, notified lookup failed")
		return
	}
	var since []models.PriceHistory
	if lastNotified != nil {
		since, err = s.history.HistoryForURLSince(productURL.ID, lastNotified.RecordedAt)
		if err != nil {
			log.Warn().Err(err).Int("product_url_id", productURL.ID).Msg("skip notification, history lookup failed")
			return
		}
	}

	if !notify.PriceChangedSinceLastNotification(lastNotified, since, history) {
		return
	}

	if err := s.notifier.SendPriceAlert(product, productURL, history); err != nil {
		log.Warn().Err(err).Int("product_id", product.ID).Msg("price alert dispatch failed")
		return
	}

	if err := s.history.MarkNotified(history.ID); err != nil {
		log.Warn().Err(err).Int("history_id", history.ID).Msg("failed to mark history notified")
	}
}

// UpdateProductPrices refreshes every active URL of one product. URLs are
// processed in ascending id order and failures are isolated per URL; when
// an owner scope is given and the product belongs to someone else, the
// summary comes back empty without an error. A scrape-failure notification
// fires at most once per batch.
func (s *Service) UpdateProductPrices(productID int, ownerID *int, actor *Actor) (models.BatchSummary, error) {
	var summary models.BatchSummary

	product, err := s.products.GetProductByID(productID)
	if err != nil {
		return summary, err
	}
	if ownerID != nil && !product.OwnedBy(*ownerID) {
		return summary, nil
	}

	urls, err := s.urls.GetActiveURLsForProduct(productID)
	if err != nil {
		return summary, err
	}

	for _, productURL := range urls {
		result, err := s.FetchPriceForURL(productURL.ID)
		if err != nil {
			// Configuration and storage errors abort the whole refresh.
			return summary, err
		}
		summary.Add(result)
	}

	if summary.HasFailures() {
		if err := s.notifier.NotifyScrapeFailure(product, summary); err != nil {
			log.Warn().Err(err).Int("product_id", productID).Msg("scrape-failure notification failed")
		}
	}

	if err := s.audit.RecordScheduleRun(taskPriceFetch); err != nil {
		log.Warn().Err(err).Msg("failed to record schedule run")
	}
	if actor != nil {
		err := s.audit.RecordAuditLog("product.price_refresh", actor.ID, "product", productID, actor.IPAddress, summary)
		if err != nil {
			log.Warn().Err(err).Int("product_id", productID).Msg("failed to record audit log")
		}
	}

	log.Info().
		Int("product_id", productID).
		Int("total", summary.TotalURLs).
		Int("ok", summary.SuccessfulURLs).
		Int("failed", summary.FailedURLs).
		Msg("product refresh finished")

	return summary, nil
}

// UpdateAllProducts refreshes the whole active catalog, optionally scoped
// to one owner. Product ids are partitioned into fixed-size chunks to
// bound the working set; chunks run sequentially.
func (s *Service) UpdateAllProducts(ownerID *int, actor *Actor) (models.BatchSummary, error) {
	var summary models.BatchSummary

	products, err := s.products.GetActiveProducts(ownerID)
	if err != nil {
		return summary, err
	}

	chunkSize := s.cfg.PriceFetchChunkSize
	if chunkSize <= 0 {
		chunkSize = 25
	}

	ids := make([]int, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}

	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			productSummary, err := s.UpdateProductPrices(id, ownerID, actor)
			if err != nil {
				return summary, err
			}
			summary.Merge(productSummary)
		}
	}

	return summary, nil
}
