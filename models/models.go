package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Trend classifies the latest price of a cache entry relative to the
// entry's own recent average and minimum.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendLowest Trend = "lowest"
	TrendNone   Trend = "none"
)

// Product is a catalog item whose price is tracked across stores.
// CurrentPrice and PriceCache are derived state, fully recomputed by the
// price cache engine; they are never a source of truth.
type Product struct {
	ID            int             `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	OwnerID       sql.NullInt64   `json:"-" db:"owner_id"`
	CurrentPrice  sql.NullFloat64 `json:"current_price" db:"current_price"`
	PriceCache    CacheEntries    `json:"price_cache" db:"price_cache"`
	NotifyPrice   sql.NullFloat64 `json:"notify_price" db:"notify_price"`
	NotifyPercent sql.NullFloat64 `json:"notify_percent" db:"notify_percent"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// OwnedBy reports whether the product belongs to the given owner id.
func (p *Product) OwnedBy(ownerID int) bool {
	return p.OwnerID.Valid && p.OwnerID.Int64 == int64(ownerID)
}

// MarshalJSON renders nullable prices as plain numbers or null.
func (p *Product) MarshalJSON() ([]byte, error) {
	type Alias Product
	return json.Marshal(&struct {
		*Alias
		CurrentPrice  *float64 `json:"current_price"`
		NotifyPrice   *float64 `json:"notify_price"`
		NotifyPercent *float64 `json:"notify_percent"`
	}{
		Alias:         (*Alias)(p),
		CurrentPrice:  nullFloatPtr(p.CurrentPrice),
		NotifyPrice:   nullFloatPtr(p.NotifyPrice),
		NotifyPercent: nullFloatPtr(p.NotifyPercent),
	})
}

func nullFloatPtr(f sql.NullFloat64) *float64 {
	if f.Valid {
		v := f.Float64
		return &v
	}
	return nil
}

// Store is a merchant whose product pages are scraped. ScrapeStrategy maps
// logical fields (title, price, image) to extraction rules; Settings is an
// arbitrary key/value blob carrying scraper-service overrides and locale
// configuration.
type Store struct {
	ID             int           `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	ScrapeStrategy StrategyMap   `json:"scrape_strategy" db:"scrape_strategy"`
	Settings       StoreSettings `json:"settings" db:"settings"`
	Currency       string        `json:"currency" db:"currency"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// StrategyRule describes how to extract one field from a product page:
// either a CSS selector (with an optional attribute to read instead of the
// node text) or a regular expression.
type StrategyRule struct {
	Selector  string `json:"selector,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Regex     string `json:"regex,omitempty"`
}

// IsZero reports whether the rule carries no extraction instruction.
func (r StrategyRule) IsZero() bool {
	return r.Selector == "" && r.Regex == ""
}

// StrategyMap maps field names to extraction rules.
type StrategyMap map[string]StrategyRule

// Value implements driver.Valuer for JSONB columns.
func (m StrategyMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *StrategyMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

// StoreSettings is the free-form settings blob on a store.
type StoreSettings map[string]interface{}

// Value implements driver.Valuer for JSONB columns.
func (s StoreSettings) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB columns.
func (s *StoreSettings) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// String returns the string value stored under key, or "" when absent or
// not a string.
func (s StoreSettings) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Map returns the nested map stored under key, or nil.
func (s StoreSettings) Map(key string) map[string]interface{} {
	if v, ok := s[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// LocaleSettings returns the locale_settings block, or nil.
func (s StoreSettings) LocaleSettings() map[string]interface{} {
	return s.Map("locale_settings")
}

// LocaleCurrency returns locale_settings.currency, or "".
func (s StoreSettings) LocaleCurrency() string {
	if ls := s.LocaleSettings(); ls != nil {
		if c, ok := ls["currency"].(string); ok {
			return c
		}
	}
	return ""
}

// Locale returns locale_settings.locale, or "".
func (s StoreSettings) Locale() string {
	if ls := s.LocaleSettings(); ls != nil {
		if l, ok := ls["locale"].(string); ok {
			return l
		}
	}
	return ""
}

// ProductURL links a product to one store page. Active URLs participate in
// bulk refreshes; the primary flag is maintained by the catalog layer.
type ProductURL struct {
	ID        int           `json:"id" db:"id"`
	ProductID int           `json:"product_id" db:"product_id"`
	StoreID   sql.NullInt64 `json:"store_id" db:"store_id"`
	URL       string        `json:"url" db:"url"`
	IsPrimary bool          `json:"is_primary" db:"is_primary"`
	IsActive  bool          `json:"is_active" db:"is_active"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// PriceHistory is one observed price point. Rows are append-only; only the
// Notified flag is mutated after creation, once an alert has fired for it.
type PriceHistory struct {
	ID           int           `json:"id" db:"id"`
	ProductID    int           `json:"product_id" db:"product_id"`
	ProductURLID sql.NullInt64 `json:"product_url_id" db:"product_url_id"`
	Price        float64       `json:"price" db:"price"`
	Currency     string        `json:"currency" db:"currency"`
	RecordedAt   time.Time     `json:"recorded_at" db:"recorded_at"`
	Notified     bool          `json:"notified" db:"notified"`
}

// HistoryRow is a price history row joined with its product URL and store,
// the shape the cache engine consumes.
type HistoryRow struct {
	PriceHistory
	URL            string
	StoreID        sql.NullInt64
	StoreName      string
	StoreCurrency  string
	LocaleCurrency string
	Locale         string
}

// Aggregates summarizes the retained day-bucket prices of one cache entry.
type Aggregates struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// CacheEntry is the per-URL derived summary stored inside a product's
// price cache: day-bucketed history, trend, and aggregates.
type CacheEntry struct {
	StoreID    *int64             `json:"store_id"`
	StoreName  string             `json:"store_name"`
	URLID      int                `json:"url_id"`
	URL        string             `json:"url"`
	Trend      Trend              `json:"trend"`
	Price      *float64           `json:"price"`
	History    map[string]float64 `json:"history"`
	LastScrape time.Time          `json:"last_scrape"`
	Locale     string             `json:"locale"`
	Currency   string             `json:"currency"`
	Aggregates Aggregates         `json:"aggregates"`
}

// CacheEntries is the ordered price cache blob on a product.
type CacheEntries []CacheEntry

// Value implements driver.Valuer for JSONB columns.
func (c CacheEntries) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB columns.
func (c *CacheEntries) Scan(src interface{}) error {
	return scanJSON(src, c)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

// Fetch failure reasons. A successful fetch carries no reason.
const (
	ReasonHTTPError    = "http_error"
	ReasonMissingPrice = "missing_price"
	ReasonInvalidPrice = "invalid_price"
)

// FetchResult is the outcome of a single-URL price fetch. Per-URL failures
// are reported here, never raised.
type FetchResult struct {
	ProductURLID int      `json:"product_url_id"`
	Success      bool     `json:"success"`
	Price        *float64 `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// BatchSummary accumulates fetch results across the URLs of one product,
// or across products for a catalog-wide refresh.
type BatchSummary struct {
	TotalURLs      int           `json:"total_urls"`
	SuccessfulURLs int           `json:"successful_urls"`
	FailedURLs     int           `json:"failed_urls"`
	Results        []FetchResult `json:"results"`
}

// Add records one fetch result in the summary.
func (s *BatchSummary) Add(r FetchResult) {
	s.TotalURLs++
	if r.Success {
		s.SuccessfulURLs++
	} else {
		s.FailedURLs++
	}
	s.Results = append(s.Results, r)
}

// Merge folds another summary into this one.
func (s *BatchSummary) Merge(other BatchSummary) {
	s.TotalURLs += other.TotalURLs
	s.SuccessfulURLs += other.SuccessfulURLs
	s.FailedURLs += other.FailedURLs
	s.Results = append(s.Results, other.Results...)
}

// HasFailures reports whether any URL in the batch failed.
func (s *BatchSummary) HasFailures() bool {
	return s.FailedURLs > 0
}
