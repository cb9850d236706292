package pricecache

import (
	"sort"
	"time"

	"pricetrack/models"
)

const (
	// DefaultHorizonDays is the retention window for cache computation.
	DefaultHorizonDays = 365

	defaultCurrency = "USD"
	defaultLocale   = "en_US"

	dayFormat = "2006-01-02"
)

// Rebuild computes the full price cache for one product from its joined
// history rows. Rows must already be filtered to price > 0. Rows without a
// product URL are never aggregated; the grouping key is the URL itself.
// A horizonDays of zero or less disables retention filtering.
//
// The returned entries are sorted ascending by price then store name, and
// the second value is the overall current price (the first entry's price),
// or nil when no entries survive.
func Rebuild(rows []models.HistoryRow, horizonDays int, now time.Time) (models.CacheEntries, *float64) {
	groups := make(map[int64][]models.HistoryRow)
	var order []int64
	for _, row := range rows {
		if !row.ProductURLID.Valid {
			continue
		}
		key := row.ProductURLID.Int64
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	var cutoff time.Time
	if horizonDays > 0 {
		cutoff = now.UTC().AddDate(0, 0, -horizonDays)
	}

	entries := make(models.CacheEntries, 0, len(order))
	for _, key := range order {
		if entry := buildEntry(groups[key], cutoff); entry != nil {
			entries = append(entries, *entry)
		}
	}

	sortEntries(entries)

	var currentPrice *float64
	if len(entries) > 0 && entries[0].Price != nil {
		p := *entries[0].Price
		currentPrice = &p
	}

	return entries, currentPrice
}

// buildEntry aggregates one URL group into a cache entry, or returns nil
// when horizon filtering leaves no points.
func buildEntry(rows []models.HistoryRow, cutoff time.Time) *models.CacheEntry {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RecordedAt.UTC().Before(rows[j].RecordedAt.UTC())
	})

	history := make(map[string]float64)
	var lastScrape time.Time
	var latest models.HistoryRow
	haveLatest := false

	for _, row := range rows {
		recorded := row.RecordedAt.UTC()
		if !cutoff.IsZero() && recorded.Before(cutoff) {
			continue
		}

		day := recorded.Format(dayFormat)
		if existing, ok := history[day]; !ok || row.Price < existing {
			history[day] = row.Price
		}
		if recorded.After(lastScrape) {
			lastScrape = recorded
		}
		latest = row
		haveLatest = true
	}

	if len(history) == 0 {
		return nil
	}

	// A single point cannot carry a trend or render a sparkline; duplicate
	// it one day earlier at the same price.
	if len(history) == 1 {
		for day, price := range history {
			d, err := time.Parse(dayFormat, day)
			if err == nil {
				history[d.AddDate(0, 0, -1).Format(dayFormat)] = price
			}
			// Inserting into a ranged-over map may yield the new entry too;
			// stop after the sole original point so exactly one day is added.
			break
		}
	}

	days := make([]string, 0, len(history))
	for day := range history {
		days = append(days, day)
	}
	sort.Strings(days)

	current := history[days[len(days)-1]]
	min, max, sum := current, current, 0.0
	for _, day := range days {
		price := history[day]
		if price < min {
			min = price
		}
		if price > max {
			max = price
		}
		sum += price
	}
	avg := sum / float64(len(days))

	entry := &models.CacheEntry{
		StoreName:  latest.StoreName,
		URLID:      int(latest.ProductURLID.Int64),
		URL:        latest.URL,
		Trend:      classifyTrend(current, min, avg),
		Price:      &current,
		History:    history,
		LastScrape: lastScrape,
		Locale:     resolveLocale(latest),
		Currency:   resolveCurrency(latest),
		Aggregates: models.Aggregates{Min: min, Max: max, Avg: avg},
	}
	if haveLatest && latest.StoreID.Valid {
		id := latest.StoreID.Int64
		entry.StoreID = &id
	}

	return entry
}

// classifyTrend compares the latest bucket price against the group's own
// minimum and average. The none branch is only reachable for a flat
// trailing window sitting above a historical low.
func classifyTrend(current, min, avg float64) models.Trend {
	switch {
	case current <= min:
		return models.TrendLowest
	case current < avg:
		return models.TrendDown
	case current > avg:
		return models.TrendUp
	default:
		return models.TrendNone
	}
}

// resolveCurrency prefers the history row's currency, then the store's
// locale settings, then the default.
func resolveCurrency(row models.HistoryRow) string {
	if row.Currency != "" {
		return row.Currency
	}
	if row.LocaleCurrency != "" {
		return row.LocaleCurrency
	}
	return defaultCurrency
}

func resolveLocale(row models.HistoryRow) string {
	if row.Locale != "" {
		return row.Locale
	}
	return defaultLocale
}

// sortEntries orders entries ascending by price with missing prices last,
// breaking ties alphabetically by store name with empty names last.
func sortEntries(entries models.CacheEntries) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Price == nil && b.Price == nil:
			return lessStoreName(a.StoreName, b.StoreName)
		case a.Price == nil:
			return false
		case b.Price == nil:
			return true
		case *a.Price != *b.Price:
			return *a.Price < *b.Price
		default:
			return lessStoreName(a.StoreName, b.StoreName)
		}
	})
}

func lessStoreName(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	return a < b
}
