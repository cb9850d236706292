package fetcher

import (
	"strconv"
	"strings"

	"pricetrack/config"
	"pricetrack/models"
)

// Keys consumed from a store's scraper_service_settings blob; everything
// else is passed through to the scraper in the options payload.
var reservedSettingKeys = map[string]bool{
	"base_url":         true,
	"scraper_base_url": true,
	"endpoint":         true,
	"connect_timeout":  true,
	"request_timeout":  true,
}

// buildRequest merges global scraper defaults with the store's overrides
// and constructs the outgoing scrape payload for one product URL.
func buildRequest(cfg *config.Settings, productURL *models.ProductURL, store *models.Store) (RequestConfig, *ScrapeRequest) {
	reqCfg := RequestConfig{
		BaseURL:        cfg.ScraperBaseURL,
		ConnectTimeout: cfg.ScraperConnectTimeout,
		RequestTimeout: cfg.ScraperRequestTimeout,
	}

	service := cfg.ScraperService
	options := map[string]interface{}{}

	var strategy models.StrategyMap
	if store != nil {
		if s := store.Settings.String("scraper_service"); s != "" {
			service = s
		}

		settings := parseServiceSettings(store.Settings["scraper_service_settings"])

		// First non-empty endpoint key wins and replaces the global base URL.
		for _, key := range []string{"base_url", "scraper_base_url", "endpoint"} {
			if v := settingString(settings, key); v != "" {
				reqCfg.BaseURL = strings.TrimRight(v, "/")
				break
			}
		}

		reqCfg.ConnectTimeout = settingFloat(settings, "connect_timeout", reqCfg.ConnectTimeout)
		reqCfg.RequestTimeout = settingFloat(settings, "request_timeout", reqCfg.RequestTimeout)

		for key, value := range settings {
			if !reservedSettingKeys[key] {
				options[key] = value
			}
		}

		if ls := store.Settings.LocaleSettings(); ls != nil {
			options["locale_settings"] = ls
		}

		if len(store.ScrapeStrategy) > 0 {
			strategy = store.ScrapeStrategy
		}
	}

	payload := &ScrapeRequest{
		URL:      productURL.URL,
		Strategy: strategy,
	}
	if service != config.DefaultScraperService {
		payload.Service = service
	}
	if len(options) > 0 {
		payload.Options = options
	}

	return reqCfg, payload
}

// parseServiceSettings accepts either a newline-delimited key=value blob
// or a mapping. Anything else yields no overrides.
func parseServiceSettings(raw interface{}) map[string]interface{} {
	switch v := raw.(type) {
	case string:
		settings := map[string]interface{}{}
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			settings[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		return settings
	case map[string]interface{}:
		settings := make(map[string]interface{}, len(v))
		for key, value := range v {
			settings[key] = value
		}
		return settings
	default:
		return map[string]interface{}{}
	}
}

func settingString(settings map[string]interface{}, key string) string {
	if v, ok := settings[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// settingFloat parses a float override. Unparsable values are ignored and
// the previous value kept; this never fails.
func settingFloat(settings map[string]interface{}, key string, fallback float64) float64 {
	switch v := settings[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
