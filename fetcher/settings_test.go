package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetrack/config"
	"pricetrack/models"
)

func testSettings() *config.Settings {
	return &config.Settings{
		ScraperBaseURL:        "http://scraper:3000",
		ScraperService:        config.DefaultScraperService,
		ScraperConnectTimeout: 5.0,
		ScraperRequestTimeout: 30.0,
	}
}

func testURL() *models.ProductURL {
	return &models.ProductURL{ID: 1, ProductID: 1, URL: "https://store.example/item"}
}

func TestBuildRequest_Defaults(t *testing.T) {
	reqCfg, payload := buildRequest(testSettings(), testURL(), nil)

	assert.Equal(t, "http://scraper:3000", reqCfg.BaseURL)
	assert.Equal(t, 5.0, reqCfg.ConnectTimeout)
	assert.Equal(t, 30.0, reqCfg.RequestTimeout)
	assert.Equal(t, "https://store.example/item", payload.URL)
	assert.Empty(t, payload.Service)
	assert.Nil(t, payload.Options)
	assert.Nil(t, payload.Strategy)
}

func TestBuildRequest_UnparsableTimeoutIsIgnored(t *testing.T) {
	store := &models.Store{
		Settings: models.StoreSettings{
			"scraper_service_settings": "connect_timeout=abc\nrequest_timeout=15",
		},
	}

	reqCfg, _ := buildRequest(testSettings(), testURL(), store)

	assert.Equal(t, 5.0, reqCfg.ConnectTimeout, "unparsable override keeps the global default")
	assert.Equal(t, 15.0, reqCfg.RequestTimeout)
}

func TestBuildRequest_BaseURLOverridePriority(t *testing.T) {
	store := &models.Store{
		Settings: models.StoreSettings{
			"scraper_service_settings": "endpoint=http://last/\nbase_url=http://first",
		},
	}

	reqCfg, _ := buildRequest(testSettings(), testURL(), store)

	assert.Equal(t, "http://first", reqCfg.BaseURL)
}

func TestBuildRequest_MappingSettingsAndPassthrough(t *testing.T) {
	store := &models.Store{
		ScrapeStrategy: models.StrategyMap{
			"price": {Selector: ".price"},
		},
		Settings: models.StoreSettings{
			"scraper_service": "browser",
			"scraper_service_settings": map[string]interface{}{
				"scraper_base_url": "http://override:4000",
				"request_timeout":  12.5,
				"render_js":        "true",
			},
			"locale_settings": map[string]interface{}{
				"currency": "EUR",
				"locale":   "de_DE",
			},
		},
	}

	reqCfg, payload := buildRequest(testSettings(), testURL(), store)

	assert.Equal(t, "http://override:4000", reqCfg.BaseURL)
	assert.Equal(t, 12.5, reqCfg.RequestTimeout)
	assert.Equal(t, "browser", payload.Service)
	require.NotNil(t, payload.Options)
	assert.Equal(t, "true", payload.Options["render_js"])
	assert.Equal(t, store.Settings.LocaleSettings(), payload.Options["locale_settings"])
	assert.Equal(t, store.ScrapeStrategy, payload.Strategy)
}

func TestParseServiceSettings_BlankAndMalformedLines(t *testing.T) {
	settings := parseServiceSettings("  \nfoo=bar\nnot a pair\n baz = qux ")

	assert.Equal(t, map[string]interface{}{"foo": "bar", "baz": "qux"}, settings)
}

func TestParseServiceSettings_UnsupportedType(t *testing.T) {
	assert.Empty(t, parseServiceSettings(42))
	assert.Empty(t, parseServiceSettings(nil))
}
