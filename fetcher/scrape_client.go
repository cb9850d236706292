package fetcher

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"pricetrack/models"
)

// RequestConfig is the resolved per-store scraper endpoint configuration:
// global defaults merged with the store's scraper_service_settings.
type RequestConfig struct {
	BaseURL        string
	ConnectTimeout float64 // seconds
	RequestTimeout float64 // seconds
}

// ScrapeRequest is the payload POSTed to the scraper service.
type ScrapeRequest struct {
	URL      string                 `json:"url"`
	Strategy models.StrategyMap     `json:"strategy,omitempty"`
	Service  string                 `json:"service,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ScrapeResponse is the scraper service's structured reply. Price may be a
// number, a string, or null; a missing price is absence, never zero.
type ScrapeResponse struct {
	Price    interface{} `json:"price"`
	Currency string      `json:"currency"`
}

// ArticleResponse is the reply of the article fallback endpoint.
type ArticleResponse struct {
	FullContent string `json:"fullContent"`
	Content     string `json:"content"`
	Currency    string `json:"currency"`
}

// HTML returns whichever content field the article endpoint populated.
func (a *ArticleResponse) HTML() string {
	if a.FullContent != "" {
		return a.FullContent
	}
	return a.Content
}

// StatusError is a non-2xx reply from the scraper service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scraper returned status %d", e.Code)
}

// NotFound reports whether the error is the 404 "endpoint not implemented"
// case that permits the article fallback.
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}

// ScrapeClient talks to the external scraper service.
type ScrapeClient interface {
	Scrape(cfg RequestConfig, req *ScrapeRequest) (*ScrapeResponse, error)
	FetchArticle(cfg RequestConfig, pageURL string) (*ArticleResponse, error)
}

// HTTPScrapeClient is the resty-backed scraper service client. Each call
// builds a client honoring the resolved connect/request timeout pair, so
// no request can block indefinitely.
type HTTPScrapeClient struct{}

func NewHTTPScrapeClient() *HTTPScrapeClient {
	return &HTTPScrapeClient{}
}

func (c *HTTPScrapeClient) newClient(cfg RequestConfig) *resty.Client {
	dialer := &net.Dialer{Timeout: secondsToDuration(cfg.ConnectTimeout)}
	httpClient := &http.Client{
		Transport: &http.Transport{DialContext: dialer.DialContext},
		Timeout:   secondsToDuration(cfg.RequestTimeout),
	}
	return resty.NewWithClient(httpClient)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Scrape POSTs to the service's /scrape endpoint. Transport failures come
// back verbatim; non-2xx statuses come back as *StatusError.
func (c *HTTPScrapeClient) Scrape(cfg RequestConfig, req *ScrapeRequest) (*ScrapeResponse, error) {
	resp, err := c.newClient(cfg).R().
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(cfg.BaseURL + "/scrape")
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var scrapeResp ScrapeResponse
	if err := json.Unmarshal(resp.Body(), &scrapeResp); err != nil {
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}

	return &scrapeResp, nil
}

// FetchArticle GETs the service's article endpoint, requesting the full
// rendered page content with caching disabled.
func (c *HTTPScrapeClient) FetchArticle(cfg RequestConfig, pageURL string) (*ArticleResponse, error) {
	resp, err := c.newClient(cfg).R().
		SetQueryParams(map[string]string{
			"url":          pageURL,
			"full-content": "true",
			"cache":        "false",
		}).
		Get(cfg.BaseURL + "/api/article")
	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var article ArticleResponse
	if err := json.Unmarshal(resp.Body(), &article); err != nil {
		return nil, fmt.Errorf("decode article response: %w", err)
	}

	return &article, nil
}
