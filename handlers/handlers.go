package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pricetrack/fetcher"
	"pricetrack/repository"
	"pricetrack/scheduler"
)

// Handlers exposes the thin HTTP surface over the fetch/cache core.
type Handlers struct {
	products *repository.ProductRepository
	audit    *repository.AuditRepository
	fetcher  *fetcher.Service
}

func NewHandlers(products *repository.ProductRepository, audit *repository.AuditRepository, fetcherService *fetcher.Service) *Handlers {
	return &Handlers{
		products: products,
		audit:    audit,
		fetcher:  fetcherService,
	}
}

// GetProduct returns a product with its derived price cache.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// RefreshProduct triggers a price refresh for one product.
func (h *Handlers) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	summary, err := h.fetcher.UpdateProductPrices(id, ownerScope(r), actorFrom(r))
	if err != nil {
		if errors.Is(err, fetcher.ErrScraperNotConfigured) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// RefreshAllProducts triggers a catalog-wide price refresh.
func (h *Handlers) RefreshAllProducts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.fetcher.UpdateAllProducts(ownerScope(r), actorFrom(r))
	if err != nil {
		if errors.Is(err, fetcher.ErrScraperNotConfigured) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetNextRun estimates the next run of the refresh schedule described by
// the query (interval seconds or a cron expression), anchored on the
// recorded last run of the price-fetch task.
func (h *Handlers) GetNextRun(w http.ResponseWriter, r *http.Request) {
	schedule := scheduler.Schedule{CronExpr: r.URL.Query().Get("cron")}
	if raw := r.URL.Query().Get("interval"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil {
			schedule.IntervalSeconds = seconds
		}
	}

	lastRun, err := h.audit.GetScheduleRun("price_fetch")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	next := scheduler.NextRun(schedule, lastRun, time.Now())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_run": lastRun,
		"next_run": next,
	})
}

func pathID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

// ownerScope reads an optional owner_id query parameter.
func ownerScope(r *http.Request) *int {
	raw := r.URL.Query().Get("owner_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &id
}

// actorFrom reads an optional acting user for audit logging.
func actorFrom(r *http.Request) *fetcher.Actor {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &fetcher.Actor{ID: id, IPAddress: r.RemoteAddr}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
