package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pricetrack/config"
	"pricetrack/database"
	"pricetrack/fetcher"
	"pricetrack/handlers"
	"pricetrack/middleware"
	"pricetrack/models"
	"pricetrack/notify"
	"pricetrack/pricecache"
	"pricetrack/repository"
	"pricetrack/scheduler"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := database.CreateTables(db); err != nil {
		log.Fatal().Err(err).Msg("failed to create tables")
	}

	productRepo := repository.NewProductRepository(db)
	urlRepo := repository.NewURLRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	cacheService := pricecache.NewService(cacheRepo{productRepo, historyRepo}, cfg.PriceCacheHorizonDays)
	notifier := notify.NewLogNotifier()

	fetchService := fetcher.NewService(cfg, productRepo, urlRepo, storeRepo,
		historyRepo, auditRepo, cacheService, notifier, fetcher.NewHTTPScrapeClient())

	refreshJob := scheduler.NewRefreshJob(cfg.RefreshCronSpec, func() (models.BatchSummary, error) {
		return fetchService.UpdateAllProducts(nil, nil)
	})
	refreshJob.Start()
	defer refreshJob.Stop()

	h := handlers.NewHandlers(productRepo, auditRepo, fetchService)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerSecond))

	r.HandleFunc("/health", healthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	apiV1.HandleFunc("/products/{id}/refresh", h.RefreshProduct).Methods("POST")
	apiV1.HandleFunc("/products/refresh", h.RefreshAllProducts).Methods("POST")
	apiV1.HandleFunc("/schedule/next", h.GetNextRun).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := cfg.Host + ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("server starting")

	server := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// cacheRepo adapts the product and history repositories to the cache
// service's storage surface.
type cacheRepo struct {
	products *repository.ProductRepository
	history  *repository.HistoryRepository
}

func (r cacheRepo) HistoryRowsForProduct(productID int) ([]models.HistoryRow, error) {
	return r.history.HistoryRowsForProduct(productID)
}

func (r cacheRepo) SaveProductCache(productID int, entries models.CacheEntries, currentPrice *float64, updatedAt time.Time) error {
	return r.products.SaveProductCache(productID, entries, currentPrice, updatedAt)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"service":"pricetrack","status":"healthy"}`))
}
