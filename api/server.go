package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"cntExplorer/explorer/aggregator"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/logging"
	"cntExplorer/explorer/metrics"
)

// ApiError defines the structure for standard JSON error responses
type ApiError struct {
	Code    string `json:"code"`    // e.g., "INVALID_TX_HASH"
	Message string `json:"message"` // User-friendly error message
}

// Define error codes
const (
	ErrCodeInvalidTxHash  = "INVALID_TX_HASH"
	ErrCodeInvalidAddress = "INVALID_ADDRESS"
	ErrCodeNotFound       = "NOT_FOUND"
)

// Cache-Control values.
const (
	cacheSummary = "s-maxage=30, stale-while-revalidate=60"
	cacheTicker  = "s-maxage=15, stale-while-revalidate=30"
	cacheMarket  = "s-maxage=60, stale-while-revalidate=120"
	cacheNone    = "no-store"
)

// Service is what the HTTP surface needs from the aggregation layer.
type Service interface {
	Dashboard(ctx context.Context) aggregator.Dashboard
	TokenSummary(ctx context.Context) aggregator.TokenSummary
	HolderSummary(ctx context.Context) aggregator.HolderSummary
	TokenOverview(ctx context.Context, page int) aggregator.TokenOverview
	TxDetail(ctx context.Context, hash string) aggregator.TxDetail
	AddressDetail(ctx context.Context, addr string) aggregator.AddressDetail
	Probe(ctx context.Context) aggregator.Probe
	Ticker(ctx context.Context) aggregator.TickerView
	Candles(ctx context.Context, interval string, limit int) aggregator.CandleSeries
	Chains(ctx context.Context) aggregator.ChainList
	MarketStats(ctx context.Context) aggregator.MarketStats
	ReferencePrice(ctx context.Context) aggregator.ReferencePrice
	ReferenceSeries(ctx context.Context, rng string) aggregator.SeriesView
	Listings(ctx context.Context) aggregator.ListingsView
}

// writeJsonError is a helper to write standardized JSON errors
func writeJsonError(w http.ResponseWriter, statusCode int, errCode string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cacheNone)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]ApiError{"error": {Code: errCode, Message: message}})
}

// writeJSON writes v with a 200 status. Cache headers only apply to
// successful payloads; degraded ones are never cached.
func writeJSON(w http.ResponseWriter, ok bool, cache string, v any) {
	if !ok {
		cache = cacheNone
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cache)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// Server represents the API server
type Server struct {
	router   *mux.Router
	service  Service
	config   *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, svc Service, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		router:  mux.NewRouter(),
		service: svc,
		config:  cfg,
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

// routes sets up the API routes
func (s *Server) routes() {
	s.router.Use(s.requestID, s.observe)

	s.router.HandleFunc("/api/v1/health", s.handleHealth()).Methods("GET")
	s.router.HandleFunc("/api/dashboard", s.handleDashboard()).Methods("GET")
	s.router.HandleFunc("/api/token/summary", s.handleSummary()).Methods("GET")
	s.router.HandleFunc("/api/token/overview", s.handleOverview()).Methods("GET")
	s.router.HandleFunc("/api/holders", s.handleHolders()).Methods("GET")
	s.router.HandleFunc("/api/tx/{hash}", s.handleTx()).Methods("GET")
	s.router.HandleFunc("/api/address/{addr}", s.handleAddress()).Methods("GET")
	s.router.HandleFunc("/api/koios-probe", s.handleProbe()).Methods("GET")
	s.router.HandleFunc("/api/market", s.handleMarket()).Methods("GET")
	s.router.HandleFunc("/api/market/listings", s.handleListings()).Methods("GET")
	s.router.HandleFunc("/api/market/ada", s.handleReferencePrice()).Methods("GET")
	s.router.HandleFunc("/api/market/ada/series", s.handleReferenceSeries()).Methods("GET")
	s.router.HandleFunc("/api/gate/ticker", s.handleTicker()).Methods("GET")
	s.router.HandleFunc("/api/gate/ohlc", s.handleCandles()).Methods("GET")
	s.router.HandleFunc("/api/gate/chains", s.handleChains()).Methods("GET")
	s.router.HandleFunc("/ws/live", s.handleLive()).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJsonError(w, http.StatusNotFound, ErrCodeNotFound, "Unknown endpoint.")
	})
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API Server starting", "port", s.config.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("API Server stopped")
	return nil
}
