// Package server assembles the HTTP + WebSocket API in front of the engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/server/handler"
	"github.com/whalewatch/engine/internal/server/middleware"
	"github.com/whalewatch/engine/internal/server/ws"
)

// rate limit applied per client IP across all API routes.
const (
	rateLimitRequests = 20
	rateLimitWindow   = time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Market     *handler.MarketHandler
	Whales     *handler.WhaleHandler
	Executions *handler.ExecutionHandler
}

// Server is the headless HTTP + WebSocket API for the whale-watch engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer registers all routes on a fresh ServeMux and wires the
// middleware chain (rate limiting, auth, logging, CORS). The rate limiter
// may be nil, in which case no limiting is applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handlers.Health.Root)
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/whale-trades", handlers.Whales.ListWhaleTrades)
	if handlers.Executions != nil {
		mux.HandleFunc("GET /api/executions", handlers.Executions.ListExecutions)
	}
	mux.HandleFunc("GET /api/bitcoin", handlers.Market.GetTicker)
	mux.HandleFunc("GET /api/statistics", handlers.Market.GetStatistics)
	mux.HandleFunc("GET /api/chart-data", handlers.Market.GetChart)
	mux.HandleFunc("GET /api/order-book", handlers.Market.GetOrderBook)
	mux.HandleFunc("GET /api/metrics", handlers.Market.GetMetrics)

	mux.Handle("GET /metrics", promhttp.Handler())

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	mws := []func(http.Handler) http.Handler{
		middleware.CORS(cfg.CORSOrigins),
		middleware.Logging(logger),
		middleware.Auth(cfg.APIKey),
	}
	if limiter != nil {
		mws = append(mws, middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow))
	}
	h := middleware.Chain(mux, mws...)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
