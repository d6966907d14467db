package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// StreamSource defines what the market handlers need from the live stream
// state. It is declared locally so the handler package does not depend on
// the concrete service implementation.
type StreamSource interface {
	Statistics(volume24h *float64) domain.Statistics
	LatestOrderBook() *domain.OrderBookSnapshot
	BullBear() domain.SentimentMetrics
	HypeReality(ctx context.Context) *domain.HypeRealityMetrics
	BuildChart(minutes int, interval time.Duration) []domain.ChartBucket
}

// TickerProvider defines the exchange-ticker access the handlers need.
type TickerProvider interface {
	Get(ctx context.Context) (*domain.TickerSnapshot, error)
	Volume24h(ctx context.Context) *float64
	FallbackChart(ctx context.Context, minutes int) ([]domain.ChartBucket, error)
}

// MarketHandler serves the market-data HTTP endpoints backed by the trade
// ring and the exchange ticker.
type MarketHandler struct {
	stream  StreamSource
	tickers TickerProvider
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given sources.
func NewMarketHandler(stream StreamSource, tickers TickerProvider, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		stream:  stream,
		tickers: tickers,
		logger:  logHandler(logger, "market"),
	}
}

// GetTicker returns the cached 24h exchange ticker.
// GET /api/bitcoin
func (h *MarketHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	snap, err := h.tickers.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "ticker fetch failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "ticker unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snap,
	})
}

// GetStatistics aggregates the trade ring into the dashboard statistics.
// GET /api/statistics
func (h *MarketHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats := h.stream.Statistics(h.tickers.Volume24h(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    stats,
	})
}

// GetChart serves OHLC buckets built from the trade ring, falling back to
// exchange klines before any live trades have arrived.
// GET /api/chart-data?minutes=30&interval_seconds=10
func (h *MarketHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	minutes := intQuery(r, "minutes", 30, 1, 1440)
	intervalSec := intQuery(r, "interval_seconds", 10, 5, 300)
	interval := time.Duration(intervalSec) * time.Second

	data := h.stream.BuildChart(minutes, interval)
	if data == nil {
		fallback, err := h.tickers.FallbackChart(r.Context(), minutes)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "chart fallback failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "chart data unavailable")
			return
		}
		data = fallback
	}
	if data == nil {
		data = []domain.ChartBucket{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"data":             data,
		"period_minutes":   minutes,
		"interval_seconds": intervalSec,
	})
}

// GetOrderBook returns the latest depth snapshot.
// GET /api/order-book
func (h *MarketHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	book := h.stream.LatestOrderBook()
	if book == nil {
		writeError(w, http.StatusServiceUnavailable, "order book not yet received")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    book,
	})
}

// GetMetrics returns the current sentiment and hype/reality figures.
// GET /api/metrics
func (h *MarketHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"success":           true,
		"bull_bear_metrics": h.stream.BullBear(),
	}
	if m := h.stream.HypeReality(r.Context()); m != nil {
		resp["hype_reality_metrics"] = m
	}
	writeJSON(w, http.StatusOK, resp)
}
