package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/platform/binance"
)

// MarketDataSource fetches the upstream 24h ticker and candlesticks.
// Satisfied by *binance.RestClient.
type MarketDataSource interface {
	Ticker24h(ctx context.Context) (*domain.TickerSnapshot, error)
	Klines(ctx context.Context, interval string, limit int) ([]binance.Kline, error)
}

// TickerService serves the 24h ticker through the shared Redis cache so the
// REST handlers and the hype/reality emitter share one upstream fetch per
// TTL window.
type TickerService struct {
	symbol string
	cache  domain.TickerCache
	source MarketDataSource
	logger *slog.Logger
}

// NewTickerService creates a TickerService. The cache may be nil, in which
// case every call goes upstream.
func NewTickerService(symbol string, cache domain.TickerCache, source MarketDataSource, logger *slog.Logger) *TickerService {
	return &TickerService{
		symbol: symbol,
		cache:  cache,
		source: source,
		logger: logger.With(slog.String("component", "ticker_service")),
	}
}

// Get returns the current 24h ticker, preferring the cache.
func (s *TickerService) Get(ctx context.Context) (*domain.TickerSnapshot, error) {
	if s.cache != nil {
		if snap, err := s.cache.Get(ctx, s.symbol); err == nil {
			return &snap, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "ticker cache read failed", slog.String("error", err.Error()))
		}
	}

	snap, err := s.source.Ticker24h(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticker_service: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.symbol, *snap); err != nil {
			s.logger.WarnContext(ctx, "ticker cache write failed", slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// Volume24h returns the 24h quote volume, or nil when the ticker is
// unavailable.
func (s *TickerService) Volume24h(ctx context.Context) *float64 {
	snap, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "24h volume unavailable", slog.String("error", err.Error()))
		return nil
	}
	return &snap.QuoteVolume
}

// FallbackChart fetches one-minute klines to serve the chart endpoint when
// the trade ring is still empty.
func (s *TickerService) FallbackChart(ctx context.Context, minutes int) ([]domain.ChartBucket, error) {
	limit := minutes
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	klines, err := s.source.Klines(ctx, "1m", limit)
	if err != nil {
		return nil, fmt.Errorf("ticker_service: %w", err)
	}

	out := make([]domain.ChartBucket, 0, len(klines))
	for _, k := range klines {
		out = append(out, domain.ChartBucket{
			Timestamp: k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		})
	}
	return out, nil
}

var _ MarketDataSource = (*binance.RestClient)(nil)
