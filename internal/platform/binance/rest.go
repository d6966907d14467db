package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/whalewatch/engine/internal/domain"
)

// Kline is one candlestick returned by the REST API, parsed into floats.
type Kline struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// RestClient wraps the Binance spot REST API for the market data the engine
// needs. No API key is required for public endpoints.
type RestClient struct {
	client *binance.Client
	symbol string
}

// NewRestClient creates a REST client for the given host and symbol.
func NewRestClient(restHost, symbol string) *RestClient {
	c := binance.NewClient("", "")
	if restHost != "" {
		c.BaseURL = restHost
	}
	return &RestClient{client: c, symbol: symbol}
}

// Ticker24h fetches the rolling 24h ticker for the configured symbol.
func (r *RestClient) Ticker24h(ctx context.Context) (*domain.TickerSnapshot, error) {
	stats, err := r.client.NewListPriceChangeStatsService().Symbol(r.symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance/rest: ticker 24h: %w", err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("binance/rest: ticker 24h for %s: %w", r.symbol, domain.ErrNoTicker)
	}

	s := stats[0]
	last, _ := strconv.ParseFloat(s.LastPrice, 64)
	changePct, _ := strconv.ParseFloat(s.PriceChangePercent, 64)
	quoteVol, _ := strconv.ParseFloat(s.QuoteVolume, 64)
	baseVol, _ := strconv.ParseFloat(s.Volume, 64)

	return &domain.TickerSnapshot{
		LastPrice:          last,
		PriceChangePercent: changePct,
		QuoteVolume:        quoteVol,
		BaseVolume:         baseVol,
		FetchedAt:          time.Now().UTC(),
	}, nil
}

// Klines fetches up to limit one-minute candlesticks for the configured
// symbol, oldest first.
func (r *RestClient) Klines(ctx context.Context, interval string, limit int) ([]Kline, error) {
	raw, err := r.client.NewKlinesService().
		Symbol(r.symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance/rest: klines: %w", err)
	}

	out := make([]Kline, 0, len(raw))
	for _, k := range raw {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		cls, _ := strconv.ParseFloat(k.Close, 64)
		vol, _ := strconv.ParseFloat(k.Volume, 64)
		out = append(out, Kline{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    cls,
			Volume:   vol,
		})
	}
	return out, nil
}
