// Package feed runs the live market data connection and pushes trades and
// depth snapshots into the stream service.
package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/metrics"
	"github.com/whalewatch/engine/internal/platform/binance"
)

// TradeSink receives every parsed trade from the live stream.
type TradeSink func(ctx context.Context, trade domain.Trade)

// DepthSink receives every parsed partial book snapshot.
type DepthSink func(ctx context.Context, snap domain.OrderBookSnapshot)

// BinanceFeed connects to the Binance stream API, subscribes to the trade
// and partial depth streams for one symbol, and invokes the provided sinks
// on each message. It reconnects with backoff on dial failure; established
// connections reconnect inside the stream client.
type BinanceFeed struct {
	wsHost    string
	symbol    string
	depthRate string
	onTrade   TradeSink
	onDepth   DepthSink
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBinanceFeed creates a feed for the given symbol, e.g. "BTCUSDT".
// depthRate selects the partial depth update interval ("100ms" or "1000ms").
func NewBinanceFeed(wsHost, symbol, depthRate string, onTrade TradeSink, onDepth DepthSink, logger *slog.Logger) *BinanceFeed {
	return &BinanceFeed{
		wsHost:    wsHost,
		symbol:    symbol,
		depthRate: depthRate,
		onTrade:   onTrade,
		onDepth:   onDepth,
		logger:    logger.With(slog.String("component", "binance_feed")),
		done:      make(chan struct{}),
	}
}

// streams returns the raw stream names to subscribe to.
func (f *BinanceFeed) streams() []string {
	sym := strings.ToLower(f.symbol)
	return []string{
		sym + "@trade",
		sym + "@depth20@" + f.depthRate,
	}
}

// Run connects, subscribes, and blocks until ctx is cancelled. Dial failures
// retry with exponential backoff from one second up to one minute.
func (f *BinanceFeed) Run(ctx context.Context) error {
	delay := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.FeedReconnectsTotal.Inc()
		f.logger.Warn("binance ws connect failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDialBackoff {
			delay = maxDialBackoff
		}
	}
}

const maxDialBackoff = 60 * time.Second

func (f *BinanceFeed) runConnection(ctx context.Context) error {
	client := binance.NewWSClient(f.wsHost)
	defer client.Close()

	client.OnTrade(func(trade domain.Trade) {
		if f.onTrade != nil {
			f.onTrade(context.Background(), trade)
		}
	})
	client.OnDepth(func(snap domain.OrderBookSnapshot) {
		if f.onDepth != nil {
			f.onDepth(context.Background(), snap)
		}
	})

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(dialCtx)
	cancel()
	if err != nil {
		return err
	}
	if err := client.Subscribe(ctx, f.streams()...); err != nil {
		return err
	}
	f.logger.Info("binance ws subscribed",
		slog.String("symbol", f.symbol),
		slog.Any("streams", f.streams()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Close stops the feed.
func (f *BinanceFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
