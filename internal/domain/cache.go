package domain

import (
	"context"
	"time"
)

// TickerCache stores the short-lived Binance 24h ticker snapshot so REST
// handlers and the hype/reality emitter share one upstream fetch.
type TickerCache interface {
	Set(ctx context.Context, symbol string, snap TickerSnapshot) error
	Get(ctx context.Context, symbol string) (TickerSnapshot, error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// RateLimiter limits request rates per key across server instances.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out and durable streams for emitted events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
