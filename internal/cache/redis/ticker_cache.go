package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whalewatch/engine/internal/domain"
)

// tickerTTL bounds how stale a cached 24h ticker may get before handlers
// fall back to the upstream REST API.
const tickerTTL = 30 * time.Second

// TickerCache implements domain.TickerCache using a JSON value per symbol
// at key "ticker:{symbol}" with a 30 second TTL.
type TickerCache struct {
	rdb *redis.Client
}

// NewTickerCache creates a TickerCache backed by the given Client.
func NewTickerCache(c *Client) *TickerCache {
	return &TickerCache{rdb: c.Underlying()}
}

func tickerKey(symbol string) string {
	return "ticker:" + strings.ToUpper(symbol)
}

// Set stores the ticker snapshot for a symbol.
func (tc *TickerCache) Set(ctx context.Context, symbol string, snap domain.TickerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal ticker %s: %w", symbol, err)
	}
	if err := tc.rdb.Set(ctx, tickerKey(symbol), data, tickerTTL).Err(); err != nil {
		return fmt.Errorf("redis: set ticker %s: %w", symbol, err)
	}
	return nil
}

// Get retrieves the cached ticker snapshot for a symbol. It returns
// domain.ErrNotFound when the key is missing or expired.
func (tc *TickerCache) Get(ctx context.Context, symbol string) (domain.TickerSnapshot, error) {
	data, err := tc.rdb.Get(ctx, tickerKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TickerSnapshot{}, domain.ErrNotFound
		}
		return domain.TickerSnapshot{}, fmt.Errorf("redis: get ticker %s: %w", symbol, err)
	}

	var snap domain.TickerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("redis: unmarshal ticker %s: %w", symbol, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.TickerCache = (*TickerCache)(nil)
