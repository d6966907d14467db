package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whalewatch/engine/internal/domain"
)

// slidingWindowLua atomically trims a sorted-set window, counts it, and
// records the request when under the limit. KEYS[1] is the window key;
// ARGV are now (micros), window (micros), and the limit.
const slidingWindowLua = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, tostring(now) .. '-' .. tostring(count))
  redis.call('PEXPIRE', key, math.ceil(window / 1000))
  return 1
end
return 0
`

// RateLimiter is a sliding-window limiter on Redis sorted sets. Counting
// lives server side, so every process sharing the Redis shares one window.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.Underlying(),
		script: redis.NewScript(slidingWindowLua),
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// Allow reports whether a request under key fits inside the window. An
// allowed request is counted; a denied one leaves the window untouched.
// Callers pass fully qualified keys, no prefix is added here.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := rl.script.Run(ctx, rl.rdb,
		[]string{key},
		time.Now().UnixMicro(), window.Microseconds(), limit,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return res == 1, nil
}
