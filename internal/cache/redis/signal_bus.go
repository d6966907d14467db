package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	// streamMaxLen bounds durable streams via XADD MAXLEN ~.
	streamMaxLen = 10_000

	// subscribeBuffer is the per-subscription delivery channel size.
	subscribeBuffer = 128

	payloadField = "payload"
)

// SignalBus implements domain.SignalBus: pub/sub for the live WebSocket
// fan-out plus capped streams for replayable alert history.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a bus over the shared client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

var _ domain.SignalBus = (*SignalBus)(nil)

// Publish sends one payload to a pub/sub channel. Delivery is best-effort;
// messages published with no subscriber attached are gone.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription and returns its delivery channel.
// The subscription and the returned channel close when ctx is canceled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := b.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscribeBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// StreamAppend appends a payload to a capped stream.
func (b *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", stream, err)
	}
	return nil
}

// StreamRead returns up to count entries after lastID ("0" for the start,
// "$" for new entries only). No pending entries is not an error; the result
// is simply empty.
func (b *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	res, err := b.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   int64(count),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: xread %s: %w", stream, err)
	}

	var out []domain.StreamMessage
	for _, s := range res {
		for _, m := range s.Messages {
			raw, ok := m.Values[payloadField].(string)
			if !ok {
				continue
			}
			out = append(out, domain.StreamMessage{ID: m.ID, Payload: []byte(raw)})
		}
	}
	return out, nil
}
