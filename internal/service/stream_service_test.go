package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/analytics"
	"github.com/whalewatch/engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type publishedMsg struct {
	Channel string
	Payload []byte
}

type fakeBus struct {
	published []publishedMsg
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published = append(b.published, publishedMsg{Channel: channel, Payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *fakeBus) onChannel(channel string) []publishedMsg {
	var out []publishedMsg
	for _, m := range b.published {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

type fakeWhaleStore struct {
	inserted []domain.WhaleAlert
}

func (s *fakeWhaleStore) Insert(ctx context.Context, alert domain.WhaleAlert) error {
	s.inserted = append(s.inserted, alert)
	return nil
}

func (s *fakeWhaleStore) ListRecent(ctx context.Context, limit int) ([]domain.WhaleAlert, error) {
	return s.inserted, nil
}

func (s *fakeWhaleStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.WhaleAlert, error) {
	return nil, nil
}

func (s *fakeWhaleStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeWhaleStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.inserted)), nil
}

func newTestService(bus *fakeBus, store domain.WhaleTradeStore) *StreamService {
	return NewStreamService(
		StreamConfig{Symbol: "BTCUSDT", TradeRingSize: 100},
		nil,
		analytics.NewWhaleEngine(0, 0),
		bus,
		store,
		nil,
		nil,
		testLogger(),
	)
}

func tradeAt(id int64, ts time.Time, price, qty float64, isBuy bool) domain.Trade {
	return domain.Trade{
		TradeID:      id,
		Timestamp:    ts,
		Price:        price,
		Quantity:     qty,
		Value:        price * qty,
		IsBuy:        isBuy,
		IsBuyerMaker: !isBuy,
	}
}

func TestWhaleTradeIsAlertedAndPersisted(t *testing.T) {
	bus := &fakeBus{}
	store := &fakeWhaleStore{}
	svc := newTestService(bus, store)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.HandleTrade(ctx, tradeAt(1, base, 100_000, 0.5, true)) // $50k, below threshold
	svc.HandleTrade(ctx, tradeAt(2, base.Add(time.Second), 100_000, 7.5, true))

	alerts := svc.LatestWhales(10)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.TradeID != 2 {
		t.Errorf("TradeID = %d, want 2", alert.TradeID)
	}
	if alert.Value != 750_000 {
		t.Errorf("Value = %v, want 750000", alert.Value)
	}
	if !alert.IsBuy {
		t.Error("IsBuy = false, want true")
	}
	if alert.WhaleScore < 0.1 || alert.WhaleScore > 1 {
		t.Errorf("WhaleScore = %v, want within [0.1, 1]", alert.WhaleScore)
	}
	if alert.SimilarPatterns == nil {
		t.Error("SimilarPatterns = nil, want empty slice")
	}

	if len(store.inserted) != 1 {
		t.Fatalf("store inserts = %d, want 1", len(store.inserted))
	}

	msgs := bus.onChannel(ChannelWhaleAlert)
	if len(msgs) != 1 {
		t.Fatalf("whale_alert publishes = %d, want 1", len(msgs))
	}
	var decoded domain.WhaleAlert
	if err := json.Unmarshal(msgs[0].Payload, &decoded); err != nil {
		t.Fatalf("unmarshal published alert: %v", err)
	}
	if decoded.Type != "whale_alert" {
		t.Errorf("published type = %q, want whale_alert", decoded.Type)
	}
}

func TestTradeRingTrims(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 150; i++ {
		svc.HandleTrade(ctx, tradeAt(int64(i), base.Add(time.Duration(i)*time.Second), 100_000, 0.001, i%2 == 0))
	}

	trades := svc.RecentTrades()
	if len(trades) != 100 {
		t.Fatalf("ring = %d trades, want 100", len(trades))
	}
	if trades[0].TradeID != 50 {
		t.Errorf("oldest TradeID = %d, want 50", trades[0].TradeID)
	}
	if trades[len(trades)-1].TradeID != 149 {
		t.Errorf("newest TradeID = %d, want 149", trades[len(trades)-1].TradeID)
	}
}

func TestHandleDepthThrottlesBroadcast(t *testing.T) {
	bus := &fakeBus{}
	svc := newTestService(bus, nil)
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	snap := domain.OrderBookSnapshot{
		LastUpdateID: 1,
		Bids:         []domain.BookLevel{{Price: 99_000, Quantity: 1}},
		Asks:         []domain.BookLevel{{Price: 99_010, Quantity: 2}},
		Timestamp:    clock,
	}

	svc.HandleDepth(ctx, snap)

	clock = clock.Add(300 * time.Millisecond)
	snap.LastUpdateID = 2
	svc.HandleDepth(ctx, snap)

	if got := len(bus.onChannel(ChannelOrderBook)); got != 1 {
		t.Fatalf("order_book publishes after 300ms = %d, want 1", got)
	}

	clock = clock.Add(time.Second)
	snap.LastUpdateID = 3
	svc.HandleDepth(ctx, snap)

	if got := len(bus.onChannel(ChannelOrderBook)); got != 2 {
		t.Fatalf("order_book publishes after 1.3s = %d, want 2", got)
	}

	book := svc.LatestOrderBook()
	if book == nil || book.LastUpdateID != 3 {
		t.Fatalf("LatestOrderBook = %+v, want LastUpdateID 3", book)
	}
}

func TestStatisticsAggregatesRing(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc.HandleTrade(ctx, tradeAt(1, base, 100_000, 1, true))            // $100k
	svc.HandleTrade(ctx, tradeAt(2, base.Add(time.Second), 100_000, 6, false)) // $600k whale

	stats := svc.Statistics(nil)
	if stats.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", stats.TotalTrades)
	}
	if stats.TotalVolumeSinceStart != 700_000 {
		t.Errorf("TotalVolumeSinceStart = %v, want 700000", stats.TotalVolumeSinceStart)
	}
	if stats.TotalVolume24h != 700_000 {
		t.Errorf("TotalVolume24h fallback = %v, want ring total 700000", stats.TotalVolume24h)
	}
	if stats.TotalWhaleTrades != 1 {
		t.Errorf("TotalWhaleTrades = %d, want 1", stats.TotalWhaleTrades)
	}
	if stats.AverageTradeValue != 350_000 {
		t.Errorf("AverageTradeValue = %v, want 350000", stats.AverageTradeValue)
	}

	vol := 1_234_567.0
	stats = svc.Statistics(&vol)
	if stats.TotalVolume24h != vol {
		t.Errorf("TotalVolume24h with ticker = %v, want %v", stats.TotalVolume24h, vol)
	}
}
