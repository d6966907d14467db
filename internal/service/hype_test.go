package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/platform/binance"
)

type fakeTickerSource struct {
	snap *domain.TickerSnapshot
	err  error
}

func (s *fakeTickerSource) Ticker24h(ctx context.Context) (*domain.TickerSnapshot, error) {
	return s.snap, s.err
}

func (s *fakeTickerSource) Klines(ctx context.Context, interval string, limit int) ([]binance.Kline, error) {
	return nil, errors.New("not implemented")
}

func TestPriceChangeOverWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	in := trades(
		tradeAt(1, now.Add(-30*time.Second), 90, 1, true), // outside 10s window
		tradeAt(2, now.Add(-8*time.Second), 100, 1, true),
		tradeAt(3, now.Add(-2*time.Second), 102, 1, false),
	)

	pct := priceChangeOver(in, now, 10*time.Second)
	if pct == nil {
		t.Fatal("pct = nil, want value")
	}
	if math.Abs(*pct-2.0) > 1e-9 {
		t.Errorf("pct = %v, want 2.0", *pct)
	}

	// a single in-window trade is not enough
	single := trades(tradeAt(1, now.Add(-2*time.Second), 100, 1, true))
	if got := priceChangeOver(single, now, 10*time.Second); got != nil {
		t.Errorf("pct with one trade = %v, want nil", *got)
	}

	if got := priceChangeOver(nil, now, 10*time.Second); got != nil {
		t.Errorf("pct with no trades = %v, want nil", *got)
	}
}

func TestWhaleActivityScore(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	score, whaleValue := svc.whaleActivityScore(nil, now)
	if score != 0 || whaleValue != 0 {
		t.Fatalf("empty window = (%v, %v), want (0, 0)", score, whaleValue)
	}

	// $50M of pure whale turnover saturates both terms.
	in := trades(
		tradeAt(1, now.Add(-time.Minute), 100_000, 250, true),  // $25M
		tradeAt(2, now.Add(-time.Minute), 100_000, 250, false), // $25M
	)
	score, whaleValue = svc.whaleActivityScore(in, now)
	if score != 100 {
		t.Errorf("saturated score = %v, want 100", score)
	}
	if whaleValue != 50_000_000 {
		t.Errorf("whaleValue = %v, want 50M", whaleValue)
	}

	// sub-threshold turnover contributes no whale value and the volume term
	// floors at $1M, so the score stays zero.
	retail := trades(tradeAt(1, now.Add(-time.Minute), 100_000, 4, true)) // $400k
	score, whaleValue = svc.whaleActivityScore(retail, now)
	if whaleValue != 0 {
		t.Errorf("retail whaleValue = %v, want 0", whaleValue)
	}
	if score != 0 {
		t.Errorf("retail score = %v, want 0", score)
	}

	// trades older than the lookback window are ignored.
	stale := trades(tradeAt(1, now.Add(-11*time.Minute), 100_000, 250, true))
	if score, _ = svc.whaleActivityScore(stale, now); score != 0 {
		t.Errorf("stale score = %v, want 0", score)
	}
}

func TestInterpretHypeReality(t *testing.T) {
	if got := interpretHypeReality(10, 40); got != insightWhalesDominate {
		t.Errorf("whales dominate insight = %q", got)
	}
	if got := interpretHypeReality(40, 10); got != insightRetailRisk {
		t.Errorf("retail risk insight = %q", got)
	}
	if got := interpretHypeReality(30, 35); got != insightBalanced {
		t.Errorf("balanced insight = %q", got)
	}
}

func TestHypeRealityPrefersRingChange(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	source := &fakeTickerSource{snap: &domain.TickerSnapshot{
		LastPrice:          100_000,
		PriceChangePercent: 9.0,
		QuoteVolume:        1e9,
	}}
	svc.SetTickerService(NewTickerService("BTCUSDT", nil, source, testLogger()))

	// no ring trades: the 24h ticker change drives the hype score.
	m := svc.HypeReality(ctx)
	if m == nil {
		t.Fatal("metrics = nil, want value")
	}
	if m.PriceChangePercent != 9.0 {
		t.Errorf("PriceChangePercent = %v, want ticker 9.0", m.PriceChangePercent)
	}
	if m.SocialHypeScore != 100 {
		t.Errorf("SocialHypeScore = %v, want capped 100", m.SocialHypeScore)
	}

	// with a live 10s window the ring change takes over.
	svc.trades = trades(
		tradeAt(1, now.Add(-8*time.Second), 100, 1, true),
		tradeAt(2, now.Add(-1*time.Second), 101, 1, true),
	)
	m = svc.HypeReality(ctx)
	if math.Abs(m.PriceChangePercent-1.0) > 1e-9 {
		t.Errorf("PriceChangePercent = %v, want ring 1.0", m.PriceChangePercent)
	}
	if m.SocialHypeScore != 12 {
		t.Errorf("SocialHypeScore = %v, want 12", m.SocialHypeScore)
	}
	if m.Insight == "" {
		t.Error("Insight is empty")
	}
}

func TestHypeRealityNilWithoutTicker(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	svc.SetTickerService(NewTickerService("BTCUSDT", nil, &fakeTickerSource{err: errors.New("down")}, testLogger()))
	if m := svc.HypeReality(context.Background()); m != nil {
		t.Fatalf("metrics = %+v, want nil when ticker unavailable", m)
	}
}
