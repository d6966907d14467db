package service

import (
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

func trades(ts ...domain.Trade) []domain.Trade {
	return ts
}

func TestBuildChartBucketsAndGapFill(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 59, 0, time.UTC)
	svc.now = func() time.Time { return now }
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// first bucket: three trades, then a 10s gap, then one trade.
	svc.trades = trades(
		tradeAt(1, start.Add(1*time.Second), 100, 1, true),
		tradeAt(2, start.Add(4*time.Second), 110, 1, false),
		tradeAt(3, start.Add(8*time.Second), 95, 1, true),
		tradeAt(4, start.Add(9*time.Second), 105, 1, true),
		tradeAt(5, start.Add(25*time.Second), 120, 2, false),
	)

	buckets := svc.BuildChart(1, 10*time.Second)
	if len(buckets) != 6 {
		t.Fatalf("buckets = %d, want 6", len(buckets))
	}

	first := buckets[0]
	if first.Open != 100 || first.High != 110 || first.Low != 95 || first.Close != 105 {
		t.Errorf("first bucket OHLC = %v/%v/%v/%v, want 100/110/95/105",
			first.Open, first.High, first.Low, first.Close)
	}
	if first.Volume != 4 {
		t.Errorf("first bucket volume = %v, want 4", first.Volume)
	}

	// second bucket had no trades; flat candle at the previous close.
	second := buckets[1]
	if second.Open != 105 || second.Close != 105 || second.High != 105 || second.Low != 105 {
		t.Errorf("gap bucket = %+v, want flat candle at 105", second)
	}
	if second.Volume != 0 {
		t.Errorf("gap bucket volume = %v, want 0", second.Volume)
	}

	third := buckets[2]
	if third.Close != 120 || third.Volume != 2 {
		t.Errorf("third bucket close/volume = %v/%v, want 120/2", third.Close, third.Volume)
	}

	// trailing buckets gap-fill at the last close.
	last := buckets[len(buckets)-1]
	if last.Close != 120 {
		t.Errorf("trailing bucket close = %v, want 120", last.Close)
	}
}

func TestBuildChartClampsInterval(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	now := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.trades = trades(
		tradeAt(1, now.Add(-30*time.Second), 100, 1, true),
	)

	// 1s requested, clamped to 5s: one minute yields 12 buckets max.
	buckets := svc.BuildChart(1, time.Second)
	if len(buckets) > 12 {
		t.Fatalf("buckets = %d, want at most 12 with clamped 5s interval", len(buckets))
	}
}

func TestBuildChartWhaleAndInstitutionalVolume(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	now := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ts := now.Add(-20 * time.Second)

	svc.trades = trades(
		tradeAt(1, ts, 100_000, 6, true), // $600k whale
		tradeAt(2, ts.Add(time.Second), 100_000, 0.5, false),
	)
	svc.instEvents = []instEvent{{Timestamp: ts.Add(2 * time.Second), Volume: 1.5}}

	buckets := svc.BuildChart(1, 10*time.Second)
	var found bool
	for _, b := range buckets {
		if b.Timestamp.Equal(ts.Truncate(10 * time.Second)) {
			found = true
			if b.WhaleVolume != 6+1.5 {
				t.Errorf("WhaleVolume = %v, want 7.5", b.WhaleVolume)
			}
			if b.Volume != 6.5 {
				t.Errorf("Volume = %v, want 6.5", b.Volume)
			}
		}
	}
	if !found {
		t.Fatal("whale bucket not present in chart")
	}
}

func TestBuildChartEmptyRing(t *testing.T) {
	svc := newTestService(&fakeBus{}, nil)
	if got := svc.BuildChart(5, 10*time.Second); got != nil {
		t.Fatalf("BuildChart on empty ring = %v, want nil", got)
	}
}
