package analytics

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDetector(lowLiquidity bool) *ExecutionDetector {
	return NewExecutionDetector(DetectorConfig{Symbol: "BTCUSDT", LowLiquidity: lowLiquidity}, testLogger())
}

func TestIngestRejectsNonPositiveInput(t *testing.T) {
	d := newTestDetector(false)
	if err := d.IngestTrade(0, 1, false, 1_700_000_000_000); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Fatalf("expected ErrInvalidTrade for zero price, got %v", err)
	}
	if err := d.IngestTrade(100, -1, false, 1_700_000_000_000); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Fatalf("expected ErrInvalidTrade for negative quantity, got %v", err)
	}
	if err := d.IngestTrade(100, 1, false, 1_700_000_000_000); err != nil {
		t.Fatalf("valid trade rejected: %v", err)
	}
}

func TestMaybeEvaluateRateLimited(t *testing.T) {
	d := newTestDetector(false)

	base := time.UnixMilli(1_700_000_000_000)
	now := base
	d.now = func() time.Time { return now }

	if ev := d.MaybeEvaluate(); ev != nil {
		t.Fatalf("empty detector should not emit, got %+v", ev)
	}

	// A second call within the same second is a no-op even after ingests.
	for i := 0; i < 30; i++ {
		if err := d.IngestTrade(100, 10_000, i%5 == 0, base.UnixMilli()+int64(i)*100); err != nil {
			t.Fatal(err)
		}
	}
	now = base.Add(500 * time.Millisecond)
	if ev := d.MaybeEvaluate(); ev != nil {
		t.Fatalf("evaluation inside the 1s rate limit must return nothing, got %+v", ev)
	}
	if d.lastEval != float64(base.UnixMilli())/1000 {
		t.Fatalf("rate-limited call must not advance lastEval")
	}
}

// Twenty-five $1M prints at a constant price, 90/10 buy/sell, spread across
// distinct magnitude buckets: no guard fires, but nothing qualifies for a
// label either - size is not extreme enough for LARGE_TRADE_ONLY and the
// composite never climbs past the likely threshold.
func TestConstantPriceBurstEmitsNoLabel(t *testing.T) {
	d := newTestDetector(false)

	base := time.UnixMilli(1_700_000_000_000)
	now := base
	d.now = func() time.Time { return now }

	// Quantities vary so notionals land in different buckets (factor >1.78
	// between magnitude buckets at 0.25 log10 steps).
	quantities := []float64{10, 18, 32, 57, 10.5, 19, 33, 56, 11, 17,
		31, 58, 10.2, 18.5, 32.5, 57.5, 10.8, 19.5, 30, 55,
		12, 20, 34, 50, 13}
	for i, q := range quantities {
		isBuyerMaker := i%10 == 9 // ~10% sells
		if err := d.IngestTrade(100_000, q, isBuyerMaker, base.UnixMilli()+int64(i)*300); err != nil {
			t.Fatal(err)
		}
	}

	for step := 0; step < 6; step++ {
		now = base.Add(time.Duration(step+1) * time.Second)
		if ev := d.MaybeEvaluate(); ev != nil {
			t.Fatalf("expected no label on step %d, got %s score=%d", step, ev.Label, ev.Score)
		}
	}
}

func TestGuardResetsStreaks(t *testing.T) {
	d := newTestDetector(false)
	d.strongStreak = 3
	d.likelyStreak = 5

	base := time.UnixMilli(1_700_000_000_000)
	d.now = func() time.Time { return base }

	// Only a handful of trades in the 10s window: the thin-tape guard fires.
	for i := 0; i < 5; i++ {
		if err := d.IngestTrade(100, 1, false, base.UnixMilli()+int64(i)*100); err != nil {
			t.Fatal(err)
		}
	}
	if ev := d.MaybeEvaluate(); ev != nil {
		t.Fatalf("guarded evaluation must emit nothing, got %+v", ev)
	}
	if d.strongStreak != 0 || d.likelyStreak != 0 {
		t.Fatalf("guard violation must clear streaks, got strong=%d likely=%d", d.strongStreak, d.likelyStreak)
	}
}

func TestThresholdsDependOnLiquidityFlag(t *testing.T) {
	strong, likely := DetectorConfig{}.thresholds()
	if strong != 75 || likely != 60 {
		t.Fatalf("default thresholds wrong: %d/%d", strong, likely)
	}
	strong, likely = DetectorConfig{LowLiquidity: true}.thresholds()
	if strong != 80 || likely != 65 {
		t.Fatalf("low-liquidity thresholds wrong: %d/%d", strong, likely)
	}
}

func TestDirectionFollowsSignedFlow(t *testing.T) {
	d := newTestDetector(false)
	base := int64(1_700_000_000_000)
	// Sell-dominated flow.
	for i := 0; i < 30; i++ {
		if err := d.IngestTrade(100, 100, true, base+int64(i)*100); err != nil {
			t.Fatal(err)
		}
	}
	if d.agg.Long.SumSigned >= 0 {
		t.Fatalf("expected negative signed flow, got %v", d.agg.Long.SumSigned)
	}
}
