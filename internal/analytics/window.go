// Package analytics implements the streaming analytics core: a sliding-window
// trade aggregator, heuristic execution scorers, the institutional execution
// classifier, and the whale/sentiment engine.
//
// All state in this package has a single logical owner per symbol. Ingest,
// eviction, and evaluation mutate running aggregates through non-atomic
// add/subtract steps and must be serialized by the caller (the stream service
// holds one mutex per symbol). Nothing here blocks on I/O.
package analytics

import (
	"sort"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	shortWindowSec = 10.0
	longWindowSec  = 60.0

	// historyLen bounds the ring of per-bucket baseline snapshots.
	historyLen = 30

	// medianSampleCap bounds how many recent long-window trades feed the
	// fallback median in the size score.
	medianSampleCap = 500
)

// windowAggregates are the incrementally maintained sums for one window.
// Invariant: they always equal the exact sums over the retained observations;
// eviction subtracts, it never recomputes.
type windowAggregates struct {
	SumNotional float64
	SumSigned   float64
	SumLog      float64
	SumLogSq    float64
	Count       int
	BuyCount    int
	SellCount   int
}

func (w *windowAggregates) add(o domain.TradeObservation) {
	w.SumNotional += o.Notional
	w.SumSigned += o.Signed
	w.SumLog += o.LogNotional
	w.SumLogSq += o.LogNotional * o.LogNotional
	w.Count++
	if o.Side == domain.SideBuy {
		w.BuyCount++
	} else {
		w.SellCount++
	}
}

func (w *windowAggregates) remove(o domain.TradeObservation) {
	w.SumNotional -= o.Notional
	w.SumSigned -= o.Signed
	w.SumLog -= o.LogNotional
	w.SumLogSq -= o.LogNotional * o.LogNotional
	w.Count--
	if o.Side == domain.SideBuy {
		w.BuyCount--
	} else {
		w.SellCount--
	}
}

// bucketKey identifies a (side, magnitude bucket) activity slot.
type bucketKey struct {
	Side   domain.Side
	Bucket int
}

// bucketEntry tracks repeated same-side same-size trades in the long window.
type bucketEntry struct {
	Count int
	Times []float64
}

// baselineSnapshot is one entry of the rolling volume/impact baseline,
// appended at most once per distinct 10-second bucket id.
type baselineSnapshot struct {
	Timestamp float64
	Notional  float64 // long-of-window 10s notional at snapshot time
	Impact    float64 // |10s price move %| per unit notional
}

// WindowedAggregator maintains 10-second and 60-second FIFO trade windows
// with O(1)-amortized aggregate updates, per-(side,bucket) activity for the
// long window, and a bounded baseline history ring.
//
// Precondition: observations must be ingested in non-decreasing timestamp
// order; eviction is front-of-queue only and window integrity is not
// guaranteed for out-of-order input.
type WindowedAggregator struct {
	short []domain.TradeObservation
	long  []domain.TradeObservation

	Short windowAggregates
	Long  windowAggregates

	activity map[bucketKey]*bucketEntry
	history  []baselineSnapshot
}

// NewWindowedAggregator creates an empty aggregator.
func NewWindowedAggregator() *WindowedAggregator {
	return &WindowedAggregator{
		activity: make(map[bucketKey]*bucketEntry),
		history:  make([]baselineSnapshot, 0, historyLen),
	}
}

// Ingest appends the observation to both windows and updates every aggregate.
func (a *WindowedAggregator) Ingest(o domain.TradeObservation) {
	a.short = append(a.short, o)
	a.Short.add(o)

	a.long = append(a.long, o)
	a.Long.add(o)

	key := bucketKey{Side: o.Side, Bucket: o.Bucket}
	entry := a.activity[key]
	if entry == nil {
		entry = &bucketEntry{}
		a.activity[key] = entry
	}
	entry.Count++
	entry.Times = append(entry.Times, o.Timestamp)
}

// Evict drops observations older than the window cutoffs relative to now and
// symmetrically subtracts their contribution from every aggregate. It must
// run before each scoring pass so the windows reflect "now" rather than the
// last ingest time. Calling it twice with the same now is a no-op the second
// time.
func (a *WindowedAggregator) Evict(now float64) {
	shortCutoff := now - shortWindowSec
	for len(a.short) > 0 && a.short[0].Timestamp < shortCutoff {
		a.Short.remove(a.short[0])
		a.short = a.short[1:]
	}

	longCutoff := now - longWindowSec
	for len(a.long) > 0 && a.long[0].Timestamp < longCutoff {
		o := a.long[0]
		a.Long.remove(o)
		a.long = a.long[1:]

		key := bucketKey{Side: o.Side, Bucket: o.Bucket}
		if entry := a.activity[key]; entry != nil {
			entry.Count--
			if len(entry.Times) > 0 {
				entry.Times = entry.Times[1:]
			}
			if entry.Count <= 0 {
				delete(a.activity, key)
			}
		}
	}
}

// MaxNotionalShort returns the largest single-trade notional in the 10s window.
func (a *WindowedAggregator) MaxNotionalShort() float64 {
	max := 0.0
	for _, o := range a.short {
		if o.Notional > max {
			max = o.Notional
		}
	}
	return max
}

// PriceRangeShort returns (high-low, last price) over the 10s window.
func (a *WindowedAggregator) PriceRangeShort() (rng, last float64) {
	if len(a.short) == 0 {
		return 0, 0
	}
	lo, hi := a.short[0].Price, a.short[0].Price
	for _, o := range a.short[1:] {
		if o.Price < lo {
			lo = o.Price
		}
		if o.Price > hi {
			hi = o.Price
		}
	}
	return hi - lo, a.short[len(a.short)-1].Price
}

// PriceMovePctShort returns the signed percent move from the first to the
// last price in the 10s window, or 0 when fewer than two trades remain.
func (a *WindowedAggregator) PriceMovePctShort() float64 {
	if len(a.short) < 2 {
		return 0
	}
	open := a.short[0].Price
	if open <= 0 {
		return 0
	}
	return (a.short[len(a.short)-1].Price - open) / open * 100
}

// MedianNotionalLong returns the median notional of up to medianSampleCap
// most-recent long-window trades, or 0 when the window is empty.
func (a *WindowedAggregator) MedianNotionalLong() float64 {
	n := len(a.long)
	if n == 0 {
		return 0
	}
	start := 0
	if n > medianSampleCap {
		start = n - medianSampleCap
	}
	values := make([]float64, 0, n-start)
	for _, o := range a.long[start:] {
		values = append(values, o.Notional)
	}
	return median(values)
}

// DominantBucket returns the (side,bucket) activity entry with the highest
// count in the 60s window, or nil when the window is empty.
func (a *WindowedAggregator) DominantBucket() *bucketEntry {
	var best *bucketEntry
	for _, entry := range a.activity {
		if best == nil || entry.Count > best.Count {
			best = entry
		}
	}
	return best
}

// MaxBucketCount returns the highest same-side same-bucket trade count in the
// 60s window.
func (a *WindowedAggregator) MaxBucketCount() int {
	max := 0
	for _, entry := range a.activity {
		if entry.Count > max {
			max = entry.Count
		}
	}
	return max
}

// RecordBaseline appends a (now, 10s notional, impact) snapshot to the
// bounded baseline ring, dropping the oldest entry on overflow. The detector
// calls it at most once per distinct 10-second bucket id.
func (a *WindowedAggregator) RecordBaseline(now, notional, impact float64) {
	if len(a.history) == historyLen {
		a.history = a.history[1:]
	}
	a.history = append(a.history, baselineSnapshot{Timestamp: now, Notional: notional, Impact: impact})
}

// BaselineMedians returns the median 10s notional and median impact across
// the baseline ring. When the ring is empty both fall back to the supplied
// current values.
func (a *WindowedAggregator) BaselineMedians(curNotional, curImpact float64) (vol, impact float64) {
	if len(a.history) == 0 {
		return curNotional, curImpact
	}
	vols := make([]float64, len(a.history))
	impacts := make([]float64, len(a.history))
	for i, s := range a.history {
		vols[i] = s.Notional
		impacts[i] = s.Impact
	}
	return median(vols), median(impacts)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
