package analytics

import (
	"math"
	"sort"
	"sync"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	// DefaultWhaleThreshold is the minimum notional for a trade to count as
	// a whale when no threshold is configured.
	DefaultWhaleThreshold = 500_000.0

	// scoreCeilingMultiple is the multiple of the threshold at which the
	// whale score saturates ($5M at the default threshold).
	scoreCeilingMultiple = 10.0

	// momentumVolumeScale normalizes total volume for the momentum term.
	momentumVolumeScale = 10_000_000.0

	// defaultAlertHistory caps the bounded whale-alert log.
	defaultAlertHistory = 1000

	defaultLookback = 50
	maxSimilar      = 3
)

// WhaleEngine classifies threshold-crossing trades and owns the bounded
// history of emitted whale alerts. The sentiment and pattern queries are
// stateless over a caller-supplied trade snapshot; the engine does not own
// trade storage.
type WhaleEngine struct {
	threshold  float64
	historyMax int

	mu     sync.Mutex
	alerts []domain.WhaleAlert
}

// NewWhaleEngine creates an engine with an empty alert history.
// Non-positive arguments fall back to the defaults.
func NewWhaleEngine(thresholdUSD float64, alertHistoryMax int) *WhaleEngine {
	if thresholdUSD <= 0 {
		thresholdUSD = DefaultWhaleThreshold
	}
	if alertHistoryMax <= 0 {
		alertHistoryMax = defaultAlertHistory
	}
	return &WhaleEngine{threshold: thresholdUSD, historyMax: alertHistoryMax}
}

// IsWhale reports whether a notional value crosses the whale threshold.
func (e *WhaleEngine) IsWhale(value float64) bool {
	return value >= e.threshold
}

// Score maps a whale notional onto [0.1, 1.0]: the threshold scores 0.1 and
// ten times the threshold or more scores 1.0. Non-whale values score 0.
func (e *WhaleEngine) Score(value float64) float64 {
	if !e.IsWhale(value) {
		return 0
	}
	ceiling := e.threshold * scoreCeilingMultiple
	score := (value - e.threshold) / (ceiling - e.threshold)
	if score > 1 {
		score = 1
	}
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// SimilarPatterns searches the last lookback entries of the supplied trade
// log for whale trades on the same side and ranks them by notional proximity
// (1 - |delta|/max). It returns at most three matches, best first; equal
// similarities keep input order.
func (e *WhaleEngine) SimilarPatterns(value float64, isBuy bool, recent []domain.Trade, lookback int) []domain.SimilarPattern {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	start := 0
	if len(recent) > lookback {
		start = len(recent) - lookback
	}

	var matches []domain.SimilarPattern
	for _, t := range recent[start:] {
		if !e.IsWhale(t.Value) || t.IsBuy != isBuy {
			continue
		}
		max := t.Value
		if value > max {
			max = value
		}
		similarity := 0.0
		if max > 0 {
			similarity = 1 - math.Abs(t.Value-value)/max
		}
		matches = append(matches, domain.SimilarPattern{
			TradeID:    t.TradeID,
			Timestamp:  t.Timestamp.UTC().Format("2006-01-02T15:04:05.999999"),
			Price:      t.Price,
			Value:      t.Value,
			IsBuy:      t.IsBuy,
			Similarity: similarity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxSimilar {
		matches = matches[:maxSimilar]
	}
	return matches
}

// BullBearPower sums BUY versus SELL notional over the supplied trades,
// optionally restricted to whale trades, and derives a bull power in [-1,1]
// plus a momentum strength in [0,1]. Empty input returns all zeros.
func (e *WhaleEngine) BullBearPower(trades []domain.Trade, whalesOnly bool) domain.SentimentMetrics {
	var buy, sell float64
	for _, t := range trades {
		if whalesOnly && !e.IsWhale(t.Value) {
			continue
		}
		if t.IsBuy {
			buy += t.Value
		} else {
			sell += t.Value
		}
	}

	total := buy + sell
	bullPower := 0.0
	if total > 0 {
		bullPower = (buy - sell) / total
	}
	momentum := math.Abs(bullPower) * (total / momentumVolumeScale)
	if momentum > 1 {
		momentum = 1
	}

	return domain.SentimentMetrics{
		NetBuyVolume:  buy,
		NetSellVolume: sell,
		BullPower:     roundTo(bullPower, 4),
		Momentum:      roundTo(momentum, 4),
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Record appends a classified alert, dropping the oldest entry once the
// history exceeds its cap.
func (e *WhaleEngine) Record(alert domain.WhaleAlert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, alert)
	if len(e.alerts) > e.historyMax {
		e.alerts = e.alerts[len(e.alerts)-e.historyMax:]
	}
}

// Latest returns the most recent count alerts in chronological order.
func (e *WhaleEngine) Latest(count int) []domain.WhaleAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	if count <= 0 || count > len(e.alerts) {
		count = len(e.alerts)
	}
	out := make([]domain.WhaleAlert, count)
	copy(out, e.alerts[len(e.alerts)-count:])
	return out
}
