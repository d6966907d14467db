package service

import (
	"context"
	"math"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	// hypeWindow is how far back whale activity is measured.
	hypeWindow = 10 * time.Minute

	// shortChangeWindow is the live price-change window preferred over the
	// exchange's 24h figure.
	shortChangeWindow = 10 * time.Second

	// hypeGap is the score separation that tips the insight one way.
	hypeGap = 10.0
)

const (
	insightWhalesDominate = "Reality Check: Whale activity outpacing price hype. Institutional flows dominate."
	insightRetailRisk     = "Reality Check: Price hype outpacing whale activity. Retail-driven move risk."
	insightBalanced       = "Reality Check: Whale activity and price hype are in balance."
)

// HypeReality compares short-term price movement against whale flow. It
// returns nil when no ticker is available to anchor the price change.
func (s *StreamService) HypeReality(ctx context.Context) *domain.HypeRealityMetrics {
	if s.tickers == nil {
		return nil
	}
	ticker, err := s.tickers.Get(ctx)
	if err != nil {
		return nil
	}

	trades := s.RecentTrades()

	changePct := ticker.PriceChangePercent
	if short := priceChangeOver(trades, s.now().UTC(), shortChangeWindow); short != nil {
		changePct = *short
	}

	socialScore := math.Min(math.Abs(changePct)*12, 100.0)
	whaleScore, whaleValue := s.whaleActivityScore(trades, s.now().UTC())

	return &domain.HypeRealityMetrics{
		SocialHypeScore:    roundTo1(socialScore),
		WhaleActivityScore: roundTo1(whaleScore),
		PriceChangePercent: changePct,
		WhaleValue:         whaleValue,
		Insight:            interpretHypeReality(socialScore, whaleScore),
	}
}

// priceChangeOver computes the percent move between the first and last trade
// inside the window. It returns nil with fewer than two window trades or a
// non-positive opening price.
func priceChangeOver(trades []domain.Trade, now time.Time, window time.Duration) *float64 {
	cutoff := now.Add(-window)
	var first, last *domain.Trade
	for i := range trades {
		if trades[i].Timestamp.Before(cutoff) {
			continue
		}
		if first == nil {
			first = &trades[i]
		}
		last = &trades[i]
	}
	if first == nil || last == nil || first == last || first.Price <= 0 {
		return nil
	}
	pct := (last.Price - first.Price) / first.Price * 100
	return &pct
}

// whaleActivityScore blends overall turnover against whale share of that
// turnover over the hype window. Volume saturates on a log base 50 scale at
// $50M of window turnover.
func (s *StreamService) whaleActivityScore(trades []domain.Trade, now time.Time) (score, whaleValue float64) {
	cutoff := now.Add(-hypeWindow)

	var total float64
	for _, t := range trades {
		if t.Timestamp.Before(cutoff) {
			continue
		}
		total += t.Value
		if s.whales.IsWhale(t.Value) {
			whaleValue += t.Value
		}
	}

	if total <= 0 {
		return 0, whaleValue
	}

	whaleRatio := whaleValue / math.Max(total, 1.0)
	volumeScore := clamp01(math.Log(math.Max(total/1_000_000, 1.0)) / math.Log(50.0))
	score = math.Min((0.6*volumeScore+0.4*whaleRatio)*100, 100.0)
	return score, whaleValue
}

func interpretHypeReality(socialScore, whaleScore float64) string {
	switch {
	case whaleScore-socialScore > hypeGap:
		return insightWhalesDominate
	case socialScore-whaleScore > hypeGap:
		return insightRetailRisk
	default:
		return insightBalanced
	}
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

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
