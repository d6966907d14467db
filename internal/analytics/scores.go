package analytics

import "math"

// The five execution scorers are pure functions of the aggregator's current
// window state. Each returns a value in [0,1]; insufficient data is a
// designed fallback branch producing a neutral score, never an error.

// sizeScore measures how unusual the largest 10s trade is relative to the
// 60s log-notional distribution. With at least six 60s samples it uses a
// z-score squashed by a logistic centered two standard deviations above the
// mean; otherwise it falls back to a ratio against 8x the median notional.
func sizeScore(a *WindowedAggregator) float64 {
	maxNotional := a.MaxNotionalShort()
	if maxNotional <= 0 {
		return 0
	}

	if n := a.Long.Count; n >= 6 {
		mean := a.Long.SumLog / float64(n)
		variance := a.Long.SumLogSq/float64(n) - mean*mean
		if variance > 0 {
			std := math.Sqrt(variance)
			z := (math.Log(maxNotional) - mean) / std
			return 1 / (1 + math.Exp(-(z - 2)))
		}
	}

	med := a.MedianNotionalLong()
	if med <= 0 {
		return 0
	}
	return clamp01(maxNotional / (8 * med))
}

// slicingScore detects a large order being split into many same-size
// same-side child trades: 0.6 weight on raw repetition, 0.4 on how regular
// the spacing between the repeats is.
func slicingScore(a *WindowedAggregator) float64 {
	repetition := clamp01((float64(a.MaxBucketCount()) - 6) / 12)
	return 0.6*repetition + 0.4*periodicityScore(a)
}

// periodicityScore computes the inter-arrival coefficient of variation for
// the dominant (side,bucket) slot. Lower variance in spacing means a higher
// score; fewer than four timestamps yields 0.
func periodicityScore(a *WindowedAggregator) float64 {
	entry := a.DominantBucket()
	if entry == nil || len(entry.Times) < 4 {
		return 0
	}

	intervals := make([]float64, 0, len(entry.Times)-1)
	for i := 1; i < len(entry.Times); i++ {
		intervals = append(intervals, entry.Times[i]-entry.Times[i-1])
	}

	var sum float64
	for _, iv := range intervals {
		sum += iv
	}
	mean := sum / float64(len(intervals))
	if mean <= 0 {
		return 0
	}

	var sq float64
	for _, iv := range intervals {
		d := iv - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(intervals)))
	cv := std / mean
	return clamp01((0.6 - cv) / 0.6)
}

// volumeBurst measures current 10s notional against the baseline median on a
// log scale: ln2 above baseline starts scoring, ln8 above saturates.
func volumeBurst(notional10, baselineVol float64) float64 {
	if notional10 <= 0 || baselineVol <= 0 {
		return 0
	}
	return clamp01((math.Log(notional10/baselineVol) - math.Ln2) / math.Log(8))
}

// absorptionScore combines a volume burst with an unusually tight 10s price
// range: heavy flow into a flat tape suggests a resting counterparty.
func absorptionScore(a *WindowedAggregator, burst float64) float64 {
	rng, last := a.PriceRangeShort()
	if last <= 0 {
		return 0
	}
	tightRange := clamp01((0.002 - rng/last) / 0.002)
	return burst * tightRange
}

// aggressionScore measures one-sided flow in both windows. The per-window
// ratio |signed notional| / notional ramps from 0.55 to 0.90.
func aggressionScore(a *WindowedAggregator) float64 {
	return 0.5*flowRatioScore(a.Short.SumSigned, a.Short.SumNotional) +
		0.5*flowRatioScore(a.Long.SumSigned, a.Long.SumNotional)
}

func flowRatioScore(signed, total float64) float64 {
	return clamp01((flowRatio(signed, total) - 0.55) / 0.35)
}

func flowRatio(signed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Abs(signed) / total
}

// impactAnomalyScore flags large volume that moved the price abnormally
// little versus the baseline impact-per-notional.
func impactAnomalyScore(burst, curImpact, baselineImpact float64) float64 {
	if baselineImpact <= 0 {
		return 0
	}
	lowImpact := clamp01((baselineImpact - curImpact) / baselineImpact)
	return burst * lowImpact
}

// impactPerNotional is |10s price move %| divided by 10s notional.
func impactPerNotional(a *WindowedAggregator) float64 {
	if a.Short.SumNotional <= 0 {
		return 0
	}
	return math.Abs(a.PriceMovePctShort()) / a.Short.SumNotional
}
