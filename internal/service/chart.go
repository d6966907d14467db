package service

import (
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	minChartInterval = 5 * time.Second
	maxChartInterval = 300 * time.Second
)

// BuildChart aggregates the trade ring into OHLC buckets covering the last
// minutes of activity. Empty buckets are filled with a flat candle at the
// previous close; leading buckets before the first trade are omitted.
// Institutional execution volume is folded into the whale volume of its
// bucket. It returns nil when the ring is empty, in which case callers fall
// back to exchange klines.
func (s *StreamService) BuildChart(minutes int, interval time.Duration) []domain.ChartBucket {
	trades := s.RecentTrades()
	if len(trades) == 0 {
		return nil
	}

	if interval < minChartInterval {
		interval = minChartInterval
	}
	if interval > maxChartInterval {
		interval = maxChartInterval
	}

	now := s.now().UTC().Truncate(time.Second)
	bucketCount := int((time.Duration(minutes) * time.Minute) / interval)
	if bucketCount < 1 {
		bucketCount = 1
	}
	start := now.Add(-interval * time.Duration(bucketCount-1)).Truncate(interval)

	instVolume := make(map[time.Time]float64)
	for _, ev := range s.instEventsSnapshot() {
		instVolume[ev.Timestamp.UTC().Truncate(interval)] += ev.Volume
	}

	buckets := make(map[time.Time]*domain.ChartBucket)
	for _, t := range trades {
		ts := t.Timestamp.UTC()
		if ts.Before(start) {
			continue
		}
		key := ts.Truncate(interval)

		b, ok := buckets[key]
		if !ok {
			b = &domain.ChartBucket{
				Timestamp: key,
				Open:      t.Price,
				High:      t.Price,
				Low:       t.Price,
				Close:     t.Price,
			}
			buckets[key] = b
		} else {
			if t.Price > b.High {
				b.High = t.Price
			}
			if t.Price < b.Low {
				b.Low = t.Price
			}
			b.Close = t.Price
		}

		b.Volume += t.Quantity
		if s.whales.IsWhale(t.Value) {
			b.WhaleVolume += t.Quantity
		}
	}

	var out []domain.ChartBucket
	var lastClose *float64

	for i := 0; i < bucketCount; i++ {
		key := start.Add(interval * time.Duration(i))
		if b, ok := buckets[key]; ok {
			b.WhaleVolume += instVolume[key]
			out = append(out, *b)
			lastClose = &b.Close
		} else if lastClose != nil {
			out = append(out, domain.ChartBucket{
				Timestamp: key,
				Open:      *lastClose,
				High:      *lastClose,
				Low:       *lastClose,
				Close:     *lastClose,
			})
		}
	}

	return out
}
