package service

import (
	"context"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

const (
	bullBearEmitInterval    = 5 * time.Second
	hypeRealityEmitInterval = 10 * time.Second
)

type bullBearPayload struct {
	Type string `json:"type"`
	domain.SentimentMetrics
	Timestamp string `json:"timestamp"`
}

type hypeRealityPayload struct {
	Type string `json:"type"`
	domain.HypeRealityMetrics
	Timestamp string `json:"timestamp"`
}

// RunBullBearEmitter periodically recomputes buy/sell sentiment from the
// trade ring and publishes it. It blocks until ctx is canceled.
func (s *StreamService) RunBullBearEmitter(ctx context.Context) error {
	ticker := time.NewTicker(bullBearEmitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.publish(ctx, ChannelBullBear, bullBearPayload{
				Type:             "bull_bear_metrics",
				SentimentMetrics: s.BullBear(),
				Timestamp:        s.now().UTC().Format(time.RFC3339),
			})
		}
	}
}

// RunHypeRealityEmitter periodically publishes the hype-vs-reality
// comparison. Ticks where no ticker is available are skipped.
func (s *StreamService) RunHypeRealityEmitter(ctx context.Context) error {
	ticker := time.NewTicker(hypeRealityEmitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m := s.HypeReality(ctx)
			if m == nil {
				continue
			}
			s.publish(ctx, ChannelHypeReality, hypeRealityPayload{
				Type:               "hype_reality_metrics",
				HypeRealityMetrics: *m,
				Timestamp:          s.now().UTC().Format(time.RFC3339),
			})
		}
	}
}
