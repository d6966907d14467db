package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// AlertDispatcher formats engine events into operator notifications and
// applies a per-trade cooldown so a burst of re-broadcasts for the same
// trade does not spam the channels.
type AlertDispatcher struct {
	notifier *Notifier
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[int64]time.Time

	now func() time.Time
}

// NewAlertDispatcher creates a dispatcher over the given notifier. A zero
// cooldown disables deduplication.
func NewAlertDispatcher(notifier *Notifier, cooldown time.Duration) *AlertDispatcher {
	return &AlertDispatcher{
		notifier: notifier,
		cooldown: cooldown,
		lastSent: make(map[int64]time.Time),
		now:      time.Now,
	}
}

// WhaleAlert notifies all channels about a classified whale trade. Repeat
// alerts for the same trade id inside the cooldown window are dropped.
func (d *AlertDispatcher) WhaleAlert(ctx context.Context, alert domain.WhaleAlert) error {
	if !d.allow(alert.TradeID) {
		return nil
	}

	side := "SELL"
	if alert.IsBuy {
		side = "BUY"
	}
	title := fmt.Sprintf("Whale %s $%.0f", side, alert.Value)
	message := fmt.Sprintf(
		"Price: $%.2f\nQuantity: %.4f\nWhale score: %.2f\nSentiment: %.4f",
		alert.Price, alert.Quantity, alert.WhaleScore, alert.Sentiment,
	)
	if alert.Label != "" {
		message += "\nExecution: " + alert.Label
	}

	return d.notifier.Notify(ctx, "whale_alert", title, message)
}

// ExecutionEvent notifies all channels about a labeled institutional
// execution pattern. Execution events carry no trade id, so no cooldown
// applies; the classifier already rate limits its own output.
func (d *AlertDispatcher) ExecutionEvent(ctx context.Context, event domain.ExecutionEvent) error {
	title := fmt.Sprintf("%s institutional %s on %s", event.Label, event.Side, event.Symbol)
	message := fmt.Sprintf(
		"Score: %d/100\nConfidence: %.2f\nSlicing: %.2f  Absorption: %.2f\nAggression: %.2f  Impact anomaly: %.2f",
		event.Score, event.Confidence,
		event.Features.SlicingScore, event.Features.Absorption,
		event.Features.Aggression, event.Features.ImpactAnomaly,
	)
	return d.notifier.Notify(ctx, "institutional_execution", title, message)
}

// allow reports whether an alert for the trade id may be sent and records
// the send time when it is. It also prunes expired entries to keep the map
// bounded.
func (d *AlertDispatcher) allow(tradeID int64) bool {
	if d.cooldown <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, seen := d.lastSent[tradeID]; seen && now.Sub(last) < d.cooldown {
		return false
	}

	for id, last := range d.lastSent {
		if now.Sub(last) >= d.cooldown {
			delete(d.lastSent, id)
		}
	}
	d.lastSent[tradeID] = now
	return true
}
