package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

type captureSender struct {
	titles []string
}

func (c *captureSender) Send(ctx context.Context, title, message string) error {
	c.titles = append(c.titles, title)
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func TestWhaleAlertCooldown(t *testing.T) {
	sender := &captureSender{}
	notifier := NewNotifier([]Sender{sender}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d := NewAlertDispatcher(notifier, 5*time.Second)

	now := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return now }

	alert := domain.WhaleAlert{TradeID: 7, Value: 750_000, IsBuy: true, Price: 65000, Quantity: 11.5}

	if err := d.WhaleAlert(context.Background(), alert); err != nil {
		t.Fatal(err)
	}
	if err := d.WhaleAlert(context.Background(), alert); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 1 {
		t.Fatalf("repeat alert inside cooldown must be dropped, sent %d", len(sender.titles))
	}

	// A different trade is unaffected.
	other := alert
	other.TradeID = 8
	if err := d.WhaleAlert(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 2 {
		t.Fatalf("distinct trade must send, got %d", len(sender.titles))
	}

	// After the window the original trade may alert again.
	now = now.Add(6 * time.Second)
	if err := d.WhaleAlert(context.Background(), alert); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 3 {
		t.Fatalf("alert after cooldown must send, got %d", len(sender.titles))
	}
}

func TestNotifierEventFilter(t *testing.T) {
	sender := &captureSender{}
	notifier := NewNotifier([]Sender{sender}, []string{"institutional_execution"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d := NewAlertDispatcher(notifier, 0)

	if err := d.WhaleAlert(context.Background(), domain.WhaleAlert{TradeID: 1, Value: 600_000}); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 0 {
		t.Fatalf("whale_alert should be filtered out, sent %d", len(sender.titles))
	}

	if err := d.ExecutionEvent(context.Background(), domain.ExecutionEvent{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Label: domain.LabelStrong, Score: 85,
	}); err != nil {
		t.Fatal(err)
	}
	if len(sender.titles) != 1 {
		t.Fatalf("institutional_execution should pass the filter, sent %d", len(sender.titles))
	}
}
