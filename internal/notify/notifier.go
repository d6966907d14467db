// Package notify pushes engine alerts to operator channels. A Notifier fans
// one message out to every configured sender; the AlertDispatcher above it
// formats whale and execution events and applies the per-trade cooldown.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers one formatted message to a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans messages out to every sender, filtered by event kind. The
// filter is the configured [notify] events list; an empty list passes
// everything.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. events
// restricts which event kinds are forwarded; nil or empty allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	var allowed map[string]struct{}
	if len(events) > 0 {
		allowed = make(map[string]struct{}, len(events))
		for _, e := range events {
			allowed[strings.TrimSpace(e)] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the message to every sender when the event kind passes
// the filter. A failing sender does not block the others; all failures are
// joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if n.allowed != nil {
		if _, ok := n.allowed[event]; !ok {
			n.logger.DebugContext(ctx, "event not in notify list", slog.String("event", event))
			return nil
		}
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notification delivery failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification delivered",
			slog.String("sender", s.Name()),
			slog.String("event", event))
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}
