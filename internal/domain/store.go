package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// WhaleTradeStore persists classified whale alerts.
type WhaleTradeStore interface {
	Insert(ctx context.Context, alert WhaleAlert) error
	ListRecent(ctx context.Context, limit int) ([]WhaleAlert, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]WhaleAlert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ExecutionEventStore persists labeled institutional execution events.
type ExecutionEventStore interface {
	Insert(ctx context.Context, event ExecutionEvent) error
	ListRecent(ctx context.Context, limit int) ([]ExecutionEvent, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]ExecutionEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
