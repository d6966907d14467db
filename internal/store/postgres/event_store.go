package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whalewatch/engine/internal/domain"
)

// EventStore implements domain.ExecutionEventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const eventSelectCols = `symbol, side, label, score, confidence, features, ts`

// Insert stores a labeled execution event. The feature snapshot is kept as
// JSONB so new features do not require schema changes.
func (s *EventStore) Insert(ctx context.Context, event domain.ExecutionEvent) error {
	const query = `
		INSERT INTO execution_events (
			symbol, side, label, score, confidence, features, ts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	features, err := json.Marshal(event.Features)
	if err != nil {
		return fmt.Errorf("postgres: marshal features: %w", err)
	}

	_, err = s.pool.Exec(ctx, query,
		event.Symbol, string(event.Side), string(event.Label),
		event.Score, event.Confidence, features, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution event: %w", err)
	}
	return nil
}

// ListRecent returns the most recent execution events, newest first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionEvent, error) {
	query := `SELECT ` + eventSelectCols + ` FROM execution_events ORDER BY ts DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListBefore returns execution events older than the given cutoff, newest first.
func (s *EventStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.ExecutionEvent, error) {
	query := `SELECT ` + eventSelectCols + ` FROM execution_events WHERE ts < $1 ORDER BY ts DESC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]domain.ExecutionEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list execution events: %w", err)
	}
	defer rows.Close()

	var events []domain.ExecutionEvent
	for rows.Next() {
		var e domain.ExecutionEvent
		var side, label string
		var features []byte

		if err := rows.Scan(
			&e.Symbol, &side, &label, &e.Score, &e.Confidence, &features, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan execution event: %w", err)
		}

		e.Type = "institutional_execution"
		e.Side = domain.Side(side)
		e.Label = domain.ExecutionLabel(label)
		if len(features) > 0 {
			if err := json.Unmarshal(features, &e.Features); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal features: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list execution events rows: %w", err)
	}
	return events, nil
}

// DeleteBefore removes execution events older than the cutoff and reports how
// many rows were deleted.
func (s *EventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM execution_events WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete execution events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.ExecutionEventStore = (*EventStore)(nil)
