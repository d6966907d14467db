package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whalewatch/engine/internal/domain"
)

// WhaleStore implements domain.WhaleTradeStore using PostgreSQL.
type WhaleStore struct {
	pool *pgxpool.Pool
}

// NewWhaleStore creates a new WhaleStore backed by the given connection pool.
func NewWhaleStore(pool *pgxpool.Pool) *WhaleStore {
	return &WhaleStore{pool: pool}
}

const whaleSelectCols = `alert_id, trade_id, ts, price, quantity, trade_value,
	is_buy, whale_score, sentiment, similar_patterns, label`

// Insert stores a classified whale alert. A missing AlertID is assigned here
// so callers can hand over alerts straight from the classifier.
func (s *WhaleStore) Insert(ctx context.Context, alert domain.WhaleAlert) error {
	const query = `
		INSERT INTO whale_trades (
			alert_id, trade_id, ts, price, quantity, trade_value,
			is_buy, whale_score, sentiment, similar_patterns, label
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)`

	alertID := alert.AlertID
	if alertID == "" {
		alertID = uuid.NewString()
	}

	patterns, err := json.Marshal(alert.SimilarPatterns)
	if err != nil {
		return fmt.Errorf("postgres: marshal similar patterns: %w", err)
	}

	_, err = s.pool.Exec(ctx, query,
		alertID, alert.TradeID, alert.Timestamp, alert.Price, alert.Quantity, alert.Value,
		alert.IsBuy, alert.WhaleScore, alert.Sentiment, patterns, nullIfEmpty(alert.Label),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert whale trade %d: %w", alert.TradeID, err)
	}
	return nil
}

// ListRecent returns the most recent whale alerts, newest first.
func (s *WhaleStore) ListRecent(ctx context.Context, limit int) ([]domain.WhaleAlert, error) {
	query := `SELECT ` + whaleSelectCols + ` FROM whale_trades ORDER BY ts DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

// ListBefore returns whale alerts older than the given cutoff, newest first.
func (s *WhaleStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.WhaleAlert, error) {
	query := `SELECT ` + whaleSelectCols + ` FROM whale_trades WHERE ts < $1 ORDER BY ts DESC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, query, args...)
}

func (s *WhaleStore) list(ctx context.Context, query string, args ...any) ([]domain.WhaleAlert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list whale trades: %w", err)
	}
	defer rows.Close()

	var alerts []domain.WhaleAlert
	for rows.Next() {
		var a domain.WhaleAlert
		var patterns []byte
		var label *string

		if err := rows.Scan(
			&a.AlertID, &a.TradeID, &a.Timestamp, &a.Price, &a.Quantity, &a.Value,
			&a.IsBuy, &a.WhaleScore, &a.Sentiment, &patterns, &label,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan whale trade: %w", err)
		}

		a.Type = "whale_alert"
		if label != nil {
			a.Label = *label
		}
		if len(patterns) > 0 {
			if err := json.Unmarshal(patterns, &a.SimilarPatterns); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal similar patterns: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list whale trades rows: %w", err)
	}
	return alerts, nil
}

// DeleteBefore removes whale alerts older than the cutoff and reports how
// many rows were deleted.
func (s *WhaleStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM whale_trades WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete whale trades: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored whale alerts.
func (s *WhaleStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM whale_trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count whale trades: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ domain.WhaleTradeStore = (*WhaleStore)(nil)
