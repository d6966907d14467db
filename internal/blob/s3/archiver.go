package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/whalewatch/engine/internal/domain"
)

// ArchiveImpl implements domain.Archiver by querying the primary stores for
// aged records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of archived rows from the primary store is intentionally NOT
// performed here; retention runs as a separate step once the upload has
// succeeded.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	whales domain.WhaleTradeStore
	events domain.ExecutionEventStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl. The reader is used to append to an
// existing month file; archived rows are deleted from the primary store, so
// overwriting a prior upload in the same month would lose them.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, whales domain.WhaleTradeStore, events domain.ExecutionEventStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		reader: reader,
		whales: whales,
		events: events,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveWhaleTrades uploads all whale alerts older than the cutoff to
// archive/whale_trades/YYYY-MM.jsonl and returns the record count.
func (a *ArchiveImpl) ArchiveWhaleTrades(ctx context.Context, before time.Time) (int64, error) {
	alerts, err := a.whales.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive whale trades query: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(alerts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive whale trades marshal: %w", err)
	}

	path := archivePath("whale_trades", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive whale trades upload: %w", err)
	}

	count := int64(len(alerts))
	a.logger.Info("archived whale trades",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before))
	return count, nil
}

// ArchiveExecutionEvents uploads all execution events older than the cutoff
// to archive/execution_events/YYYY-MM.jsonl and returns the record count.
func (a *ArchiveImpl) ArchiveExecutionEvents(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.events.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive execution events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive execution events marshal: %w", err)
	}

	path := archivePath("execution_events", before)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive execution events upload: %w", err)
	}

	count := int64(len(events))
	a.logger.Info("archived execution events",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before))
	return count, nil
}

// upload writes the JSONL batch to path, prepending any existing object at
// the same key so repeated runs within one month accumulate instead of
// overwriting.
func (a *ArchiveImpl) upload(ctx context.Context, path string, batch []byte) error {
	body := batch
	if a.reader != nil {
		existing, err := a.reader.Get(ctx, path)
		switch {
		case err == nil:
			prior, readErr := io.ReadAll(existing)
			existing.Close()
			if readErr != nil {
				return fmt.Errorf("read existing %s: %w", path, readErr)
			}
			body = append(prior, batch...)
		case errors.Is(err, domain.ErrNotFound):
		default:
			return fmt.Errorf("check existing %s: %w", path, err)
		}
	}
	return a.writer.Put(ctx, path, bytes.NewReader(body), "application/x-ndjson")
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/whale_trades/2025-01.jsonl
//	archive/execution_events/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
