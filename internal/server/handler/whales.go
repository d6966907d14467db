package handler

import (
	"log/slog"
	"net/http"

	"github.com/whalewatch/engine/internal/domain"
)

// maxWhaleListLimit caps the whale-trade listing regardless of the request.
const maxWhaleListLimit = 50

// WhaleFeed exposes the in-memory whale alert history.
type WhaleFeed interface {
	LatestWhales(count int) []domain.WhaleAlert
}

// WhaleHandler serves the whale-trade endpoints. The in-memory history is
// authoritative for recent alerts; the store backfills after a restart when
// persistence is configured.
type WhaleHandler struct {
	feed   WhaleFeed
	store  domain.WhaleTradeStore // optional
	logger *slog.Logger
}

// NewWhaleHandler creates a WhaleHandler. The store may be nil.
func NewWhaleHandler(feed WhaleFeed, store domain.WhaleTradeStore, logger *slog.Logger) *WhaleHandler {
	return &WhaleHandler{
		feed:   feed,
		store:  store,
		logger: logHandler(logger, "whales"),
	}
}

// ListWhaleTrades returns the most recent whale alerts, newest last.
// GET /api/whale-trades?limit=20
func (h *WhaleHandler) ListWhaleTrades(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", maxWhaleListLimit, 1, maxWhaleListLimit)

	alerts := h.feed.LatestWhales(limit)
	if len(alerts) == 0 && h.store != nil {
		stored, err := h.store.ListRecent(r.Context(), limit)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list stored whale trades failed",
				slog.String("error", err.Error()))
		} else {
			alerts = stored
		}
	}
	if alerts == nil {
		alerts = []domain.WhaleAlert{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    alerts,
		"count":   len(alerts),
	})
}
