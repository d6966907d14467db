package handler

import (
	"log/slog"
	"net/http"

	"github.com/whalewatch/engine/internal/domain"
)

// maxExecutionListLimit caps the execution-event listing regardless of the
// request.
const maxExecutionListLimit = 50

// ExecutionHandler serves the labeled institutional execution history from
// the store.
type ExecutionHandler struct {
	store  domain.ExecutionEventStore
	logger *slog.Logger
}

// NewExecutionHandler creates an ExecutionHandler.
func NewExecutionHandler(store domain.ExecutionEventStore, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		store:  store,
		logger: logHandler(logger, "executions"),
	}
}

// ListExecutions returns the most recent labeled execution events.
// GET /api/executions?limit=N
func (h *ExecutionHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 10, 1, maxExecutionListLimit)

	events, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list executions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "execution history unavailable")
		return
	}
	if events == nil {
		events = []domain.ExecutionEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}
