package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the health-check and root endpoints.
type HealthHandler struct {
	symbol    string
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler for the given symbol.
func NewHealthHandler(symbol string) *HealthHandler {
	return &HealthHandler{symbol: symbol, startedAt: time.Now().UTC()}
}

// Root identifies the API for a browser poking the base URL.
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "whalewatch",
		"symbol":    h.symbol,
		"status":    "running",
		"websocket": "/ws",
	})
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"symbol":         h.symbol,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
