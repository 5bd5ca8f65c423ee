// Package handler holds the plain HTTP endpoints served next to the RPC
// services.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"bizdiag/internal/cache/response"
	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
)

// StoreMetrics is implemented by stores that count their own traffic.
type StoreMetrics interface {
	Metrics() kv.MetricsSnapshot
}

type DebugHandler struct {
	cache *response.Cache
	store StoreMetrics
	log   *zap.Logger
}

// NewDebugHandler reports on cache and store. store may be nil.
func NewDebugHandler(cache *response.Cache, store StoreMetrics, log *zap.Logger) *DebugHandler {
	return &DebugHandler{cache: cache, store: store, log: logging.OrNop(log)}
}

// HandleFrontendTrace copies a browser-side trace line into the server log.
func (h *DebugHandler) HandleFrontendTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Timestamp string         `json:"timestamp"`
		SessionID string         `json:"session_id"`
		Stage     string         `json:"stage"`
		Level     string         `json:"level"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(in.SessionID)
	stage := strings.TrimSpace(in.Stage)
	if sessionID == "" || stage == "" {
		http.Error(w, "session_id and stage are required", http.StatusBadRequest)
		return
	}
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("stage", stage),
		zap.Any("fields", in.Fields),
	}
	if ts := strings.TrimSpace(in.Timestamp); ts != "" {
		fields = append(fields, zap.String("frontend_timestamp", ts))
	}
	switch strings.ToLower(strings.TrimSpace(in.Level)) {
	case "error":
		h.log.Error("frontend trace", fields...)
	case "warn", "warning":
		h.log.Warn("frontend trace", fields...)
	default:
		h.log.Info("frontend trace", fields...)
	}
	writeJSON(w, map[string]any{"ok": true})
}

// HandleCacheStats returns the response cache and store counters.
func (h *DebugHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{"responses": h.cache.Metrics()}
	if h.store != nil {
		out["store"] = h.store.Metrics()
	}
	writeJSON(w, out)
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
