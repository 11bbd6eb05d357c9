// File path: internal/api/health_handler.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/errs"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Snapshot()
	payload := map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"mongodb":        "connected",
		"schemas_loaded": len(snap.Collections),
	}
	status := http.StatusOK
	if err := s.backend.Ping(r.Context()); err != nil {
		common.Logger().Warn("api: health ping failed", "error", err)
		payload["status"] = "degraded"
		payload["mongodb"] = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, s.cfg.LogLimit)
	entries := common.RecentLogs(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    entries,
		"count":   len(entries),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"history": []interface{}{},
			"count":   0,
		})
		return
	}
	limit := queryLimit(r, s.cfg.HistoryLimit)
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, errs.Wrap(errs.KindInternal, err, "reading history"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": entries,
		"count":   len(entries),
	})
}

func queryLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
