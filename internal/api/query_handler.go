// File path: internal/api/query_handler.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"nl2mongo/internal/common"
	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/history"
	"nl2mongo/internal/query"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeBadRequest(w, "no text provided")
		return
	}

	spanCtx, finish := telemetry.StartSpan(r.Context(), "api.convert")
	outcome := "ok"
	defer func() {
		finish("outcome", outcome)
	}()

	// The snapshot is loaded once so generation and validation judge the
	// descriptor against the same catalog.
	snapshot := s.catalog.Snapshot()
	descriptor, err := s.converter.Generate(spanCtx, snapshot, text)
	if err != nil {
		outcome = "generate_failed"
		s.recordConvert(spanCtx, text, nil, err)
		writeError(w, err)
		return
	}
	if err := s.validator.Validate(snapshot, descriptor.Collection, descriptor.QueryType, descriptor.Query); err != nil {
		outcome = "rejected"
		s.recordConvert(spanCtx, text, descriptor, err)
		writeError(w, err)
		return
	}
	s.recordConvert(spanCtx, text, descriptor, nil)
	logger.Info("api: converted utterance",
		"collection", descriptor.Collection, "query_type", descriptor.QueryType,
		"dur", telemetry.SpanDuration(spanCtx))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collection":  descriptor.Collection,
		"query_type":  descriptor.QueryType,
		"query":       descriptor.Query,
		"explanation": descriptor.Explanation,
	})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Collection) == "" {
		writeBadRequest(w, "no collection provided")
		return
	}

	spanCtx, finish := telemetry.StartSpan(r.Context(), "api.execute")
	defer func() {
		finish("collection", req.Collection)
	}()

	snapshot := s.catalog.Snapshot()
	if err := s.validator.Validate(snapshot, req.Collection, req.QueryType, req.Query); err != nil {
		s.recordExecute(spanCtx, req, nil, err)
		writeError(w, err)
		return
	}
	result, err := s.executor.Execute(spanCtx, req.Collection, req.QueryType, req.Query)
	if err != nil {
		s.recordExecute(spanCtx, req, nil, err)
		writeError(w, err)
		return
	}
	s.recordExecute(spanCtx, req, result, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"query_type": result.QueryType,
		"count":      result.Count,
		"results":    resultDocs(result),
	})
}

func resultDocs(result *query.ExecutionResult) []map[string]any {
	if result.Results == nil {
		return []map[string]any{}
	}
	return result.Results
}

func (s *Server) recordConvert(ctx context.Context, text string, descriptor *query.Descriptor, convErr error) {
	if s.history == nil {
		return
	}
	rec := history.Record{Kind: history.KindConvert, Input: text, Err: convErr}
	if descriptor != nil {
		rec.Collection = descriptor.Collection
		rec.QueryType = descriptor.QueryType
		if raw, err := json.Marshal(descriptor); err == nil {
			rec.Output = string(raw)
		}
	}
	s.history.Add(ctx, rec)
}

func (s *Server) recordExecute(ctx context.Context, req executeRequest, result *query.ExecutionResult, execErr error) {
	if s.history == nil {
		return
	}
	rec := history.Record{
		Kind:       history.KindExecute,
		Collection: req.Collection,
		QueryType:  req.QueryType,
		Err:        execErr,
	}
	if raw, err := json.Marshal(req.Query); err == nil {
		rec.Input = string(raw)
	}
	if result != nil {
		if raw, err := json.Marshal(map[string]interface{}{"count": result.Count}); err == nil {
			rec.Output = string(raw)
		}
	}
	s.history.Add(ctx, rec)
}
