// File path: internal/api/schema_handler.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"nl2mongo/internal/common"
	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/errs"
	"nl2mongo/internal/schema"
)

func (s *Server) handleGenerateSchema(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req generateSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}

	strategy, ok := schema.ParseMergeStrategy(req.MergeStrategy)
	if !ok {
		writeBadRequest(w, "invalid merge_strategy: %s", req.MergeStrategy)
		return
	}
	detect := true
	if req.DetectRelationships != nil {
		detect = *req.DetectRelationships
	}
	sampleSize := req.SampleSize
	if sampleSize <= 0 {
		sampleSize = s.cfg.SampleSize
	}

	available, err := s.backend.CollectionNames(r.Context())
	if err != nil {
		writeError(w, errs.Wrap(errs.KindSourceUnavailable, err, "listing collections"))
		return
	}
	if invalid := missingFrom(req.Collections, available); len(invalid) > 0 {
		logger.Warn("api: generate-schema rejected", "invalid", strings.Join(invalid, ","))
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":               false,
			"error":                 "invalid collections: " + strings.Join(invalid, ", "),
			"kind":                  string(errs.KindCollectionNotFound),
			"invalid_collections":   invalid,
			"available_collections": available,
		})
		return
	}

	logger.Info("api: generating schemas",
		"collections", len(req.Collections), "sample_size", sampleSize,
		"detect_relationships", detect, "merge_strategy", string(strategy))

	spanCtx, finish := telemetry.StartSpan(r.Context(), "api.generate_schema")
	analyzed := 0
	defer func() {
		finish("collections", analyzed)
	}()

	prior := s.catalog.Snapshot().Collections
	result, err := s.generator.Generate(spanCtx, req.Collections, prior, schema.GenerateOptions{
		SampleSize:          sampleSize,
		DetectRelationships: detect,
		MergeStrategy:       strategy,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	analyzed = result.Report.CollectionsAnalyzed
	if _, err := s.catalog.Replace(result.Collections, result.Relationships); err != nil {
		writeError(w, errs.Wrap(errs.KindInternal, err, "persisting catalog"))
		return
	}
	logger.Info("api: catalog replaced",
		"collections", analyzed, "dur", telemetry.SpanDuration(spanCtx))

	payload := map[string]interface{}{
		"success": true,
		"stats": map[string]interface{}{
			"collections_analyzed": result.Report.CollectionsAnalyzed,
			"total_fields":         result.Report.TotalFields,
			"relationships_found":  result.Report.RelationshipsFound,
		},
		"relationships": map[string]interface{}{
			"links": relationshipLinks(result.Relationships),
		},
	}
	if len(result.Report.Errors) > 0 {
		payload["errors"] = result.Report.Errors
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"schemas": snap.Collections,
	})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.backend.CollectionNames(r.Context())
	if err != nil {
		writeError(w, errs.Wrap(errs.KindSourceUnavailable, err, "listing collections"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collections": names,
	})
}

// missingFrom returns the requested names absent from the available set.
func missingFrom(requested, available []string) []string {
	if len(requested) == 0 {
		return nil
	}
	availSet := make(map[string]bool, len(available))
	for _, name := range available {
		availSet[name] = true
	}
	var invalid []string
	for _, name := range requested {
		if !availSet[name] {
			invalid = append(invalid, name)
		}
	}
	return invalid
}

// relationshipLinks keeps the links array non-null in the JSON response even
// when nothing was detected.
func relationshipLinks(rels []schema.Relationship) []schema.Relationship {
	if rels == nil {
		return []schema.Relationship{}
	}
	return rels
}
