// File path: internal/query/executor.go

package query

import (
	"context"
	"log/slog"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/errs"
	"nl2mongo/internal/store"
)

// ExecutorStore is the slice of the document store execution needs.
type ExecutorStore interface {
	FindDocuments(ctx context.Context, collection string, filter map[string]any, opts store.FindOptions) ([]map[string]any, error)
	AggregateDocuments(ctx context.Context, collection string, pipeline []any, limit int) ([]map[string]any, error)
	CountMatching(ctx context.Context, collection string, filter map[string]any) (int64, error)
}

// ExecutionResult is the JSON-safe outcome of running a descriptor. Count is
// the scalar result for count queries and the returned document count
// otherwise.
type ExecutionResult struct {
	QueryType string           `json:"query_type"`
	Count     int64            `json:"count"`
	Results   []map[string]any `json:"results,omitempty"`
}

// Executor maps validated descriptors onto store operations and caps every
// result set at the configured limit.
type Executor struct {
	store  ExecutorStore
	cfg    Config
	logger *slog.Logger
}

func NewExecutor(st ExecutorStore, cfg Config) *Executor {
	cfg.applyDefaults()
	return &Executor{store: st, cfg: cfg, logger: common.Logger()}
}

// Execute runs one descriptor. Store failures surface as Execution errors
// and are never retried.
func (e *Executor) Execute(ctx context.Context, collection, queryType string, query map[string]any) (*ExecutionResult, error) {
	if query == nil {
		query = map[string]any{}
	}
	start := time.Now()
	result, err := e.run(ctx, collection, queryType, query)
	telemetry.RecordExecution(queryType, time.Since(start))
	if err != nil {
		e.logger.Error("query: execution failed", "collection", collection, "query_type", queryType, "error", err)
		return nil, err
	}
	e.logger.Info("query: executed", "collection", collection, "query_type", queryType, "count", result.Count)
	return result, nil
}

func (e *Executor) run(ctx context.Context, collection, queryType string, query map[string]any) (*ExecutionResult, error) {
	switch queryType {
	case "find":
		opts := store.FindOptions{
			Projection: subMap(query, "projection"),
			Sort:       subMap(query, "sort"),
			Limit:      int64(e.effectiveLimit(query)),
		}
		docs, err := e.store.FindDocuments(ctx, collection, subMap(query, "filter"), opts)
		if err != nil {
			return nil, errs.Wrap(errs.KindExecution, err, "find failed").WithCollection(collection)
		}
		return &ExecutionResult{QueryType: queryType, Count: int64(len(docs)), Results: docs}, nil
	case "aggregate":
		pipeline, _ := query["pipeline"].([]any)
		docs, err := e.store.AggregateDocuments(ctx, collection, pipeline, e.cfg.ResultLimit)
		if err != nil {
			return nil, errs.Wrap(errs.KindExecution, err, "aggregation failed").WithCollection(collection)
		}
		return &ExecutionResult{QueryType: queryType, Count: int64(len(docs)), Results: docs}, nil
	case "count":
		count, err := e.store.CountMatching(ctx, collection, subMap(query, "filter"))
		if err != nil {
			return nil, errs.Wrap(errs.KindExecution, err, "count failed").WithCollection(collection)
		}
		return &ExecutionResult{QueryType: queryType, Count: count}, nil
	default:
		return nil, errs.Newf(errs.KindQueryParse, "unsupported query type: %s", queryType)
	}
}

// effectiveLimit resolves the find limit as the smaller of the requested
// limit and the configured cap; absent or non-positive requests take the cap.
func (e *Executor) effectiveLimit(query map[string]any) int {
	requested, ok := asInt(query["limit"])
	if !ok || requested <= 0 || requested > e.cfg.ResultLimit {
		return e.cfg.ResultLimit
	}
	return requested
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
