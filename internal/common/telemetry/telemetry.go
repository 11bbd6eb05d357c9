// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"nl2mongo/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

type MemoryLimitError struct {
	Component string
	Usage     uint64
	Limit     uint64
}

func (e MemoryLimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded for %s: %d > %d", e.Component, e.Usage, e.Limit)
}

var (
	initOnce sync.Once

	schemaGenerationsTotal *expvar.Int
	schemaFieldsTotal      *expvar.Int
	schemaGenLatencyMS     *expvar.Int

	modelCallsTotal    *expvar.Int
	modelCallFailures  *expvar.Int
	modelCallLatencyMS *expvar.Int

	validationTotal   *expvar.Int
	validationRejects *expvar.Map

	executionTotal     *expvar.Map
	executionLatencyMS *expvar.Map

	memoryLimitBytes uint64
	memoryLimitVar   *expvar.Int
	memoryUsageVar   *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		schemaGenerationsTotal = expvar.NewInt("nl2mongo_schema_generations_total")
		schemaFieldsTotal = expvar.NewInt("nl2mongo_schema_fields_total")
		schemaGenLatencyMS = expvar.NewInt("nl2mongo_schema_generation_latency_ms")

		modelCallsTotal = expvar.NewInt("nl2mongo_model_calls_total")
		modelCallFailures = expvar.NewInt("nl2mongo_model_call_failures")
		modelCallLatencyMS = expvar.NewInt("nl2mongo_model_call_latency_ms")

		validationTotal = expvar.NewInt("nl2mongo_validations_total")
		validationRejects = expvar.NewMap("nl2mongo_validation_rejects")

		executionTotal = expvar.NewMap("nl2mongo_executions_total")
		executionLatencyMS = expvar.NewMap("nl2mongo_execution_latency_ms")

		memoryLimitVar = expvar.NewInt("nl2mongo_memory_limit_bytes")
		memoryUsageVar = expvar.NewInt("nl2mongo_memory_usage_bytes")

		memoryLimitBytes = loadMemoryLimit()
		memoryLimitVar.Set(int64(memoryLimitBytes))
	})
}

func loadMemoryLimit() uint64 {
	limit := strings.TrimSpace(os.Getenv("NL2MONGO_MEMORY_LIMIT_BYTES"))
	if limit != "" {
		if value, err := strconv.ParseUint(limit, 10, 64); err == nil {
			return value
		}
	}
	if limitMB := strings.TrimSpace(os.Getenv("NL2MONGO_MEMORY_LIMIT_MB")); limitMB != "" {
		if value, err := strconv.ParseUint(limitMB, 10, 64); err == nil {
			return value * 1024 * 1024
		}
	}
	return 0
}

func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordSchemaGeneration tracks one analyzed collection and the number of
// fields its schema ended up with.
func RecordSchemaGeneration(fields int, duration time.Duration) {
	ensureInit()
	schemaGenerationsTotal.Add(1)
	if fields > 0 {
		schemaFieldsTotal.Add(int64(fields))
	}
	if duration > 0 {
		schemaGenLatencyMS.Add(duration.Milliseconds())
	}
}

func RecordModelCall(ok bool, duration time.Duration) {
	ensureInit()
	modelCallsTotal.Add(1)
	if !ok {
		modelCallFailures.Add(1)
	}
	if duration > 0 {
		modelCallLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordValidation tracks a validator verdict. An empty rule means the
// descriptor was accepted; otherwise the violated rule keys the reject map.
func RecordValidation(rule string) {
	ensureInit()
	validationTotal.Add(1)
	rule = strings.TrimSpace(strings.ToLower(rule))
	if rule != "" {
		validationRejects.Add(rule, 1)
	}
}

func RecordExecution(queryType string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(queryType))
	if key == "" {
		key = "unknown"
	}
	executionTotal.Add(key, 1)
	if duration > 0 {
		executionLatencyMS.Add(key, duration.Milliseconds())
	}
}

// CheckMemoryBudget enforces the optional NL2MONGO_MEMORY_LIMIT_* guard on
// memory-heavy paths such as multi-collection sampling.
func CheckMemoryBudget(component string) error {
	ensureInit()
	if memoryLimitBytes == 0 {
		updateMemoryUsage()
		return nil
	}
	usage := updateMemoryUsage()
	if usage > memoryLimitBytes {
		err := MemoryLimitError{Component: component, Usage: usage, Limit: memoryLimitBytes}
		common.Logger().Warn("telemetry: memory guard tripped", "component", component, "usage", usage, "limit", memoryLimitBytes)
		return err
	}
	return nil
}

func updateMemoryUsage() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	usage := stats.Alloc
	memoryUsageVar.Set(int64(usage))
	return usage
}

func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
