// File path: internal/common/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestStartSpanTracksDuration(t *testing.T) {
	ctx, finish := StartSpan(context.Background(), "test.span")
	time.Sleep(5 * time.Millisecond)
	if d := SpanDuration(ctx); d <= 0 {
		t.Fatalf("expected positive span duration, got %v", d)
	}
	finish("outcome", "ok")
}

func TestSpanDurationWithoutSpanIsZero(t *testing.T) {
	if d := SpanDuration(context.Background()); d != 0 {
		t.Fatalf("expected zero duration outside a span, got %v", d)
	}
}

func TestStartSpanDoesNotMutateParent(t *testing.T) {
	parent := context.Background()
	if _, _ = StartSpan(parent, "test.child"); SpanDuration(parent) != 0 {
		t.Fatal("parent context must not carry the child span")
	}
}
