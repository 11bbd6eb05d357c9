// File path: internal/query/prompt_test.go

package query

import (
	"strings"
	"testing"
	"time"
)

func TestSchemaContextRendersStructureOnly(t *testing.T) {
	context := SchemaContext(testSnapshot())
	for _, want := range []string{
		"Available Collections:",
		"- customers: Collection containing customers data",
		"Collection: customers",
		"  - age (integer)",
		"  - email (string)",
		"Indexes:",
		"  - email (unique)",
		"Relationships:",
		"  - orders.customer_id -> customers._id (reference, confidence 0.94)",
	} {
		if !strings.Contains(context, want) {
			t.Fatalf("schema context missing %q:\n%s", want, context)
		}
	}
}

func TestSchemaContextDeterministic(t *testing.T) {
	snapshot := testSnapshot()
	first := SchemaContext(snapshot)
	for i := 0; i < 5; i++ {
		if again := SchemaContext(snapshot); again != first {
			t.Fatal("schema context rendering is not deterministic")
		}
	}
}

func TestSchemaContextEmptySnapshot(t *testing.T) {
	if got := SchemaContext(nil); !strings.Contains(got, "No collection schemas") {
		t.Fatalf("unexpected empty-snapshot context: %q", got)
	}
}

func TestBuildResolvesTimeAnchors(t *testing.T) {
	builder := NewPromptBuilder()
	builder.clock = func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	prompt, err := builder.Build(testSnapshot(), "how many customers are older than 30")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{
		"current time: 2025-03-15T12:00:00Z",
		"7 days ago: 2025-03-08T12:00:00Z",
		"10 days ago: 2025-03-05T12:00:00Z",
		"30 days ago: 2025-02-13T12:00:00Z",
		"how many customers are older than 30",
		"Collection: customers",
	} {
		if !strings.Contains(prompt.User, want) {
			t.Fatalf("user prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt.System, `"collection"`) || !strings.Contains(prompt.System, `"query_type"`) {
		t.Fatal("system prompt does not spell out the descriptor contract")
	}
	if strings.Contains(prompt.User, "{{.") {
		t.Fatal("unrendered template variable left in user prompt")
	}
}
