// File path: internal/query/generator_test.go

package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nl2mongo/internal/errs"
	"nl2mongo/internal/llm"
)

type stubProvider struct {
	response string
	err      error
	calls    int
	messages []llm.Message
}

func (s *stubProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubProvider) Name() string { return "stub" }

const countDescriptor = `{
  "collection": "customers",
  "query_type": "count",
  "query": {"filter": {"age": {"$gt": 30}}},
  "explanation": "Counts customers older than 30."
}`

func TestGenerateParsesCleanResponse(t *testing.T) {
	provider := &stubProvider{response: countDescriptor}
	g := NewGenerator(provider, NewPromptBuilder())
	descriptor, err := g.Generate(context.Background(), testSnapshot(), "how many customers are older than 30")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if descriptor.Collection != "customers" || descriptor.QueryType != "count" {
		t.Fatalf("unexpected descriptor: %+v", descriptor)
	}
	filter, ok := descriptor.Query["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter not decoded: %+v", descriptor.Query)
	}
	if _, ok := filter["age"]; !ok {
		t.Fatalf("age predicate missing: %+v", filter)
	}
	if provider.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", provider.calls)
	}
}

func TestGenerateSendsSystemAndUserMessages(t *testing.T) {
	provider := &stubProvider{response: countDescriptor}
	g := NewGenerator(provider, NewPromptBuilder())
	if _, err := g.Generate(context.Background(), testSnapshot(), "count old customers"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(provider.messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(provider.messages))
	}
	if provider.messages[0].Role != "system" || provider.messages[1].Role != "user" {
		t.Fatalf("unexpected roles: %s, %s", provider.messages[0].Role, provider.messages[1].Role)
	}
	user := provider.messages[1].Content
	if !strings.Contains(user, "count old customers") {
		t.Fatal("utterance missing from user prompt")
	}
	if !strings.Contains(user, "Collection: customers") {
		t.Fatal("schema context missing from user prompt")
	}
}

func TestGenerateStripsMarkdownFence(t *testing.T) {
	fenced := "Here is the query:\n```json\n" + countDescriptor + "\n```\nLet me know if you need more."
	provider := &stubProvider{response: fenced}
	g := NewGenerator(provider, NewPromptBuilder())
	descriptor, err := g.Generate(context.Background(), testSnapshot(), "count them")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if descriptor.QueryType != "count" {
		t.Fatalf("unexpected descriptor: %+v", descriptor)
	}
}

func TestGenerateExtractsEmbeddedObject(t *testing.T) {
	wrapped := "Sure thing. " + countDescriptor + " That should do it."
	provider := &stubProvider{response: wrapped}
	g := NewGenerator(provider, NewPromptBuilder())
	if _, err := g.Generate(context.Background(), testSnapshot(), "count them"); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateRejectsMissingField(t *testing.T) {
	provider := &stubProvider{response: `{"collection": "customers", "query_type": "count", "query": {}}`}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "count them")
	if !errs.IsKind(err, errs.KindQueryParse) {
		t.Fatalf("expected query_parse, got %v", err)
	}
	if !strings.Contains(err.Error(), "explanation") {
		t.Fatalf("expected missing-field detail, got %v", err)
	}
}

func TestGenerateRejectsInvalidQueryType(t *testing.T) {
	provider := &stubProvider{response: `{"collection": "customers", "query_type": "delete", "query": {}, "explanation": "x"}`}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "drop everything")
	if !errs.IsKind(err, errs.KindQueryParse) {
		t.Fatalf("expected query_parse, got %v", err)
	}
}

func TestGenerateRejectsUnknownCollection(t *testing.T) {
	provider := &stubProvider{response: `{"collection": "ghosts", "query_type": "find", "query": {}, "explanation": "x"}`}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "find ghosts")
	if !errs.IsKind(err, errs.KindQueryParse) {
		t.Fatalf("expected query_parse, got %v", err)
	}
	if errs.CollectionOf(err) != "ghosts" {
		t.Fatalf("expected collection scope, got %q", errs.CollectionOf(err))
	}
}

func TestGenerateRejectsNonJSONResponse(t *testing.T) {
	provider := &stubProvider{response: "I cannot help with that."}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "count them")
	if !errs.IsKind(err, errs.KindQueryParse) {
		t.Fatalf("expected query_parse, got %v", err)
	}
}

func TestGenerateWrapsTransportFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("dial tcp: connection refused")}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "count them")
	if !errs.IsKind(err, errs.KindGenerationUnavailable) {
		t.Fatalf("expected generation_unavailable, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected no retry, got %d calls", provider.calls)
	}
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	provider := &stubProvider{response: countDescriptor}
	g := NewGenerator(provider, NewPromptBuilder())
	_, err := g.Generate(context.Background(), testSnapshot(), "   ")
	if !errs.IsKind(err, errs.KindQueryParse) {
		t.Fatalf("expected query_parse, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatal("model should not be called for empty input")
	}
}
