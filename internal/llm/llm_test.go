// File path: internal/llm/llm_test.go

package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewProviderFallsBackWithoutKey(t *testing.T) {
	provider := NewProvider(Options{})
	if provider.Name() != "local" {
		t.Fatalf("expected local provider without API key, got %q", provider.Name())
	}
}

func TestNewProviderSelectsOpenAIWithKey(t *testing.T) {
	provider := NewProvider(Options{
		APIKey:  "sk-test",
		BaseURL: "http://127.0.0.1:9/v1",
		Model:   "gpt-4o",
		Timeout: time.Second,
	})
	if provider.Name() != "openai" {
		t.Fatalf("expected openai provider with API key, got %q", provider.Name())
	}
}

func TestLocalProviderReturnsDescriptorForNamedCollection(t *testing.T) {
	provider := NewProvider(Options{})
	prompt := strings.Join([]string{
		"Database schema:",
		"Collection: notification_events",
		"Fields:",
		"  - event_tracking_id (string)",
	}, "\n")
	raw, err := provider.Chat(context.Background(), []Message{
		{Role: "system", Content: "You convert questions into queries."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	var descriptor struct {
		Collection string          `json:"collection"`
		QueryType  string          `json:"query_type"`
		Query      json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal([]byte(raw), &descriptor); err != nil {
		t.Fatalf("local provider returned invalid JSON: %v\n%s", err, raw)
	}
	if descriptor.Collection != "notification_events" {
		t.Fatalf("expected collection from prompt, got %q", descriptor.Collection)
	}
	if descriptor.QueryType != "find" {
		t.Fatalf("expected find descriptor, got %q", descriptor.QueryType)
	}
}

func TestLocalProviderRejectsEmptyTranscript(t *testing.T) {
	provider := NewProvider(Options{})
	if _, err := provider.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}
