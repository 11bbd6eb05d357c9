// File path: internal/query/generator.go

// Package query turns a natural-language utterance into a validated,
// executable MongoDB query. The pipeline is a single synchronous chain:
// the prompt builder renders schema structure for the model, the generator
// parses the model's query descriptor, the validator enforces a read-only,
// schema-bound envelope and the executor runs the descriptor against the
// store. Sampled data never enters a prompt; only schema structure does.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/errs"
	"nl2mongo/internal/llm"
	"nl2mongo/internal/schema"
)

// Descriptor is the structured query a model response must reduce to.
type Descriptor struct {
	Collection  string         `json:"collection"`
	QueryType   string         `json:"query_type"`
	Query       map[string]any `json:"query"`
	Explanation string         `json:"explanation"`
}

var queryTypes = map[string]bool{
	"find":      true,
	"aggregate": true,
	"count":     true,
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

var descriptorFields = []string{"collection", "query_type", "query", "explanation"}

// Generator synthesizes query descriptors through the configured model
// provider. One utterance means exactly one model call; malformed responses
// are rejected, never repaired or retried.
type Generator struct {
	provider llm.Provider
	builder  *PromptBuilder
	logger   *slog.Logger
}

func NewGenerator(provider llm.Provider, builder *PromptBuilder) *Generator {
	if builder == nil {
		builder = NewPromptBuilder()
	}
	return &Generator{provider: provider, builder: builder, logger: common.Logger()}
}

// Generate converts one utterance into a descriptor against the given
// snapshot. Transport failures surface as GenerationUnavailable; responses
// that do not reduce to a well-formed descriptor surface as QueryParse.
func (g *Generator) Generate(ctx context.Context, snapshot *schema.Snapshot, userInput string) (*Descriptor, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil, errs.New(errs.KindQueryParse, "no input text provided")
	}
	prompt, err := g.builder.Build(snapshot, userInput)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "build prompt")
	}
	g.logger.Debug("query: requesting descriptor", "provider", g.provider.Name(), "input_len", len(userInput))
	start := time.Now()
	raw, err := g.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: prompt.System},
		{Role: "user", Content: prompt.User},
	})
	telemetry.RecordModelCall(err == nil, time.Since(start))
	if err != nil {
		g.logger.Error("query: model request failed", "provider", g.provider.Name(), "error", err)
		return nil, errs.Wrap(errs.KindGenerationUnavailable, err, "model request failed")
	}
	descriptor, err := parseDescriptor(raw)
	if err != nil {
		g.logger.Warn("query: model response rejected", "error", err)
		return nil, err
	}
	if _, ok := snapshot.Collection(descriptor.Collection); !ok {
		return nil, errs.Newf(errs.KindQueryParse, "invalid collection: %s", descriptor.Collection).
			WithCollection(descriptor.Collection)
	}
	g.logger.Info("query: descriptor generated",
		"collection", descriptor.Collection, "query_type", descriptor.QueryType)
	return descriptor, nil
}

// parseDescriptor extracts and decodes the JSON descriptor from a raw model
// response.
func parseDescriptor(raw string) (*Descriptor, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindQueryParse, err, "no JSON object in model response")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &keys); err != nil {
		return nil, errs.Wrap(errs.KindQueryParse, err, "failed to parse model response as JSON")
	}
	for _, field := range descriptorFields {
		if _, ok := keys[field]; !ok {
			return nil, errs.Newf(errs.KindQueryParse, "missing required field: %s", field)
		}
	}
	var descriptor Descriptor
	if err := json.Unmarshal([]byte(text), &descriptor); err != nil {
		return nil, errs.Wrap(errs.KindQueryParse, err, "malformed query descriptor")
	}
	if descriptor.Collection == "" {
		return nil, errs.New(errs.KindQueryParse, "empty collection in descriptor")
	}
	if !queryTypes[descriptor.QueryType] {
		return nil, errs.Newf(errs.KindQueryParse, "invalid query type: %s", descriptor.QueryType)
	}
	if descriptor.Query == nil {
		descriptor.Query = map[string]any{}
	}
	return &descriptor, nil
}

// extractJSON isolates the descriptor object inside a response that may wrap
// it in a markdown fence or surrounding prose.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, "```") {
		if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
			text = m[1]
		} else {
			var kept []string
			for _, line := range strings.Split(text, "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), "```") {
					continue
				}
				kept = append(kept, line)
			}
			text = strings.TrimSpace(strings.Join(kept, "\n"))
		}
	}
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return "", fmt.Errorf("response contains no JSON object")
		}
		text = text[start : end+1]
	}
	return text, nil
}
