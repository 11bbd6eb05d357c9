// File path: internal/query/prompt.go

package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/prompts"

	"nl2mongo/internal/schema"
)

const systemPrompt = `You are a MongoDB query expert. Convert the user's plain English request into a valid MongoDB query against the provided collection schemas.

Respond with a single JSON object and nothing else: no prose, no markdown fences. The object must contain exactly these keys:
- "collection": the target collection name, chosen from the provided schemas
- "query_type": one of "find", "aggregate" or "count"
- "query": the query body
- "explanation": one sentence describing what the query does

Query bodies by type:
- find: {"filter": {...}, "projection": {...}, "sort": {...}, "limit": N} where projection, sort and limit are optional
- aggregate: {"pipeline": [ ... ]}
- count: {"filter": {...}}

Use only collections and fields that appear in the schemas. Dates are stored as ISO 8601 strings, so compare them as strings with operators such as $gte and $lt against the supplied time references. Prefer indexed fields in filters when they answer the request. Never use $where, $function, $out or $merge.`

const userPromptTemplate = `AVAILABLE SCHEMAS:
{{.schema_context}}

TIME REFERENCE (ISO 8601):
- current time: {{.current_time}}
- 7 days ago: {{.seven_days_ago}}
- 10 days ago: {{.ten_days_ago}}
- 30 days ago: {{.thirty_days_ago}}

USER REQUEST:
{{.user_input}}

Generate the MongoDB query now:`

var promptVariables = []string{
	"schema_context",
	"current_time",
	"seven_days_ago",
	"ten_days_ago",
	"thirty_days_ago",
	"user_input",
}

// Prompt is a rendered system and user message pair.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder renders the model payload for one utterance. Only schema
// structure reaches the payload, never sampled data.
type PromptBuilder struct {
	template prompts.PromptTemplate
	clock    func() time.Time
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		template: prompts.NewPromptTemplate(userPromptTemplate, promptVariables),
		clock:    time.Now,
	}
}

// Build renders the prompt against the given snapshot, resolving the
// relative time anchors at call time.
func (b *PromptBuilder) Build(snapshot *schema.Snapshot, userInput string) (Prompt, error) {
	now := b.clock()
	user, err := b.template.Format(map[string]any{
		"schema_context":  SchemaContext(snapshot),
		"current_time":    now.Format(time.RFC3339),
		"seven_days_ago":  now.AddDate(0, 0, -7).Format(time.RFC3339),
		"ten_days_ago":    now.AddDate(0, 0, -10).Format(time.RFC3339),
		"thirty_days_ago": now.AddDate(0, 0, -30).Format(time.RFC3339),
		"user_input":      userInput,
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("query: format prompt: %w", err)
	}
	return Prompt{System: systemPrompt, User: user}, nil
}

// SchemaContext renders the snapshot as the schema summary handed to the
// model: collection and field structure, index markers and detected
// relationships. Rendering is deterministic for a given snapshot.
func SchemaContext(snapshot *schema.Snapshot) string {
	if snapshot == nil || len(snapshot.Collections) == 0 {
		return "No collection schemas are available."
	}
	separator := strings.Repeat("=", 60)
	names := snapshot.CollectionNames()

	var b strings.Builder
	b.WriteString("Available Collections:\n\n")
	for _, name := range names {
		b.WriteString(fmt.Sprintf("- %s: %s\n", name, snapshot.Collections[name].Description))
	}
	for _, name := range names {
		col := snapshot.Collections[name]
		b.WriteString("\n" + separator + "\n\n")
		b.WriteString(fmt.Sprintf("Collection: %s\n", name))
		b.WriteString(fmt.Sprintf("Description: %s\n\n", col.Description))
		b.WriteString("Fields:\n")
		for _, field := range col.FieldNames() {
			spec := col.Fields[field]
			line := fmt.Sprintf("  - %s (%s)", field, spec.Type)
			if spec.Description != "" {
				line += ": " + spec.Description
			}
			b.WriteString(line + "\n")
		}
		if len(col.Indexes) > 0 {
			b.WriteString("\nIndexes:\n")
			for _, combo := range col.Indexes {
				line := "  - " + strings.Join(combo, ", ")
				if len(combo) == 1 {
					if spec, ok := col.Fields[combo[0]]; ok && spec.Unique {
						line += " (unique)"
					}
				}
				b.WriteString(line + "\n")
			}
		}
	}
	if len(snapshot.Relationships) > 0 {
		b.WriteString("\n" + separator + "\n\n")
		b.WriteString("Relationships:\n")
		for _, rel := range snapshot.Relationships {
			b.WriteString(fmt.Sprintf("  - %s.%s -> %s.%s (%s, confidence %.2f)\n",
				rel.FromCollection, rel.FromField, rel.ToCollection, rel.ToField, rel.Kind, rel.Confidence))
		}
	}
	return b.String()
}
