// File path: internal/llm/providers/local.go

package providers

import (
	"context"
	"fmt"
	"strings"
)

// Message is a single chat turn handed to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates a model response for a chat transcript.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// LocalProvider is a deterministic offline fallback. It answers every prompt
// with a valid query descriptor targeting the first collection named in the
// prompt, which keeps the conversion pipeline exercisable without network
// access or credentials.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	collection := firstCollectionName(messages)
	descriptor := fmt.Sprintf(
		`{"collection": %q, "query_type": "find", "query": {"filter": {}}, "explanation": "Local fallback: list documents from %s."}`,
		collection, collection,
	)
	return descriptor, nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

// firstCollectionName scans the transcript for the "Collection: <name>"
// lines the prompt builder emits when rendering schema context.
func firstCollectionName(messages []Message) string {
	for _, msg := range messages {
		for _, line := range strings.Split(msg.Content, "\n") {
			line = strings.TrimSpace(line)
			if name, ok := strings.CutPrefix(line, "Collection: "); ok {
				if name = strings.TrimSpace(name); name != "" {
					return name
				}
			}
		}
	}
	return "unknown"
}
