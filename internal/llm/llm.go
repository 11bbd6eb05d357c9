// File path: internal/llm/llm.go

// Package llm abstracts the natural-language model behind a small Chat
// interface so the query pipeline never depends on a concrete vendor and
// tests can substitute a deterministic stub.
package llm

import (
	"strings"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// Options configure provider selection. An empty APIKey selects the local
// deterministic provider so the service stays usable offline.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewProvider picks the OpenAI-compatible provider when an API key is
// configured and the local stub otherwise.
func NewProvider(opts Options) Provider {
	logger := common.Logger()
	if strings.TrimSpace(opts.APIKey) != "" {
		return providers.NewOpenAIProvider(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout)
	}
	logger.Warn("llm: no API key configured; falling back to local provider")
	return providers.NewLocalProvider()
}
