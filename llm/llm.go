// Package llm provides the collaborator clients the pipeline talks to: an
// Anthropic Messages client, an OpenAI chat completions client, and an
// instrumented wrapper that records every exchange. Both providers speak
// plain JSON over HTTP with a shared timeout; streaming and tool calling are
// out of scope for generation runs.
package llm

import (
	"strings"
	"time"

	"github.com/lexcodex/weblurp/pipeline"
)

const (
	// maxReplyTokens caps every completion request.
	maxReplyTokens = 4096
	// requestTimeout bounds one completion round trip.
	requestTimeout = 120 * time.Second
)

// New builds the collaborator for provider. Anything that is not "openai"
// falls back to anthropic, so a typoed provider still produces a working
// client instead of a dead run.
func New(provider, apiKey, model string) pipeline.Collaborator {
	if strings.EqualFold(strings.TrimSpace(provider), "openai") {
		return NewOpenAI(apiKey, model)
	}
	return NewAnthropic(apiKey, model)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
