package llm

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lexcodex/weblurp/pipeline"
)

// Exchange is one prompt/reply pair captured off the wire.
type Exchange struct {
	Model   string        `json:"model"`
	System  string        `json:"system"`
	Prompt  string        `json:"prompt"`
	Reply   string        `json:"reply"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
	At      time.Time     `json:"at"`
}

// TranscriptSink receives exchanges as they happen. The persistence package
// provides a file-backed implementation.
type TranscriptSink interface {
	Record(ex Exchange) error
}

// InstrumentedCollaborator wraps a collaborator and records every exchange to
// a sink; with Debug set it also mirrors clipped prompts and replies to the
// process log. A failing sink never fails the completion.
type InstrumentedCollaborator struct {
	Inner pipeline.Collaborator
	Sink  TranscriptSink
	Model string
	Debug bool
}

func NewInstrumented(inner pipeline.Collaborator, sink TranscriptSink, model string, debug bool) *InstrumentedCollaborator {
	return &InstrumentedCollaborator{Inner: inner, Sink: sink, Model: model, Debug: debug}
}

func (m *InstrumentedCollaborator) Complete(ctx context.Context, system string, turns []pipeline.Turn) (string, error) {
	prompt := lastUserTurn(turns)
	if m.Debug {
		log.Printf("[llm] prompt (%d turns): %s", len(turns), clip(prompt, 1024))
	}
	start := time.Now()
	reply, err := m.Inner.Complete(ctx, system, turns)
	elapsed := time.Since(start)
	if m.Debug {
		log.Printf("[llm] reply after %s: %s", elapsed.Round(time.Millisecond), clip(reply, 1024))
	}
	if m.Sink != nil {
		ex := Exchange{
			Model:   m.Model,
			System:  system,
			Prompt:  prompt,
			Reply:   reply,
			Elapsed: elapsed,
			At:      start.UTC(),
		}
		if err != nil {
			ex.Error = err.Error()
		}
		if recErr := m.Sink.Record(ex); recErr != nil {
			log.Printf("[llm] transcript record failed: %v", recErr)
		}
	}
	return reply, err
}

func lastUserTurn(turns []pipeline.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == pipeline.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
