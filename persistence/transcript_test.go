package persistence

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lexcodex/weblurp/llm"
	"github.com/lexcodex/weblurp/pipeline"
)

func TestTranscriptLogRecordAndHistory(t *testing.T) {
	log, err := NewTranscriptLog(t.TempDir())
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	first := llm.Exchange{Model: "claude-sonnet-4-5-20250929", System: "scope", Prompt: "one page app",
		Reply: "requirements", Elapsed: 40 * time.Millisecond, At: time.Now().UTC()}
	second := llm.Exchange{Model: "claude-sonnet-4-5-20250929", Prompt: "again", Error: "boom"}
	if err := log.Record(first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := log.Record(second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	history, err := log.History("")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(history))
	}
	if history[0].Prompt != "one page app" || history[0].Reply != "requirements" {
		t.Fatalf("first exchange mangled: %+v", history[0])
	}
	if history[1].Error != "boom" {
		t.Fatalf("failed exchange should keep its error: %+v", history[1])
	}
}

// TestTranscriptLogFollowsStages checks Begin routes each stage's exchanges
// into its own file, the way a pipeline run drives the log.
func TestTranscriptLogFollowsStages(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTranscriptLog(dir)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	log.Begin(pipeline.StageScope)
	if err := log.Record(llm.Exchange{Prompt: "scope it"}); err != nil {
		t.Fatalf("record scope: %v", err)
	}
	log.Begin(pipeline.StageBuild)
	if err := log.Record(llm.Exchange{Prompt: "plan it"}); err != nil {
		t.Fatalf("record build plan: %v", err)
	}
	if err := log.Record(llm.Exchange{Prompt: "build it"}); err != nil {
		t.Fatalf("record build task: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "transcript_scope.json")); err != nil {
		t.Fatalf("expected transcript_scope.json: %v", err)
	}
	scope, err := log.History("scope")
	if err != nil || len(scope) != 1 {
		t.Fatalf("expected 1 scope exchange, got %d (%v)", len(scope), err)
	}
	build, err := log.History("build")
	if err != nil || len(build) != 2 {
		t.Fatalf("expected 2 build exchanges, got %d (%v)", len(build), err)
	}
	if keys := log.Keys(); len(keys) != 2 || keys[0] != "scope" || keys[1] != "build" {
		t.Fatalf("expected [scope build], got %v", keys)
	}
}

func TestTranscriptLogEmptyHistory(t *testing.T) {
	log, err := NewTranscriptLog(t.TempDir())
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	history, err := log.History("")
	if err != nil {
		t.Fatalf("empty history should not error: %v", err)
	}
	if history != nil {
		t.Fatalf("expected nil history, got %+v", history)
	}
	if keys := log.Keys(); keys != nil {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestTranscriptLogClear(t *testing.T) {
	log, err := NewTranscriptLog(t.TempDir())
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	if err := log.Record(llm.Exchange{Prompt: "hi"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	log.Begin(pipeline.StageTest)
	if err := log.Record(llm.Exchange{Prompt: "check"}); err != nil {
		t.Fatalf("record keyed: %v", err)
	}
	if err := log.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if keys := log.Keys(); keys != nil {
		t.Fatalf("expected clear to remove every transcript, got %v", keys)
	}
	if err := log.Clear(); err != nil {
		t.Fatalf("clearing an already cleared log should be fine: %v", err)
	}
}

func TestNewTranscriptLogRequiresDir(t *testing.T) {
	if _, err := NewTranscriptLog(""); err == nil {
		t.Fatalf("expected an error for an empty dir")
	}
}

// TestTranscriptLogConcurrentRecords checks the lock actually serializes the
// read-modify-write, since exchanges can finish close together.
func TestTranscriptLogConcurrentRecords(t *testing.T) {
	log, err := NewTranscriptLog(t.TempDir())
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := log.Record(llm.Exchange{Prompt: "turn"}); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()
	history, err := log.History("")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 8 {
		t.Fatalf("expected 8 exchanges, got %d", len(history))
	}
}
