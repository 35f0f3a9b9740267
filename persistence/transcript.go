package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lexcodex/weblurp/llm"
	"github.com/lexcodex/weblurp/pipeline"
)

// TranscriptLog keeps collaborator exchanges in one JSON file per stage.
// It implements llm.TranscriptSink for the recording side and
// pipeline.StageMarker so the active file follows the running stage.
type TranscriptLog struct {
	dir string
	mu  sync.RWMutex
	key string
}

// NewTranscriptLog builds a log stored as transcript*.json files under dir.
// Exchanges recorded before any stage begins land in transcript.json.
func NewTranscriptLog(dir string) (*TranscriptLog, error) {
	if dir == "" {
		return nil, errors.New("transcript dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &TranscriptLog{dir: dir}, nil
}

func (t *TranscriptLog) pathFor(key string) string {
	if key == "" {
		return filepath.Join(t.dir, "transcript.json")
	}
	return filepath.Join(t.dir, fmt.Sprintf("transcript_%s.json", key))
}

// Begin switches recording to the transcript file of stage.
func (t *TranscriptLog) Begin(stage pipeline.Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.key = string(stage)
}

// Record appends one exchange to the active transcript.
func (t *TranscriptLog) Record(ex llm.Exchange) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	path := t.pathFor(t.key)
	existing, err := t.read(path)
	if err != nil {
		return err
	}
	existing = append(existing, ex)
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// History returns the recorded exchanges for one stage key, in order. An
// empty key reads the pre-stage transcript.
func (t *TranscriptLog) History(key string) ([]llm.Exchange, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(t.pathFor(key))
}

// Keys lists the stage keys with a transcript on disk, in run order. The
// empty key appears first when the pre-stage transcript exists.
func (t *TranscriptLog) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var keys []string
	if _, err := os.Stat(t.pathFor("")); err == nil {
		keys = append(keys, "")
	}
	for _, stage := range pipeline.Stages {
		if _, err := os.Stat(t.pathFor(string(stage))); err == nil {
			keys = append(keys, string(stage))
		}
	}
	return keys
}

// Clear removes every transcript file.
func (t *TranscriptLog) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	matches, err := filepath.Glob(filepath.Join(t.dir, "transcript*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (t *TranscriptLog) read(path string) ([]llm.Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var exchanges []llm.Exchange
	if err := json.Unmarshal(data, &exchanges); err != nil {
		return nil, err
	}
	return exchanges, nil
}
