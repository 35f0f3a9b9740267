package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// RequirementsFile persists the negotiated requirements snapshot as
// requirements.json in the output directory.
type RequirementsFile struct {
	path string
}

func NewRequirementsFile(dir string) *RequirementsFile {
	return &RequirementsFile{path: filepath.Join(dir, "requirements.json")}
}

// Save replaces the stored snapshot.
func (r *RequirementsFile) Save(requirements map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(requirements, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

// Load returns the stored snapshot, or nil when none was saved yet.
func (r *RequirementsFile) Load() (map[string]any, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var requirements map[string]any
	if err := json.Unmarshal(data, &requirements); err != nil {
		return nil, err
	}
	return requirements, nil
}
