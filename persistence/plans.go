package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/lexcodex/weblurp/pipeline"
)

// PlanDir persists stage plans as <stage>_plan.json files in one directory,
// next to the generated app, so an interrupted run can be inspected and
// resumed with plain tools.
type PlanDir struct {
	root string
}

// NewPlanDir creates a store rooted at the provided directory.
func NewPlanDir(root string) *PlanDir {
	return &PlanDir{root: root}
}

func (p *PlanDir) pathFor(stage pipeline.Stage) string {
	return filepath.Join(p.root, string(stage)+"_plan.json")
}

// Save writes the full todo list for stage.
func (p *PlanDir) Save(stage pipeline.Stage, todos []pipeline.Todo) error {
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.pathFor(stage), data, 0o644)
}

// Load returns the stored todos for stage, or nil when no plan was saved.
func (p *PlanDir) Load(stage pipeline.Stage) ([]pipeline.Todo, error) {
	data, err := os.ReadFile(p.pathFor(stage))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var todos []pipeline.Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Saved lists the stages that have a plan file on disk, in run order.
func (p *PlanDir) Saved() []pipeline.Stage {
	var stages []pipeline.Stage
	for _, stage := range pipeline.Stages {
		if _, err := os.Stat(p.pathFor(stage)); err == nil {
			stages = append(stages, stage)
		}
	}
	return stages
}
