package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// TodoStatus is the lifecycle state of a plan item. It only moves forward:
// pending to completed, never back.
type TodoStatus string

const (
	TodoPending   TodoStatus = "pending"
	TodoCompleted TodoStatus = "completed"
)

// ParseTodoStatus rejects any token that is not a known status, so a plan
// file edited by hand cannot smuggle in a third state.
func ParseTodoStatus(s string) (TodoStatus, error) {
	switch TodoStatus(s) {
	case TodoPending, TodoCompleted:
		return TodoStatus(s), nil
	}
	return "", fmt.Errorf("unknown todo status %q", s)
}

func (s *TodoStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTodoStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Todo is one tracked work item inside a stage plan.
type Todo struct {
	ID                 int        `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AcceptanceCriteria []string   `json:"acceptance_criteria"`
	Status             TodoStatus `json:"status"`
	CompletedAt        *string    `json:"completed_at"`
}

// PlanStore persists the full todo list of a stage. Implementations live in
// the persistence package; a nil store keeps the plan in memory only.
type PlanStore interface {
	Save(stage Stage, todos []Todo) error
	Load(stage Stage) ([]Todo, error)
}

const completedAtLayout = "2006-01-02 15:04:05"

// Plan tracks the todos of a single stage and writes the whole list back to
// its store on every mutation, so a crash never loses more than the change
// in flight.
type Plan struct {
	stage Stage
	todos []Todo
	store PlanStore
}

func NewPlan(stage Stage, store PlanStore) *Plan {
	return &Plan{stage: stage, store: store}
}

// LoadPlan restores a previously saved plan for stage.
func LoadPlan(stage Stage, store PlanStore) (*Plan, error) {
	todos, err := store.Load(stage)
	if err != nil {
		return nil, err
	}
	return &Plan{stage: stage, todos: todos, store: store}, nil
}

// Add appends a pending todo and returns its id. IDs are assigned
// sequentially from 1 in insertion order.
func (p *Plan) Add(title, description string, criteria []string) (int, error) {
	todo := Todo{
		ID:                 len(p.todos) + 1,
		Title:              title,
		Description:        description,
		AcceptanceCriteria: criteria,
		Status:             TodoPending,
	}
	p.todos = append(p.todos, todo)
	return todo.ID, p.persist()
}

// Complete marks id as completed. The first completion stamps completed_at;
// repeat calls are no-ops so the original timestamp survives.
func (p *Plan) Complete(id int) error {
	for i := range p.todos {
		if p.todos[i].ID != id {
			continue
		}
		if p.todos[i].Status == TodoCompleted {
			return nil
		}
		stamp := time.Now().Format(completedAtLayout)
		p.todos[i].Status = TodoCompleted
		p.todos[i].CompletedAt = &stamp
		return p.persist()
	}
	return fmt.Errorf("no todo with id %d in %s plan", id, p.stage)
}

// Todos returns a copy of the current list in id order.
func (p *Plan) Todos() []Todo {
	out := make([]Todo, len(p.todos))
	copy(out, p.todos)
	return out
}

func (p *Plan) Pending() int {
	n := 0
	for _, t := range p.todos {
		if t.Status == TodoPending {
			n++
		}
	}
	return n
}

// IsComplete reports whether no todo is pending. An empty plan counts as
// complete.
func (p *Plan) IsComplete() bool { return p.Pending() == 0 }

func (p *Plan) Len() int { return len(p.todos) }

func (p *Plan) Stage() Stage { return p.stage }

func (p *Plan) persist() error {
	if p.store == nil {
		return nil
	}
	return p.store.Save(p.stage, p.Todos())
}
