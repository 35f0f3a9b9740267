package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type memPlanStore struct {
	saved map[Stage][]Todo
	saves int
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{saved: map[Stage][]Todo{}}
}

func (s *memPlanStore) Save(stage Stage, todos []Todo) error {
	s.saved[stage] = todos
	s.saves++
	return nil
}

func (s *memPlanStore) Load(stage Stage) ([]Todo, error) {
	return s.saved[stage], nil
}

func TestPlanAssignsSequentialIDs(t *testing.T) {
	plan := NewPlan(StageBuild, nil)

	first, err := plan.Add("Landing page", "Create the landing page", []string{"index.html exists"})
	assert.NoError(t, err)
	second, err := plan.Add("Styles", "", nil)
	assert.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 2, plan.Pending())
	assert.False(t, plan.IsComplete())
}

func TestPlanCompleteStampsOnce(t *testing.T) {
	plan := NewPlan(StageBuild, nil)
	id, err := plan.Add("Landing page", "", nil)
	assert.NoError(t, err)

	assert.NoError(t, plan.Complete(id))
	stamp := plan.Todos()[0].CompletedAt
	assert.NotNil(t, stamp)

	assert.NoError(t, plan.Complete(id))
	assert.Equal(t, stamp, plan.Todos()[0].CompletedAt)
	assert.True(t, plan.IsComplete())
}

func TestPlanCompleteUnknownID(t *testing.T) {
	plan := NewPlan(StageDeploy, nil)
	assert.Error(t, plan.Complete(7))
}

func TestEmptyPlanIsComplete(t *testing.T) {
	plan := NewPlan(StageDocument, nil)
	assert.True(t, plan.IsComplete())
	assert.Equal(t, 0, plan.Len())
}

func TestPlanPersistsOnEveryMutation(t *testing.T) {
	store := newMemPlanStore()
	plan := NewPlan(StageBuild, store)

	id, err := plan.Add("Landing page", "", nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	assert.NoError(t, plan.Complete(id))
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, TodoCompleted, store.saved[StageBuild][0].Status)

	loaded, err := LoadPlan(StageBuild, store)
	assert.NoError(t, err)
	assert.True(t, loaded.IsComplete())
	assert.Equal(t, 1, loaded.Len())
}

func TestTodoStatusRejectsUnknownTokens(t *testing.T) {
	var todo Todo
	err := json.Unmarshal([]byte(`{"id":1,"title":"x","status":"done"}`), &todo)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":1,"title":"x","status":"completed"}`), &todo)
	assert.NoError(t, err)
	assert.Equal(t, TodoCompleted, todo.Status)
}

func TestParseTodoStatus(t *testing.T) {
	status, err := ParseTodoStatus("pending")
	assert.NoError(t, err)
	assert.Equal(t, TodoPending, status)

	_, err = ParseTodoStatus("Pending")
	assert.Error(t, err)
}
