package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLadderIsValid(t *testing.T) {
	assert.NoError(t, ValidateLadder(DefaultLadder()))
	assert.Len(t, DefaultLadder(), 5)
}

func TestValidateLadderRejectsGrowth(t *testing.T) {
	levels := []BudgetLevel{
		{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: 1000},
		{MaxFiles: 12, MaxLinesPerFile: 40, CharBudget: 800},
	}
	assert.Error(t, ValidateLadder(levels))
}

func TestValidateLadderRejectsPlateau(t *testing.T) {
	levels := []BudgetLevel{
		{MaxFiles: 10, MaxLinesPerFile: 50, CharBudget: 1000},
		{MaxFiles: 10, MaxLinesPerFile: 40, CharBudget: 800},
	}
	assert.Error(t, ValidateLadder(levels))
}

func TestValidateLadderRejectsEmptyAndNonPositive(t *testing.T) {
	assert.Error(t, ValidateLadder(nil))
	assert.Error(t, ValidateLadder([]BudgetLevel{{MaxFiles: 0, MaxLinesPerFile: 1, CharBudget: 1}}))
}

func TestParseStage(t *testing.T) {
	stage, err := ParseStage("deploy")
	assert.NoError(t, err)
	assert.Equal(t, StageDeploy, stage)

	_, err = ParseStage("ship")
	assert.Error(t, err)
}

func TestConversationAppendAndReset(t *testing.T) {
	conv := NewConversation()
	conv.Append(RoleUser, "hello")
	conv.Append(RoleAssistant, "hi")

	turns := conv.Turns()
	assert.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)

	turns[0].Content = "mutated"
	assert.Equal(t, "hello", conv.Turns()[0].Content)

	conv.Reset()
	assert.Equal(t, 0, conv.Len())
}
