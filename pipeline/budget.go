package pipeline

import "fmt"

// BudgetLevel bounds one code-summary snapshot: how many files it may cover,
// how many lines each file contributes, and the total character budget for
// the serialized summaries.
type BudgetLevel struct {
	MaxFiles        int
	MaxLinesPerFile int
	CharBudget      int
}

// DefaultLadder is the progressive budget sequence the repair loop walks
// when a scenario reply fails to parse: each rung shrinks the snapshot so
// the next attempt leaves the collaborator more room to answer.
func DefaultLadder() []BudgetLevel {
	return []BudgetLevel{
		{MaxFiles: 30, MaxLinesPerFile: 120, CharBudget: 200000},
		{MaxFiles: 20, MaxLinesPerFile: 80, CharBudget: 120000},
		{MaxFiles: 12, MaxLinesPerFile: 60, CharBudget: 80000},
		{MaxFiles: 8, MaxLinesPerFile: 50, CharBudget: 60000},
		{MaxFiles: 5, MaxLinesPerFile: 40, CharBudget: 40000},
	}
}

// DefaultMaxRepairRounds caps evaluate-fix cycles per test stage.
const DefaultMaxRepairRounds = 3

// ValidateLadder enforces that every rung is positive and that each field
// strictly shrinks from rung to rung. A ladder that grows anywhere would
// retry a failing prompt with an even bigger payload.
func ValidateLadder(levels []BudgetLevel) error {
	if len(levels) == 0 {
		return fmt.Errorf("budget ladder is empty")
	}
	for i, l := range levels {
		if l.MaxFiles <= 0 || l.MaxLinesPerFile <= 0 || l.CharBudget <= 0 {
			return fmt.Errorf("budget rung %d has a non-positive field", i)
		}
		if i == 0 {
			continue
		}
		prev := levels[i-1]
		if l.MaxFiles >= prev.MaxFiles || l.MaxLinesPerFile >= prev.MaxLinesPerFile || l.CharBudget >= prev.CharBudget {
			return fmt.Errorf("budget rung %d does not shrink from rung %d", i, i-1)
		}
	}
	return nil
}
