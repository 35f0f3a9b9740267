package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScenarioCase is a single predicted test scenario.
type ScenarioCase struct {
	Name       string   `json:"name"`
	Steps      []string `json:"steps"`
	Expected   string   `json:"expected"`
	Prediction string   `json:"prediction"`
	Reason     string   `json:"reason"`
}

// ScenarioFeature groups the scenarios predicted for one app feature.
type ScenarioFeature struct {
	Name      string         `json:"name"`
	Scenarios []ScenarioCase `json:"scenarios"`
}

// ScenarioTally is the collaborator's own pass/fail count. It is carried for
// logging but never trusted; Tally recomputes from the predictions.
type ScenarioTally struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// ScenarioReport is the structured reply of one repair-loop evaluation.
type ScenarioReport struct {
	Features []ScenarioFeature `json:"features"`
	Summary  ScenarioTally     `json:"summary"`
}

// ParseScenarioReport pulls the widest JSON object out of a raw reply and
// decodes it. Any reply without a decodable object is a miss, which the
// repair loop answers by retrying at a smaller budget.
func ParseScenarioReport(raw string) (*ScenarioReport, error) {
	snippet := extractObject(raw)
	if snippet == "" {
		return nil, fmt.Errorf("reply carries no JSON object")
	}
	var report ScenarioReport
	if err := json.Unmarshal([]byte(snippet), &report); err != nil {
		return nil, fmt.Errorf("decode scenario report: %w", err)
	}
	return &report, nil
}

// Tally counts predictions case-insensitively. Anything that is not exactly
// "pass" or "fail" after lowercasing counts as neither.
func (r *ScenarioReport) Tally() (passed, failed int) {
	for _, f := range r.Features {
		for _, sc := range f.Scenarios {
			switch strings.ToLower(sc.Prediction) {
			case "pass":
				passed++
			case "fail":
				failed++
			}
		}
	}
	return passed, failed
}

// Converged reports whether the evaluation predicts no failures while
// predicting at least one pass. A report with no recognizable predictions at
// all does not converge.
func (r *ScenarioReport) Converged() bool {
	passed, failed := r.Tally()
	return failed == 0 && passed > 0
}
