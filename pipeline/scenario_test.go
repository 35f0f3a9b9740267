package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenarioReportFromProseWrappedReply(t *testing.T) {
	raw := `Here is my analysis of the app:

{"features": [{"name": "Search", "scenarios": [
  {"name": "basic query", "steps": ["type", "submit"], "expected": "results shown", "prediction": "PASS", "reason": "wired"},
  {"name": "empty query", "steps": ["submit"], "expected": "hint shown", "prediction": "fail", "reason": "no guard"}
]}], "summary": {"passed": 1, "failed": 1}}

Let me know if you need more detail.`

	report, err := ParseScenarioReport(raw)
	require.NoError(t, err)
	require.Len(t, report.Features, 1)
	assert.Equal(t, "Search", report.Features[0].Name)
	assert.Len(t, report.Features[0].Scenarios, 2)

	passed, failed := report.Tally()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.False(t, report.Converged())
}

func TestParseScenarioReportWithoutObjectFails(t *testing.T) {
	_, err := ParseScenarioReport("I could not produce scenarios this time.")
	assert.Error(t, err)
}

func TestParseScenarioReportRejectsBrokenJSON(t *testing.T) {
	_, err := ParseScenarioReport(`{"features": [}`)
	assert.Error(t, err)
}

func TestTallyIgnoresUnrecognizedPredictions(t *testing.T) {
	report := &ScenarioReport{Features: []ScenarioFeature{{
		Name: "Feed",
		Scenarios: []ScenarioCase{
			{Prediction: "Pass"},
			{Prediction: "FAIL"},
			{Prediction: " pass"},
			{Prediction: "likely"},
			{Prediction: ""},
		},
	}}}

	passed, failed := report.Tally()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
}

func TestConvergedNeedsAtLeastOnePass(t *testing.T) {
	empty := &ScenarioReport{}
	assert.False(t, empty.Converged())

	noVerdicts := &ScenarioReport{Features: []ScenarioFeature{{
		Scenarios: []ScenarioCase{{Prediction: "unsure"}},
	}}}
	assert.False(t, noVerdicts.Converged())

	allPass := &ScenarioReport{Features: []ScenarioFeature{{
		Scenarios: []ScenarioCase{{Prediction: "pass"}, {Prediction: "pass"}},
	}}}
	assert.True(t, allPass.Converged())
}
