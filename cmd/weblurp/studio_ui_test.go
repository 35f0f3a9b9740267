package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/pipeline"
)

func testStudioModel() *studioModel {
	cfg := &config.Config{Provider: "anthropic", OutputDir: "./out", Stack: "basic"}
	return newStudioModel(cfg, "", "", "")
}

func TestStudioModelAppliesEvents(t *testing.T) {
	m := testStudioModel()
	m.phase = studioRunning

	m.applyEvent(pipeline.Event{Kind: pipeline.EventStageStarted, Stage: pipeline.StageScope})
	require.Equal(t, pipeline.StageScope, m.current)

	m.applyEvent(pipeline.Event{Kind: pipeline.EventStageFinished, Stage: pipeline.StageScope})
	require.True(t, m.stagesDone[pipeline.StageScope])

	m.applyEvent(pipeline.Event{Kind: pipeline.EventPlanReady, Stage: pipeline.StageBuild, N: 2})
	require.Equal(t, 2, m.planSize)

	m.applyEvent(pipeline.Event{Kind: pipeline.EventTodoStarted, Stage: pipeline.StageBuild, Title: "Landing page", N: 1, M: 2})
	require.Len(t, m.todos, 1)
	require.Equal(t, "running", m.todos[0].status)

	m.applyEvent(pipeline.Event{Kind: pipeline.EventTodoCompleted, Stage: pipeline.StageBuild, Title: "Landing page", N: 1, M: 2})
	require.Len(t, m.todos, 1)
	require.Equal(t, "done", m.todos[0].status)

	m.applyEvent(pipeline.Event{Kind: pipeline.EventScenarioTally, Stage: pipeline.StageTest, N: 3, M: 1})
	require.Equal(t, 3, m.passed)
	require.Equal(t, 1, m.failed)

	m.applyEvent(pipeline.Event{Kind: pipeline.EventDeployStatus, Stage: pipeline.StageDeploy, Detail: "live", Title: "https://alice.github.io/site"})
	require.Equal(t, "https://alice.github.io/site", m.site)

	require.Len(t, m.logs, 7)
}

func TestStudioPromptIgnoresEmptySentence(t *testing.T) {
	m := testStudioModel()
	updatedAny, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, studioPrompt, updatedAny.(*studioModel).phase)
	require.Nil(t, cmd)
}

func TestStudioReviewFeedbackFlow(t *testing.T) {
	m := testStudioModel()
	m.phase = studioRunning

	req := approvalRequest{
		Requirements: map[string]any{"app_name": "Pomodoro"},
		Reply:        make(chan approvalReply, 1),
	}
	updatedAny, _ := m.Update(approvalMsg{Request: req})
	updated := updatedAny.(*studioModel)
	require.Equal(t, studioReview, updated.phase)
	require.Contains(t, updated.reviewJSON, "Pomodoro")

	updated.input.SetValue("use a dark theme")
	doneAny, _ := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, studioRunning, doneAny.(*studioModel).phase)

	select {
	case reply := <-req.Reply:
		require.False(t, reply.Approved)
		require.Equal(t, "use a dark theme", reply.Feedback)
	default:
		t.Fatal("no reply sent")
	}
}

func TestStudioReviewApprovesOnEmptyInput(t *testing.T) {
	m := testStudioModel()
	m.phase = studioRunning

	req := approvalRequest{
		Requirements: map[string]any{"app_name": "Pomodoro"},
		Reply:        make(chan approvalReply, 1),
	}
	updatedAny, _ := m.Update(approvalMsg{Request: req})
	updated := updatedAny.(*studioModel)

	doneAny, _ := updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, studioRunning, doneAny.(*studioModel).phase)

	reply := <-req.Reply
	require.True(t, reply.Approved)
	require.Empty(t, reply.Feedback)
}

func TestStudioRunFinished(t *testing.T) {
	m := testStudioModel()
	m.phase = studioRunning

	result := &pipeline.Result{
		Stage:   pipeline.StageDeploy,
		SiteURL: "https://alice.github.io/site",
		Stats:   pipeline.Stats{ArtifactsWritten: 4},
	}
	updatedAny, _ := m.Update(runFinishedMsg{Result: result, Root: "/tmp/site"})
	updated := updatedAny.(*studioModel)
	require.Equal(t, studioDone, updated.phase)

	view := updated.View()
	require.Contains(t, view, "Stage reached")
	require.Contains(t, view, "https://alice.github.io/site")
	require.Contains(t, view, "Press q to quit")
}

func TestStudioApproverRoundTrip(t *testing.T) {
	requests := make(chan approvalRequest, 1)
	approver := &studioApprover{requests: requests}

	type outcome struct {
		feedback string
		approved bool
		err      error
	}
	results := make(chan outcome, 1)
	go func() {
		feedback, approved, err := approver.Review(context.Background(), map[string]any{"app_name": "X"})
		results <- outcome{feedback, approved, err}
	}()

	req := <-requests
	req.Reply <- approvalReply{Approved: true}
	res := <-results
	require.NoError(t, res.err)
	require.True(t, res.approved)
	require.Empty(t, res.feedback)
}

func TestStudioApproverHonorsCancellation(t *testing.T) {
	approver := &studioApprover{requests: make(chan approvalRequest)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := approver.Review(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrimString(t *testing.T) {
	require.Equal(t, "short", trimString("short", 10))
	require.Equal(t, "long st...", trimString("long string here", 10))
}
