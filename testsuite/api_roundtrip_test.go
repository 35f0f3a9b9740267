package testsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
	"github.com/lexcodex/weblurp/server"
	"github.com/lexcodex/weblurp/workspace"
)

func TestGenerateEndpointRunsPipelineAndRecordsHistory(t *testing.T) {
	out := t.TempDir()
	store, err := persistence.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("run store: %v", err)
	}
	defer store.Close()

	runner := server.RunnerFunc(func(ctx context.Context, req server.GenerateRequest) (*pipeline.Result, error) {
		stack, err := workspace.ParseStack(req.Stack)
		if err != nil {
			return nil, err
		}
		dir, err := workspace.New(req.OutputDir)
		if err != nil {
			return nil, err
		}
		script := &cannedCollaborator{replies: []string{
			scopeReply, planReply, appReply, verifyReply, passingReport, readmeReply,
		}}
		p := pipeline.New(dir, script, pipeline.Config{Stack: stack}, quietLogger())
		id, err := store.Start(req.Sentence, req.Stack)
		if err != nil {
			return nil, err
		}
		res, runErr := p.Run(ctx, req.Sentence)
		if err := store.Finish(id, res, runErr); err != nil {
			t.Errorf("finish run: %v", err)
		}
		return res, runErr
	})

	api := &server.APIServer{Runner: runner, History: store, Log: quietLogger()}
	ts := httptest.NewServer(api.Handler())
	defer ts.Close()

	body, _ := json.Marshal(server.GenerateRequest{
		Sentence:  "a pomodoro timer",
		Stack:     "basic",
		OutputDir: out,
	})
	resp, err := http.Post(ts.URL+"/api/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post generate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var genResp server.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		t.Fatalf("decode generate response: %v", err)
	}
	if genResp.Stage != "deploy" || genResp.Error != "" {
		t.Fatalf("unexpected generate response: %+v", genResp)
	}
	if !genResp.Converged || genResp.Artifacts != 2 {
		t.Fatalf("unexpected run outcome: %+v", genResp)
	}
	if genResp.Requirements["app_name"] != "pomodoro" {
		t.Fatalf("requirements missing from response: %+v", genResp.Requirements)
	}

	dir, err := workspace.New(out)
	if err != nil {
		t.Fatalf("reopen workspace: %v", err)
	}
	if !dir.Exists("index.html") {
		t.Fatal("generate request left no index.html on disk")
	}

	statusResp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer statusResp.Body.Close()
	var status server.StatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(status.Runs))
	}
	run := status.Runs[0]
	if run.Sentence != "a pomodoro timer" || run.Stage != "deploy" {
		t.Fatalf("unexpected run summary: %+v", run)
	}
	if !run.Converged || run.Rounds != 1 {
		t.Fatalf("repair outcome missing from run summary: %+v", run)
	}
	if run.FinishedAt == nil {
		t.Fatal("run summary missing finished_at")
	}
}

func TestStatusEndpointListsFailedRunsNewestFirst(t *testing.T) {
	store, err := persistence.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("run store: %v", err)
	}
	defer store.Close()

	first, err := store.Start("a recipe browser", "basic")
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	if err := store.Finish(first, &pipeline.Result{Stage: pipeline.StageDeploy}, nil); err != nil {
		t.Fatalf("finish first: %v", err)
	}
	second, err := store.Start("a broken request", "react")
	if err != nil {
		t.Fatalf("start second: %v", err)
	}
	failed := &pipeline.Result{Stage: pipeline.StageScope}
	if err := store.Finish(second, failed, errors.New("scope stage: requirements never parsed")); err != nil {
		t.Fatalf("finish second: %v", err)
	}

	api := &server.APIServer{History: store, Log: quietLogger()}
	ts := httptest.NewServer(api.Handler())
	defer ts.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/status?limit=5", ts.URL))
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	var status server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(status.Runs))
	}
	if status.Runs[0].Sentence != "a broken request" {
		t.Fatalf("newest run should come first: %+v", status.Runs)
	}
	if status.Runs[0].Error == "" || status.Runs[0].Stage != "scope" {
		t.Fatalf("failed run summary wrong: %+v", status.Runs[0])
	}
	if status.Runs[1].Error != "" {
		t.Fatalf("clean run carries an error: %+v", status.Runs[1])
	}
}
