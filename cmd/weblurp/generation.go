package main

import (
	"context"
	"log/slog"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/internal/logging"
	"github.com/lexcodex/weblurp/llm"
	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
	"github.com/lexcodex/weblurp/workspace"
)

// generation bundles one run's wiring: the workspace, the instrumented
// collaborator, the file-backed stores, and the pipeline over them. The
// optional run store is attached by the caller, which keeps ownership of it.
type generation struct {
	dir   *workspace.Dir
	pipe  *pipeline.Pipeline
	stack workspace.Stack
	runs  *persistence.RunStore
	log   *slog.Logger
}

// newGeneration wires a pipeline from cfg. Non-empty stack and output
// override the configured values; events and approver may be nil.
func newGeneration(cfg *config.Config, stack, output string, events chan<- pipeline.Event, approver pipeline.Approver) (*generation, error) {
	if stack == "" {
		stack = cfg.Stack
	}
	parsed, err := workspace.ParseStack(stack)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = cfg.OutputDir
	}
	output = config.ExpandPath(output)

	dir, err := workspace.New(output)
	if err != nil {
		return nil, err
	}
	transcripts, err := persistence.NewTranscriptLog(output)
	if err != nil {
		return nil, err
	}

	log := logging.New("pipeline")
	collab := llm.NewInstrumented(llm.New(cfg.Provider, cfg.APIKey, cfg.ModelID), transcripts, cfg.ModelID, flagDebug)
	pipe := pipeline.New(dir, collab, pipeline.Config{
		Stack:          parsed,
		GitHubUsername: cfg.GitHubUsername,
		GitHubToken:    cfg.GitHubToken,
		GitHubRepo:     cfg.GitHubRepo,
	}, log)
	pipe.PlanStore = persistence.NewPlanDir(output)
	pipe.Requirements = persistence.NewRequirementsFile(output)
	pipe.Transcript = transcripts
	pipe.Approver = approver
	pipe.Events = events

	return &generation{dir: dir, pipe: pipe, stack: parsed, log: log}, nil
}

// openRunHistory opens the shared run database. History is optional: on
// failure the caller gets nil and the run proceeds unrecorded.
func openRunHistory(log *slog.Logger) *persistence.RunStore {
	runs, err := persistence.NewRunStore(defaultRunsDB())
	if err != nil {
		log.Warn("run history unavailable", "error", err)
		return nil
	}
	return runs
}

// Run drives the pipeline, bracketed by a history row when a store is
// attached.
func (g *generation) Run(ctx context.Context, sentence string) (*pipeline.Result, error) {
	if g.runs == nil {
		return g.pipe.Run(ctx, sentence)
	}
	id, err := g.runs.Start(sentence, g.stack.String())
	if err != nil {
		g.log.Warn("run history write failed", "error", err)
		return g.pipe.Run(ctx, sentence)
	}
	result, runErr := g.pipe.Run(ctx, sentence)
	if err := g.runs.Finish(id, result, runErr); err != nil {
		g.log.Warn("run history write failed", "error", err)
	}
	return result, runErr
}
