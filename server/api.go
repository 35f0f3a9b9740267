// Package server exposes generation and run history over HTTP and over a
// stdio JSON-RPC stream, so editors and automation can drive weblurp
// without a terminal.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
)

// Runner executes one generation run on behalf of a remote caller. The cmd
// layer supplies one that assembles a pipeline from the loaded config.
type Runner interface {
	Generate(ctx context.Context, req GenerateRequest) (*pipeline.Result, error)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, req GenerateRequest) (*pipeline.Result, error)

func (f RunnerFunc) Generate(ctx context.Context, req GenerateRequest) (*pipeline.Result, error) {
	return f(ctx, req)
}

// RunHistory lists past runs for the status surface.
type RunHistory interface {
	List(limit int) ([]persistence.Run, error)
}

// GenerateRequest describes the incoming payload.
type GenerateRequest struct {
	Sentence  string `json:"sentence"`
	Stack     string `json:"stack,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

// GenerateResponse reports how a run ended. Error carries run failures;
// transport problems surface as plain HTTP or JSON-RPC errors instead.
type GenerateResponse struct {
	Stage        string         `json:"stage"`
	SiteURL      string         `json:"site_url,omitempty"`
	Requirements map[string]any `json:"requirements,omitempty"`
	Converged    bool           `json:"converged"`
	Rounds       int            `json:"repair_rounds"`
	Artifacts    int            `json:"artifacts_written"`
	Error        string         `json:"error,omitempty"`
}

// StatusResponse lists recent runs, newest first.
type StatusResponse struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary is one run history row.
type RunSummary struct {
	ID         int64      `json:"id"`
	Sentence   string     `json:"sentence"`
	Stack      string     `json:"stack"`
	Stage      string     `json:"stage,omitempty"`
	SiteURL    string     `json:"site_url,omitempty"`
	Error      string     `json:"error,omitempty"`
	Rounds     int        `json:"repair_rounds,omitempty"`
	Converged  bool       `json:"converged,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// APIServer exposes the HTTP endpoints.
type APIServer struct {
	Runner  Runner
	History RunHistory
	Log     *slog.Logger
	// RunTimeout bounds one generation request; zero means 15 minutes.
	RunTimeout time.Duration
}

func (s *APIServer) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *APIServer) timeout() time.Duration {
	if s.RunTimeout <= 0 {
		return 15 * time.Minute
	}
	return s.RunTimeout
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context
// cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("api listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the route table, exposed for tests and embedding.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

func (s *APIServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Sentence) == "" {
		http.Error(w, "sentence required", http.StatusBadRequest)
		return
	}
	s.logger().Info("generate request", "sentence", req.Sentence, "stack", req.Stack)
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout())
	defer cancel()
	result, err := s.Runner.Generate(ctx, req)
	writeJSON(w, buildGenerateResponse(result, err))
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	resp := StatusResponse{Runs: []RunSummary{}}
	if s.History != nil {
		runs, err := s.History.List(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, run := range runs {
			resp.Runs = append(resp.Runs, summarizeRun(run))
		}
	}
	writeJSON(w, resp)
}

func summarizeRun(run persistence.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		Sentence:   run.Sentence,
		Stack:      run.Stack,
		Stage:      run.Stage,
		SiteURL:    run.SiteURL,
		Error:      run.Error,
		Rounds:     run.Rounds,
		Converged:  run.Converged,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

// buildGenerateResponse folds a partial result and a run error into one
// payload. Runs that fail midway still report how far they got.
func buildGenerateResponse(result *pipeline.Result, err error) GenerateResponse {
	resp := GenerateResponse{}
	if result != nil {
		resp.Stage = string(result.Stage)
		resp.SiteURL = result.SiteURL
		resp.Requirements = result.Requirements
		resp.Converged = result.Repair.Converged
		resp.Rounds = result.Repair.Rounds
		resp.Artifacts = result.Stats.ArtifactsWritten
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
