package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/lexcodex/weblurp/deploy"
	"github.com/lexcodex/weblurp/extract"
	"github.com/lexcodex/weblurp/workspace"
)

// Approver reviews requirements between scope iterations: it either approves
// them as-is or returns feedback for another refinement round.
type Approver interface {
	Review(ctx context.Context, requirements map[string]any) (feedback string, approved bool, err error)
}

// AutoApprover accepts the first requirements it sees, for non-interactive
// runs.
type AutoApprover struct{}

func (AutoApprover) Review(context.Context, map[string]any) (string, bool, error) {
	return "", true, nil
}

// RequirementsStore persists the negotiated requirements snapshot.
type RequirementsStore interface {
	Save(requirements map[string]any) error
}

// StageMarker is told when each stage begins. Keyed sinks, like the
// per-stage transcript store, use it to switch files.
type StageMarker interface {
	Begin(stage Stage)
}

// Config carries the runtime knobs of one generation run.
type Config struct {
	Stack workspace.Stack

	// MaxScopeIterations bounds requirement refinement rounds.
	MaxScopeIterations int
	// MaxRepairRounds bounds test-stage evaluate-fix cycles.
	MaxRepairRounds int
	// Ladder overrides the progressive summary budgets.
	Ladder []BudgetLevel

	GitHubUsername string
	GitHubToken    string
	GitHubRepo     string

	// PollInterval and PollMaxWait shape deployment polling. Zero values
	// mean 10s and the stack default (180s basic, 600s react).
	PollInterval time.Duration
	PollMaxWait  time.Duration
}

// Result summarizes how far a run got.
type Result struct {
	// Stage is the furthest stage the run entered.
	Stage        Stage
	Requirements map[string]any
	Repair       RepairResult
	SiteURL      string
	Stats        Stats
}

// Pipeline executes the five stages against one workspace. The exported
// fields are optional collaborating stores and sinks; leave them nil and the
// run stays self-contained.
type Pipeline struct {
	// Approver reviews requirements between scope rounds; nil auto-approves.
	Approver Approver
	// PlanStore persists stage plans; nil keeps them in memory.
	PlanStore PlanStore
	// Requirements persists the requirements snapshot on every successful
	// parse; nil skips persistence.
	Requirements RequirementsStore
	// Transcript is notified at stage boundaries; nil skips it.
	Transcript StageMarker
	// Events receives progress notifications; nil disables them.
	Events chan<- Event
	// GitHub overrides the API client, used by tests to point at a local
	// server; nil builds one from the configured credentials.
	GitHub *deploy.Client

	cfg          Config
	dir          *workspace.Dir
	collab       Collaborator
	log          *slog.Logger
	conv         *Conversation
	stats        Stats
	materializer *Materializer
	summarizer   *Summarizer
	requirements map[string]any
}

// New wires a pipeline over dir. The repo setting may arrive as "owner/name";
// the owner part then overrides the configured username everywhere,
// including the react scaffold's Pages base path.
func New(dir *workspace.Dir, collab Collaborator, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Stack == "" {
		cfg.Stack = workspace.StackBasic
	}
	if cfg.MaxScopeIterations <= 0 {
		cfg.MaxScopeIterations = 10
	}
	if cfg.MaxRepairRounds <= 0 {
		cfg.MaxRepairRounds = DefaultMaxRepairRounds
	}
	if cfg.Ladder == nil {
		cfg.Ladder = DefaultLadder()
	} else if err := ValidateLadder(cfg.Ladder); err != nil {
		log.Warn("budget ladder rejected, using default", "err", err)
		cfg.Ladder = DefaultLadder()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if owner, name, ok := strings.Cut(cfg.GitHubRepo, "/"); ok {
		cfg.GitHubUsername = owner
		cfg.GitHubRepo = name
	}

	p := &Pipeline{
		cfg:    cfg,
		dir:    dir,
		collab: collab,
		log:    log,
		conv:   NewConversation(),
	}
	p.materializer = NewMaterializer(dir, extract.NewCascade(cfg.Stack), NewDebugLog(dir), &p.stats, log)
	p.summarizer = NewSummarizer(dir)
	return p
}

// Run drives every stage in order. Scope and build failures abort the run;
// test and document are best-effort; deploy skips cleanly without
// credentials and reports ErrDeployIncomplete when the site never confirmed.
func (p *Pipeline) Run(ctx context.Context, sentence string) (*Result, error) {
	res := &Result{}
	defer func() { res.Stats = p.stats }()

	stages := []struct {
		stage Stage
		run   func(context.Context, *Result) error
	}{
		{StageScope, func(ctx context.Context, r *Result) error {
			if err := p.runScope(ctx, sentence); err != nil {
				return err
			}
			r.Requirements = p.requirements
			return nil
		}},
		{StageBuild, func(ctx context.Context, _ *Result) error {
			return p.runBuild(ctx)
		}},
		{StageTest, func(ctx context.Context, r *Result) error {
			r.Repair = p.runTest(ctx)
			return ctx.Err()
		}},
		{StageDocument, func(ctx context.Context, _ *Result) error {
			p.runDocument(ctx)
			return ctx.Err()
		}},
		{StageDeploy, func(ctx context.Context, r *Result) error {
			site, err := p.runDeploy(ctx)
			r.SiteURL = site
			return err
		}},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Stage = s.stage
		p.log.Info("stage started", "stage", s.stage)
		if p.Transcript != nil {
			p.Transcript.Begin(s.stage)
		}
		p.emit(Event{Kind: EventStageStarted, Stage: s.stage})
		if err := s.run(ctx, res); err != nil {
			return res, fmt.Errorf("%s stage: %w", s.stage, err)
		}
		p.log.Info("stage finished", "stage", s.stage)
		p.emit(Event{Kind: EventStageFinished, Stage: s.stage})
	}
	return res, nil
}

// ask sends one prompt through the stage conversation. On collaborator
// failure the user turn stays in the history and the reply is empty; callers
// treat that like any other unparseable reply.
func (p *Pipeline) ask(ctx context.Context, system, prompt string) string {
	p.conv.Append(RoleUser, prompt)
	reply, err := p.collab.Complete(ctx, system, p.conv.Turns())
	if err != nil {
		p.stats.CollaboratorFailures++
		p.log.Warn("collaborator call failed", "err", err)
		return ""
	}
	p.conv.Append(RoleAssistant, reply)
	return reply
}

func (p *Pipeline) runScope(ctx context.Context, sentence string) error {
	p.conv.Reset()
	approver := p.Approver
	if approver == nil {
		approver = AutoApprover{}
	}
	for iteration := 1; iteration <= p.cfg.MaxScopeIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info("scope iteration", "iteration", iteration, "max", p.cfg.MaxScopeIterations)
		var prompt string
		if iteration == 1 {
			prompt = scopeInitialPrompt(sentence)
		} else {
			feedback, approved, err := approver.Review(ctx, p.requirements)
			if err != nil {
				return fmt.Errorf("review requirements: %w", err)
			}
			if approved {
				p.log.Info("requirements approved")
				break
			}
			prompt = scopeRefinePrompt(p.requirements, feedback)
		}
		reply := p.ask(ctx, scopeSystem, prompt)
		snippet := extractObject(reply)
		if snippet == "" {
			p.log.Warn("scope reply carried no JSON object")
			continue
		}
		var req map[string]any
		if err := json.Unmarshal([]byte(snippet), &req); err != nil {
			p.log.Warn("scope reply JSON invalid", "err", err)
			continue
		}
		p.requirements = req
		if p.Requirements != nil {
			if err := p.Requirements.Save(req); err != nil {
				p.log.Warn("requirements persist failed", "err", err)
			}
		}
	}
	if len(p.requirements) == 0 {
		return ErrScopeFailed
	}
	return nil
}

func (p *Pipeline) runBuild(ctx context.Context) error {
	p.conv.Reset()
	plan := NewPlan(StageBuild, p.PlanStore)
	p.log.Info("creating build plan")
	reply := p.ask(ctx, buildSystem, buildPlanPrompt(p.requirements, p.cfg.Stack))
	snippet := extractArray(reply)
	if snippet == "" {
		return ErrBuildPlanFailed
	}
	var items []struct {
		Title              string   `json:"title"`
		Description        string   `json:"description"`
		AcceptanceCriteria []string `json:"acceptance_criteria"`
	}
	if err := json.Unmarshal([]byte(snippet), &items); err != nil {
		p.log.Warn("build plan decode failed", "err", err)
		return ErrBuildPlanFailed
	}
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = "Task"
		}
		if _, err := plan.Add(title, item.Description, item.AcceptanceCriteria); err != nil {
			p.log.Warn("plan persist failed", "err", err)
		}
	}
	p.log.Info("build plan ready", "todos", plan.Len())
	p.emit(Event{Kind: EventPlanReady, Stage: StageBuild, N: plan.Len()})

	if p.cfg.Stack == workspace.StackReact {
		if err := ensureReactScaffold(p.dir, p.cfg.GitHubUsername, p.cfg.GitHubRepo, p.log); err != nil {
			p.log.Warn("react scaffold failed", "err", err)
		}
	}

	for _, todo := range plan.Todos() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info("working on task", "id", todo.ID, "title", todo.Title)
		p.emit(Event{Kind: EventTodoStarted, Stage: StageBuild, Title: todo.Title, N: todo.ID, M: plan.Len()})
		saved := p.materializer.Apply(p.ask(ctx, buildSystem, buildTaskPrompt(todo, p.requirements, p.cfg.Stack)))
		if saved == 0 {
			p.log.Info("no files landed, retrying with explicit format")
			p.materializer.Apply(p.ask(ctx, buildSystem, buildRetryPrompt(todo)))
		}
		p.verifyTodo(ctx, todo)
		if err := plan.Complete(todo.ID); err != nil {
			p.log.Warn("plan persist failed", "err", err)
		}
		p.emit(Event{Kind: EventTodoCompleted, Stage: StageBuild, Title: todo.Title, N: todo.ID, M: plan.Len()})
	}

	var err error
	if p.cfg.Stack == workspace.StackReact {
		err = ensureMinimumReact(p.dir, p.cfg.GitHubUsername, p.cfg.GitHubRepo, p.log)
	} else {
		err = ensureMinimumBasic(p.dir, p.log)
	}
	if err != nil {
		p.log.Warn("minimum content check failed", "err", err)
	}
	p.log.Info("build stage complete", "todos", plan.Len())
	return nil
}

// verifyTodo runs the advisory acceptance check. The verdict only shapes the
// log line; the todo completes either way.
func (p *Pipeline) verifyTodo(ctx context.Context, todo Todo) {
	reply := p.ask(ctx, buildSystem, verifyPrompt(todo))
	snippet := extractObject(reply)
	if snippet == "" {
		p.log.Info("verification unclear, completing task anyway")
		return
	}
	var verdict struct {
		Met    bool     `json:"met"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(snippet), &verdict); err != nil {
		p.log.Info("verification unclear, completing task anyway", "err", err)
		return
	}
	if verdict.Met {
		p.log.Info("acceptance criteria met")
		return
	}
	p.log.Warn("acceptance issues reported", "issues", strings.Join(verdict.Issues, ", "))
}

func (p *Pipeline) runTest(ctx context.Context) RepairResult {
	p.conv.Reset()
	files, err := p.dir.ListFiles()
	if err != nil {
		p.log.Warn("workspace listing failed", "err", err)
	}
	var htmls, csss, scripts int
	for _, f := range files {
		switch strings.ToLower(path.Ext(f)) {
		case ".html":
			htmls++
		case ".css":
			csss++
		case ".js", ".ts", ".tsx", ".jsx":
			scripts++
		}
	}
	p.log.Info("workspace inventory", "html", htmls, "css", csss, "scripts", scripts, "total", len(files))
	p.emit(Event{Kind: EventNote, Stage: StageTest,
		Detail: fmt.Sprintf("%d files: %d html, %d css, %d scripts", len(files), htmls, csss, scripts)})

	if p.cfg.Stack == workspace.StackBasic {
		if n, err := p.dir.RewriteAssetPaths(); err != nil {
			p.log.Warn("asset path rewrite failed", "err", err)
		} else if n > 0 {
			p.log.Info("rewrote asset paths to relative", "files", n)
		}
		missing, err := p.dir.MissingAssetRefs()
		if err != nil {
			p.log.Warn("asset scan failed", "err", err)
		} else if len(missing) > 0 {
			p.log.Warn("referenced assets missing, repair loop may address them",
				"count", len(missing), "first", missing[0])
			p.emit(Event{Kind: EventNote, Stage: StageTest,
				Detail: fmt.Sprintf("%d referenced assets missing", len(missing))})
		}
	}

	loop := NewRepairLoop(p.summarizer, p.materializer, p.ask, p.cfg.Ladder, p.cfg.MaxRepairRounds, &p.stats, p.log, p.emit)
	res := loop.Run(ctx, p.requirements)
	if !res.Converged {
		p.log.Warn("scenarios did not fully pass, proceeding best effort",
			"passed", res.Passed, "failed", res.Failed, "rounds", res.Rounds)
	}
	return res
}

func (p *Pipeline) runDocument(ctx context.Context) {
	p.conv.Reset()
	plan := NewPlan(StageDocument, p.PlanStore)
	id, err := plan.Add("Create README.md", "Create comprehensive project documentation",
		[]string{"README.md exists", "Contains setup instructions", "Contains features list"})
	if err != nil {
		p.log.Warn("plan persist failed", "err", err)
	}
	reply := p.ask(ctx, documentSystem, readmePrompt(p.requirements, p.cfg.Stack))
	if strings.TrimSpace(reply) == "" {
		p.log.Warn("empty README reply, skipping write")
	} else if _, err := p.dir.WriteFile("README.md", reply); err != nil {
		p.stats.WriteFailures++
		p.log.Warn("README write failed", "err", err)
	} else {
		p.log.Info("README.md written")
	}
	if err := plan.Complete(id); err != nil {
		p.log.Warn("plan persist failed", "err", err)
	}
}

func (p *Pipeline) runDeploy(ctx context.Context) (string, error) {
	owner, token, repo := p.cfg.GitHubUsername, p.cfg.GitHubToken, p.cfg.GitHubRepo
	if owner == "" || token == "" {
		p.log.Info("github credentials not configured, skipping deployment",
			"workspace", p.dir.Root())
		p.emit(Event{Kind: EventDeployStatus, Stage: StageDeploy, Detail: "skipped: no credentials"})
		return "", nil
	}
	if repo == "" {
		repo = "my-generated-app"
	}

	plan := NewPlan(StageDeploy, p.PlanStore)
	add := func(title, description string, criteria []string) int {
		id, err := plan.Add(title, description, criteria)
		if err != nil {
			p.log.Warn("plan persist failed", "err", err)
		}
		return id
	}
	complete := func(id int) {
		if err := plan.Complete(id); err != nil {
			p.log.Warn("plan persist failed", "err", err)
		}
	}

	react := p.cfg.Stack == workspace.StackReact
	var prepID int
	if react {
		prepID = add("Prepare React repo", "Ensure React scaffold and Actions workflow exist",
			[]string{"package.json exists", ".github/workflows/pages.yml exists"})
	} else {
		prepID = add("Flatten app to root", "Ensure index.html and assets are in repo root",
			[]string{"index.html exists in repo root"})
	}
	gitID := add("Initialize Git repository", "Create local git repo and initial commit",
		[]string{".git exists", "Files staged and committed"})
	repoID := add("Create/Verify GitHub repo", "Create or verify remote repo on GitHub",
		[]string{"Remote repository ready"})
	pushID := add("Push to GitHub", "Push code to remote repository",
		[]string{"Code pushed to main"})
	pagesID := 0
	if react {
		pagesID = add("Enable Pages via Actions", "Configure Pages to use Actions build",
			[]string{"Pages build_type set to workflow"})
	}
	waitID := add("Wait for deployment (if applicable)", "Poll URL until live",
		[]string{"Site returns HTTP 200"})

	if react {
		p.log.Info("ensuring react scaffold and workflow")
		if err := ensureReactScaffold(p.dir, owner, repo, p.log); err != nil {
			p.log.Warn("react scaffold failed", "err", err)
		}
		if err := scanImportsAndEnsureDeps(p.dir, p.log); err != nil {
			p.log.Warn("import scan failed", "err", err)
		}
		complete(prepID)
	} else {
		p.log.Info("ensuring app files sit at repo root")
		if !p.dir.Exists("index.html") {
			if best, ok := p.dir.BestAppDir(); ok {
				p.log.Info("flattening app directory to root", "dir", best)
				if err := p.dir.Flatten(best); err != nil {
					p.log.Warn("flatten failed", "err", err)
				}
			} else {
				p.log.Warn("no index.html anywhere, adding fallback skeleton")
			}
		}
		if !p.dir.Exists("index.html") {
			if err := ensureMinimumBasic(p.dir, p.log); err != nil {
				p.log.Warn("fallback skeleton failed", "err", err)
			}
		}
		if err := p.dir.Touch(".nojekyll"); err != nil {
			p.log.Warn("nojekyll marker failed", "err", err)
		}
		if _, err := p.dir.RewriteAssetPaths(); err != nil {
			p.log.Warn("asset path rewrite failed", "err", err)
		}
		complete(prepID)
	}

	git := deploy.NewGitRunner(p.dir.Root(), p.log)
	p.log.Info("initializing git repository")
	if err := git.Init(ctx); err != nil {
		p.log.Warn("git init failed", "err", err)
	}
	if files, err := p.dir.ListFiles(); err == nil {
		p.log.Info("committing workspace", "files", len(files))
	}
	if err := git.AddAll(ctx); err != nil {
		p.log.Warn("git add failed", "err", err)
	}
	if err := git.Commit(ctx, "Deploy commit"); err != nil {
		p.log.Debug("commit skipped", "err", err)
	}
	complete(gitID)

	gh := p.GitHub
	if gh == nil {
		gh = deploy.NewClient(owner, token, p.log)
	}
	description := "Generated web app"
	if v, ok := p.requirements["description"]; ok {
		if s, ok := v.(string); ok {
			description = s
		}
	}
	p.log.Info("creating or verifying github repository", "repo", repo)
	if err := gh.CreateRepo(ctx, repo, description); err != nil {
		p.log.Warn("create repo failed", "err", err)
	} else {
		complete(repoID)
	}

	remoteURL := fmt.Sprintf("https://%s@github.com/%s/%s.git", token, owner, repo)
	if err := git.SetRemote(ctx, "origin", remoteURL); err != nil {
		p.log.Warn("set remote failed", "err", err)
	}
	if err := git.BranchMain(ctx); err != nil {
		p.log.Warn("branch rename failed", "err", err)
	}
	if err := git.Push(ctx, "origin", "main"); err != nil {
		p.log.Warn("push failed", "err", err)
	} else {
		p.log.Info("pushed to github")
		complete(pushID)
	}

	if react {
		p.log.Info("setting pages to actions workflow build")
		if err := gh.EnablePagesActions(ctx, repo); err != nil {
			p.log.Warn("enable pages workflow failed", "err", err)
		}
		complete(pagesID)
	} else {
		if err := gh.EnablePages(ctx, repo); err != nil {
			p.log.Warn("enable pages failed", "err", err)
		}
	}

	site := deploy.PagesURL(owner, repo)
	maxWait := p.cfg.PollMaxWait
	if maxWait <= 0 {
		maxWait = 180 * time.Second
		if react {
			maxWait = 600 * time.Second
		}
	}
	p.log.Info("waiting for pages deployment", "site", site, "max_wait", maxWait)
	probe := func(ctx context.Context) (bool, error) {
		status, err := gh.PagesBuildStatus(ctx, repo)
		if err != nil {
			p.log.Debug("pages status fetch failed", "err", err)
		} else if status != "" {
			p.log.Info("pages build status", "status", status)
			p.emit(Event{Kind: EventDeployStatus, Stage: StageDeploy, Detail: status})
			if status == "errored" {
				return false, fmt.Errorf("pages build errored")
			}
		}
		return deploy.SiteUp(ctx, gh.HTTPClient, site), nil
	}
	err := deploy.Poll(ctx, deploy.PollOptions{Interval: p.cfg.PollInterval, MaxWait: maxWait}, probe)
	switch {
	case err == nil:
		complete(waitID)
		p.log.Info("site is live", "url", site)
		p.emit(Event{Kind: EventDeployStatus, Stage: StageDeploy, Detail: "live", Title: site})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return site, err
	case errors.Is(err, deploy.ErrPollTimeout):
		p.log.Warn("timed out waiting for pages, deployment may still complete shortly")
	default:
		p.log.Warn("pages deployment failed", "err", err)
	}
	if !plan.IsComplete() {
		return site, ErrDeployIncomplete
	}
	return site, nil
}
