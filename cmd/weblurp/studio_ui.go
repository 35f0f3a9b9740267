package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/pipeline"
)

var (
	studioPrimary = lipgloss.Color("39")
	studioAccent  = lipgloss.Color("86")
	studioGood    = lipgloss.Color("42")
	studioWarn    = lipgloss.Color("220")
	studioBad     = lipgloss.Color("196")
	studioFaint   = lipgloss.Color("241")

	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(studioPrimary)
	paneTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(studioAccent)
	dimStyle         = lipgloss.NewStyle().Foreground(studioFaint)
	okStyle          = lipgloss.NewStyle().Bold(true).Foreground(studioGood)
	warnStyle        = lipgloss.NewStyle().Bold(true).Foreground(studioWarn)
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(studioBad)
	stageDoneStyle   = lipgloss.NewStyle().Foreground(studioGood)
	stageActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(studioWarn)
	stageIdleStyle   = lipgloss.NewStyle().Foreground(studioFaint)
	statusBarStyle   = lipgloss.NewStyle().Bold(true)
	summaryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(studioFaint).Padding(0, 2)
)

type studioPhase int

const (
	studioPrompt studioPhase = iota
	studioRunning
	studioReview
	studioDone
)

type pipelineEventMsg struct {
	Event pipeline.Event
}

type approvalMsg struct {
	Request approvalRequest
}

type runFinishedMsg struct {
	Result *pipeline.Result
	Err    error
	Root   string
}

// approvalRequest carries a requirements draft from the pipeline goroutine
// to the UI, with the reply channel back.
type approvalRequest struct {
	Requirements map[string]any
	Reply        chan approvalReply
}

type approvalReply struct {
	Feedback string
	Approved bool
}

// studioApprover bridges the pipeline's synchronous review call into the
// Bubble Tea loop. Review blocks the run goroutine until the UI answers or
// the run context is cancelled.
type studioApprover struct {
	requests chan<- approvalRequest
}

func (a *studioApprover) Review(ctx context.Context, requirements map[string]any) (string, bool, error) {
	req := approvalRequest{Requirements: requirements, Reply: make(chan approvalReply, 1)}
	select {
	case a.requests <- req:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	select {
	case reply := <-req.Reply:
		return reply.Feedback, reply.Approved, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

type todoRow struct {
	id     int
	title  string
	status string
}

type studioModel struct {
	cfg      *config.Config
	stack    string
	output   string
	sentence string

	phase      studioPhase
	input      textinput.Model
	spinner    spinner.Model
	logPort    viewport.Model
	reviewPort viewport.Model
	planTbl    table.Model
	progress   progress.Model

	events    chan pipeline.Event
	approvals chan approvalRequest
	doneCh    chan runFinishedMsg
	cancel    context.CancelFunc

	current    pipeline.Stage
	stagesDone map[pipeline.Stage]bool
	todos      []todoRow
	planSize   int
	passed     int
	failed     int
	site       string
	logs       []string

	review     approvalRequest
	reviewJSON string

	result *pipeline.Result
	runErr error
	root   string

	width  int
	height int
}

func newStudioModel(cfg *config.Config, stack, output, sentence string) *studioModel {
	input := textinput.New()
	input.Placeholder = "Describe the app in one sentence"
	input.Focus()
	input.CharLimit = 512

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = stageActiveStyle

	logPort := viewport.New(80, 12)
	reviewPort := viewport.New(80, 16)

	planTbl := table.New(table.WithColumns([]table.Column{
		{Title: "#", Width: 4},
		{Title: "Todo", Width: 48},
		{Title: "Status", Width: 10},
	}))
	planTbl.SetRows([]table.Row{})

	prog := progress.New(progress.WithDefaultGradient())

	return &studioModel{
		cfg:        cfg,
		stack:      stack,
		output:     output,
		sentence:   strings.TrimSpace(sentence),
		phase:      studioPrompt,
		input:      input,
		spinner:    spin,
		logPort:    logPort,
		reviewPort: reviewPort,
		planTbl:    planTbl,
		progress:   prog,
		stagesDone: map[pipeline.Stage]bool{},
	}
}

func (m *studioModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.sentence != "" {
		cmds = append(cmds, m.startRun())
	}
	return tea.Batch(cmds...)
}

// startRun spawns the generation goroutine and arms the channel listeners.
// The goroutine owns the channels and closes them when the run ends.
func (m *studioModel) startRun() tea.Cmd {
	events := make(chan pipeline.Event, 64)
	approvals := make(chan approvalRequest)
	done := make(chan runFinishedMsg, 1)
	ctx, cancel := context.WithCancel(context.Background())

	m.events = events
	m.approvals = approvals
	m.doneCh = done
	m.cancel = cancel
	m.phase = studioRunning
	m.input.Blur()

	cfg, stack, output, sentence := m.cfg, m.stack, m.output, m.sentence
	go func() {
		g, err := newGeneration(cfg, stack, output, events, &studioApprover{requests: approvals})
		if err != nil {
			close(events)
			close(approvals)
			done <- runFinishedMsg{Err: err}
			return
		}
		if g.runs = openRunHistory(g.log); g.runs != nil {
			defer g.runs.Close()
		}
		result, runErr := g.Run(ctx, sentence)
		close(events)
		close(approvals)
		done <- runFinishedMsg{Result: result, Err: runErr, Root: g.dir.Root()}
	}()

	return tea.Batch(m.listenEvents(), m.listenApprovals(), m.listenDone())
}

func (m *studioModel) stopRun() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *studioModel) listenEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return pipelineEventMsg{Event: ev}
	}
}

func (m *studioModel) listenApprovals() tea.Cmd {
	if m.approvals == nil {
		return nil
	}
	ch := m.approvals
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return nil
		}
		return approvalMsg{Request: req}
	}
}

func (m *studioModel) listenDone() tea.Cmd {
	if m.doneCh == nil {
		return nil
	}
	ch := m.doneCh
	return func() tea.Msg {
		return <-ch
	}
}

func (m *studioModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.stopRun()
			return m, tea.Quit
		case "enter":
			switch m.phase {
			case studioPrompt:
				if sentence := strings.TrimSpace(m.input.Value()); sentence != "" {
					m.sentence = sentence
					m.input.SetValue("")
					return m, m.startRun()
				}
				return m, nil
			case studioReview:
				return m, m.submitReview()
			case studioDone:
				return m, tea.Quit
			}
		case "q":
			if m.phase == studioDone {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logPort.Width = max(20, msg.Width-4)
		m.logPort.Height = max(4, msg.Height/3)
		m.reviewPort.Width = max(20, msg.Width-4)
		m.reviewPort.Height = max(6, msg.Height/2)
	case pipelineEventMsg:
		m.applyEvent(msg.Event)
		cmds = append(cmds, m.listenEvents())
	case approvalMsg:
		m.review = msg.Request
		pretty, _ := json.MarshalIndent(msg.Request.Requirements, "", "  ")
		m.reviewJSON = string(pretty)
		m.phase = studioReview
		m.input.Placeholder = "Feedback, or Enter to approve"
		m.input.Focus()
		cmds = append(cmds, m.listenApprovals(), textinput.Blink)
	case runFinishedMsg:
		m.phase = studioDone
		m.result = msg.Result
		m.runErr = msg.Err
		m.root = msg.Root
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.phase == studioPrompt || m.phase == studioReview {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// submitReview answers the pending approval request. An empty line approves,
// matching the placeholder hint; anything else goes back as feedback.
func (m *studioModel) submitReview() tea.Cmd {
	if m.review.Reply == nil {
		return nil
	}
	line := strings.TrimSpace(m.input.Value())
	reply := approvalReply{Approved: line == "" || strings.EqualFold(line, "approve")}
	if !reply.Approved {
		reply.Feedback = line
	}
	m.review.Reply <- reply
	if reply.Approved {
		m.appendLog("[scope] requirements approved")
	} else {
		m.appendLog("[scope] feedback sent: " + trimString(line, 60))
	}
	m.review = approvalRequest{}
	m.reviewJSON = ""
	m.input.SetValue("")
	m.input.Blur()
	m.phase = studioRunning
	return nil
}

func (m *studioModel) applyEvent(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventStageStarted:
		m.current = ev.Stage
	case pipeline.EventStageFinished:
		m.stagesDone[ev.Stage] = true
	case pipeline.EventPlanReady:
		m.planSize = ev.N
	case pipeline.EventTodoStarted:
		m.upsertTodo(ev.N, ev.Title, "running")
	case pipeline.EventTodoCompleted:
		m.upsertTodo(ev.N, ev.Title, "done")
	case pipeline.EventScenarioTally:
		m.passed, m.failed = ev.N, ev.M
	case pipeline.EventDeployStatus:
		if ev.Title != "" {
			m.site = ev.Title
		}
	}
	m.appendLog(formatEvent(ev))
}

func (m *studioModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > 400 {
		m.logs = m.logs[len(m.logs)-400:]
	}
}

func (m *studioModel) upsertTodo(id int, title, status string) {
	for i := range m.todos {
		if m.todos[i].id == id {
			m.todos[i].status = status
			m.refreshPlanTable()
			return
		}
	}
	m.todos = append(m.todos, todoRow{id: id, title: title, status: status})
	m.refreshPlanTable()
}

func (m *studioModel) refreshPlanTable() {
	rows := make([]table.Row, 0, len(m.todos))
	for _, todo := range m.todos {
		rows = append(rows, table.Row{fmt.Sprintf("%d", todo.id), trimString(todo.title, 48), todo.status})
	}
	m.planTbl.SetRows(rows)
}

func (m *studioModel) View() string {
	switch m.phase {
	case studioPrompt:
		return m.renderPrompt()
	case studioReview:
		return m.renderReview()
	case studioDone:
		return m.renderDone()
	default:
		return m.renderRunning()
	}
}

func (m *studioModel) renderPrompt() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("weblurp studio"))
	b.WriteString("\n\n")
	b.WriteString("Describe the web app you want. One sentence is enough.\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Enter to start, Esc to quit."))
	return b.String()
}

func (m *studioModel) renderRunning() string {
	var b strings.Builder
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderStages())
	b.WriteString("\n\n")
	if len(m.todos) > 0 {
		b.WriteString(paneTitleStyle.Render("Build plan"))
		b.WriteString("\n")
		b.WriteString(m.planTbl.View())
		b.WriteString("\n\n")
	}
	b.WriteString(paneTitleStyle.Render("Events"))
	b.WriteString("\n")
	b.WriteString(m.renderLogPane())
	return b.String()
}

func (m *studioModel) renderReview() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Requirements draft"))
	b.WriteString("\n")
	m.reviewPort.SetContent(m.reviewJSON)
	b.WriteString(m.reviewPort.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter approves; any other line goes back as feedback."))
	return b.String()
}

func (m *studioModel) renderDone() string {
	var b strings.Builder
	if m.runErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Run failed: %v", m.runErr)))
		b.WriteString("\n\n")
	}
	if m.result != nil {
		b.WriteString(renderSummary(m.result, m.root))
		b.WriteString("\n\n")
	}
	b.WriteString(paneTitleStyle.Render("Events"))
	b.WriteString("\n")
	b.WriteString(m.renderLogPane())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press q to quit."))
	return b.String()
}

func (m *studioModel) renderStatusBar() string {
	status := fmt.Sprintf("%s Generating %q", m.spinner.View(), trimString(m.sentence, 60))
	if m.planSize > 0 {
		done := 0
		for _, todo := range m.todos {
			if todo.status == "done" {
				done++
			}
		}
		status += " | build " + m.progress.ViewAs(float64(done)/float64(max(1, m.planSize)))
	}
	if m.passed+m.failed > 0 {
		status += fmt.Sprintf(" | scenarios %d/%d", m.passed, m.passed+m.failed)
	}
	if m.site != "" {
		status += " | " + m.site
	}
	return statusBarStyle.Render(status)
}

func (m *studioModel) renderStages() string {
	parts := make([]string, 0, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		label := string(stage)
		switch {
		case m.stagesDone[stage]:
			parts = append(parts, stageDoneStyle.Render("✓ "+label))
		case stage == m.current:
			parts = append(parts, stageActiveStyle.Render("▶ "+label))
		default:
			parts = append(parts, stageIdleStyle.Render("· "+label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *studioModel) renderLogPane() string {
	m.logPort.SetContent(strings.Join(m.logs, "\n"))
	m.logPort.GotoBottom()
	return m.logPort.View()
}

func trimString(val string, size int) string {
	if len(val) <= size {
		return val
	}
	return val[:size-3] + "..."
}
