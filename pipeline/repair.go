package pipeline

import (
	"context"
	"log/slog"
)

// AskFunc sends one prompt through the stage conversation and returns the
// reply, or "" when the collaborator failed. The pipeline binds this to its
// conversation-aware ask helper; tests substitute canned replies.
type AskFunc func(ctx context.Context, system, prompt string) string

// RepairLoop runs the evaluate-fix cycle of the test stage: summarize the
// workspace, ask for predicted scenarios, and when failures are predicted,
// request complete-file fixes and materialize them. Replies that cannot be
// parsed are retried down the budget ladder with ever smaller summaries.
type RepairLoop struct {
	summarizer   *Summarizer
	materializer *Materializer
	ask          AskFunc
	ladder       []BudgetLevel
	maxRounds    int
	stats        *Stats
	log          *slog.Logger
	emit         func(Event)
}

// RepairResult records how the loop ended: the rounds consumed, the last
// prediction tally, and whether it converged or ran out of budgets.
type RepairResult struct {
	Rounds          int
	Passed          int
	Failed          int
	Converged       bool
	BudgetExhausted bool
}

func NewRepairLoop(summarizer *Summarizer, materializer *Materializer, ask AskFunc, ladder []BudgetLevel, maxRounds int, stats *Stats, log *slog.Logger, emit func(Event)) *RepairLoop {
	if emit == nil {
		emit = func(Event) {}
	}
	return &RepairLoop{
		summarizer:   summarizer,
		materializer: materializer,
		ask:          ask,
		ladder:       ladder,
		maxRounds:    maxRounds,
		stats:        stats,
		log:          log,
		emit:         emit,
	}
}

// Run executes up to maxRounds evaluate-fix cycles. It stops early when the
// predictions converge, when no budget rung yields a parseable report, or
// when ctx is done. The final round applies its fixes without re-evaluating;
// the next full run sees the result.
func (l *RepairLoop) Run(ctx context.Context, requirements map[string]any) RepairResult {
	var res RepairResult
	for round := 1; round <= l.maxRounds; round++ {
		if ctx.Err() != nil {
			break
		}
		res.Rounds = round
		l.log.Info("repair round", "round", round, "max", l.maxRounds)
		l.emit(Event{Kind: EventRepairRound, Stage: StageTest, N: round, M: l.maxRounds})

		report := l.evaluate(ctx, requirements)
		if report == nil {
			l.stats.BudgetExhaustions++
			res.BudgetExhausted = true
			l.log.Warn("no budget rung produced a parseable scenario report, stopping")
			break
		}

		passed, failed := report.Tally()
		res.Passed, res.Failed = passed, failed
		l.log.Info("scenario predictions", "passed", passed, "failed", failed)
		l.emit(Event{Kind: EventScenarioTally, Stage: StageTest, N: passed, M: failed})
		if failed == 0 && passed > 0 {
			res.Converged = true
			break
		}

		applied := l.materializer.Apply(l.ask(ctx, testSystem, fixPrompt(report.Features)))
		l.log.Info("fixes applied", "files", applied)
	}
	return res
}

// evaluate walks the budget ladder until one reply decodes. Summarizer
// errors degrade to an empty snapshot rather than skipping the rung.
func (l *RepairLoop) evaluate(ctx context.Context, requirements map[string]any) *ScenarioReport {
	for _, level := range l.ladder {
		summaries, err := l.summarizer.Summarize(level)
		if err != nil {
			l.log.Warn("workspace summary failed", "err", err)
			summaries = nil
		}
		reply := l.ask(ctx, testSystem, scenarioPrompt(requirements, level, summaries))
		report, err := ParseScenarioReport(reply)
		if err != nil {
			l.log.Debug("scenario reply unparsed, shrinking budget",
				"max_files", level.MaxFiles, "max_lines", level.MaxLinesPerFile, "err", err)
			continue
		}
		return report
	}
	return nil
}
