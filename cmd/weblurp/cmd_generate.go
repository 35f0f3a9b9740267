package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/pipeline"
)

func newGenerateCmd() *cobra.Command {
	var stack string
	var output string
	var repo string
	var refine bool
	cmd := &cobra.Command{
		Use:   "generate <sentence>",
		Short: "Run the five-stage generation pipeline",
		Long: "Generate turns one plain-language sentence into a working static web app:\n" +
			"scope negotiates requirements, build writes the files, test runs the\n" +
			"repair loop, document writes the README, and deploy publishes to GitHub\n" +
			"Pages when credentials are configured.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sentence := strings.TrimSpace(strings.Join(args, " "))
			if sentence == "" {
				return errors.New("describe the app in one sentence")
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if repo != "" {
				cfg.GitHubRepo = repo
			}
			var approver pipeline.Approver
			if refine {
				approver = &promptApprover{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			}

			events := make(chan pipeline.Event, 64)
			g, err := newGeneration(cfg, stack, output, events, approver)
			if err != nil {
				return err
			}
			if g.runs = openRunHistory(g.log); g.runs != nil {
				defer g.runs.Close()
			}

			printed := make(chan struct{})
			go func() {
				defer close(printed)
				for ev := range events {
					cmd.Println(formatEvent(ev))
				}
			}()

			result, runErr := g.Run(cmd.Context(), sentence)
			close(events)
			<-printed

			if result != nil {
				cmd.Println(renderSummary(result, g.dir.Root()))
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&stack, "stack", "", "Web stack, basic or react (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository, name or owner/name")
	cmd.Flags().BoolVar(&refine, "refine", false, "Review requirements interactively before building")
	return cmd
}

// formatEvent renders one pipeline event as a log line. The plain CLI and
// the studio log pane share this formatting.
func formatEvent(ev pipeline.Event) string {
	switch ev.Kind {
	case pipeline.EventStageStarted:
		return fmt.Sprintf("[%s] started", ev.Stage)
	case pipeline.EventStageFinished:
		return fmt.Sprintf("[%s] finished", ev.Stage)
	case pipeline.EventPlanReady:
		return fmt.Sprintf("[%s] plan ready, %d todos", ev.Stage, ev.N)
	case pipeline.EventTodoStarted:
		return fmt.Sprintf("[%s] todo %d/%d: %s", ev.Stage, ev.N, ev.M, ev.Title)
	case pipeline.EventTodoCompleted:
		return fmt.Sprintf("[%s] done %d/%d: %s", ev.Stage, ev.N, ev.M, ev.Title)
	case pipeline.EventRepairRound:
		return fmt.Sprintf("[%s] repair round %d/%d", ev.Stage, ev.N, ev.M)
	case pipeline.EventScenarioTally:
		return fmt.Sprintf("[%s] scenarios: %d passed, %d failed", ev.Stage, ev.N, ev.M)
	case pipeline.EventDeployStatus:
		if ev.Title != "" {
			return fmt.Sprintf("[%s] %s: %s", ev.Stage, ev.Detail, ev.Title)
		}
		return fmt.Sprintf("[%s] %s", ev.Stage, ev.Detail)
	default:
		if ev.Title != "" {
			return fmt.Sprintf("[%s] %s %s", ev.Stage, ev.Title, ev.Detail)
		}
		return fmt.Sprintf("[%s] %s", ev.Stage, ev.Detail)
	}
}

// renderSummary draws the end-of-run box: how far the run got, what it
// wrote, and where the result lives.
func renderSummary(result *pipeline.Result, root string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Run summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Stage reached:     %s\n", result.Stage)
	fmt.Fprintf(&b, "Artifacts written: %d\n", result.Stats.ArtifactsWritten)
	if result.Repair.Rounds > 0 {
		verdict := fmt.Sprintf("%d passed, %d failed after %d rounds", result.Repair.Passed, result.Repair.Failed, result.Repair.Rounds)
		if result.Repair.Converged {
			verdict = okStyle.Render(verdict)
		} else {
			verdict = warnStyle.Render(verdict)
		}
		fmt.Fprintf(&b, "Scenario check:    %s\n", verdict)
	}
	if losses := lossLine(result.Stats); losses != "" {
		fmt.Fprintf(&b, "Losses:            %s\n", dimStyle.Render(losses))
	}
	fmt.Fprintf(&b, "Location:          %s", root)
	if result.SiteURL != "" {
		fmt.Fprintf(&b, "\nLive at:           %s", okStyle.Render(result.SiteURL))
	}
	return summaryBoxStyle.Render(b.String())
}

// lossLine folds the non-zero failure counters into one short clause.
func lossLine(stats pipeline.Stats) string {
	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(stats.ParseMisses, "parse misses")
	add(stats.SanitizeRejects, "sanitize rejects")
	add(stats.TraversalViolations, "traversal blocks")
	add(stats.WriteFailures, "write failures")
	add(stats.CollaboratorFailures, "provider failures")
	add(stats.BudgetExhaustions, "budget exhaustions")
	return strings.Join(parts, ", ")
}

// promptApprover shows each requirements draft on the terminal and reads a
// line back. Only the word "approve" accepts the draft; anything else is
// sent to the collaborator as refinement feedback. Running out of input
// approves, so piped stdin cannot loop forever.
type promptApprover struct {
	in  io.Reader
	out io.Writer
	sc  *bufio.Scanner
}

func (a *promptApprover) Review(ctx context.Context, requirements map[string]any) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if a.sc == nil {
		a.sc = bufio.NewScanner(a.in)
	}
	pretty, _ := json.MarshalIndent(requirements, "", "  ")
	fmt.Fprintf(a.out, "\nCurrent requirements:\n%s\n", pretty)
	fmt.Fprint(a.out, "Refine requirements (or 'approve' to continue): ")
	if !a.sc.Scan() {
		if err := a.sc.Err(); err != nil {
			return "", false, err
		}
		fmt.Fprintln(a.out, "approve")
		return "", true, nil
	}
	line := strings.TrimSpace(a.sc.Text())
	if strings.EqualFold(line, "approve") {
		return "", true, nil
	}
	return line, false, nil
}
