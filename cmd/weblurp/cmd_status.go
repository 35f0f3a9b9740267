package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/persistence"
)

func newStatusCmd() *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := persistence.NewRunStore(defaultRunsDB())
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				cmd.Println("No runs recorded yet.")
				return nil
			}
			for _, run := range runs {
				cmd.Println(formatRun(run))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func formatRun(run persistence.Run) string {
	stage := run.Stage
	if run.FinishedAt == nil {
		stage = "running"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "#%-4d %s  %-8s %-6s %s", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), stage, run.Stack, trimString(run.Sentence, 48))
	if run.Rounds > 0 && !run.Converged {
		fmt.Fprintf(&b, "  repair exhausted after %d rounds", run.Rounds)
	}
	if run.SiteURL != "" {
		fmt.Fprintf(&b, "  %s", run.SiteURL)
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "  error: %s", trimString(run.Error, 60))
	}
	return b.String()
}
