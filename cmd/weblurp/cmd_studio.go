package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/config"
)

func newStudioCmd() *cobra.Command {
	var stack string
	var output string
	var repo string
	cmd := &cobra.Command{
		Use:   "studio [sentence]",
		Short: "Run the pipeline in an interactive terminal UI",
		Long: "Studio runs the same pipeline as generate inside a terminal UI: live\n" +
			"stage progress, the build plan, and the event feed. Requirements drafts\n" +
			"are shown for approval or feedback before the build starts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if repo != "" {
				cfg.GitHubRepo = repo
			}
			model := newStudioModel(cfg, stack, output, strings.Join(args, " "))
			program := tea.NewProgram(model, tea.WithContext(cmd.Context()), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&stack, "stack", "", "Web stack, basic or react (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository, name or owner/name")
	return cmd
}
