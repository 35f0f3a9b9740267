package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
)

func newPlanCmd() *cobra.Command {
	var output string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan [stage]",
		Short: "Show saved stage plans from a workspace",
		Long: "Without arguments, plan lists which stages have a saved plan and how\n" +
			"far each got. With a stage name (scope, build, test, document, deploy)\n" +
			"it prints that plan's todos.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.OutputDir
			}
			dir := config.ExpandPath(output)
			plans := persistence.NewPlanDir(dir)

			if len(args) == 0 {
				requirements, err := persistence.NewRequirementsFile(dir).Load()
				if err != nil {
					return err
				}
				if name, ok := requirements["app_name"].(string); ok && name != "" {
					cmd.Printf("App: %s\n", name)
				}
				saved := plans.Saved()
				if len(saved) == 0 {
					cmd.Printf("No plans saved in %s.\n", output)
					return nil
				}
				for _, stage := range saved {
					todos, err := plans.Load(stage)
					if err != nil {
						return err
					}
					done := 0
					for _, todo := range todos {
						if todo.Status == pipeline.TodoCompleted {
							done++
						}
					}
					cmd.Printf("%-10s %d/%d todos completed\n", stage, done, len(todos))
				}
				return nil
			}

			stage, err := pipeline.ParseStage(args[0])
			if err != nil {
				return err
			}
			todos, err := plans.Load(stage)
			if err != nil {
				return err
			}
			if todos == nil {
				return fmt.Errorf("no %s plan saved in %s", stage, output)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(todos)
			}
			for _, todo := range todos {
				mark := " "
				if todo.Status == pipeline.TodoCompleted {
					mark = "x"
				}
				cmd.Printf("[%s] %d. %s\n", mark, todo.ID, todo.Title)
				if todo.Description != "" {
					cmd.Printf("      %s\n", todo.Description)
				}
				for _, criterion := range todo.AcceptanceCriteria {
					cmd.Printf("      - %s\n", criterion)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Workspace directory (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}
