package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/internal/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagDebug    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weblurp",
		Short:         "Generate and publish a static web app from one sentence",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.ParseLevel(flagLogLevel), "text", cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", envOrDefault("WEBLURP_CONFIG", ""), "Config file (default ~/.weblurp/config.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOrDefault("WEBLURP_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log prompt and response previews")

	root.AddCommand(newGenerateCmd(), newStudioCmd(), newStatusCmd(), newPlanCmd(), newServeCmd(), newConfigCmd())
	return root
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// defaultRunsDB keeps run history next to the config file, shared across
// workspaces.
func defaultRunsDB() string {
	return filepath.Join(filepath.Dir(config.DefaultPath()), "runs.db")
}
