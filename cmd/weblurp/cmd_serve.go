package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/internal/logging"
	"github.com/lexcodex/weblurp/persistence"
	"github.com/lexcodex/weblurp/pipeline"
	"github.com/lexcodex/weblurp/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	var stdio bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generation and run history over HTTP or stdio JSON-RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("server")
			runs, err := persistence.NewRunStore(defaultRunsDB())
			if err != nil {
				return err
			}
			defer runs.Close()

			// Config is re-read per request so a saved change takes effect
			// without restarting the server.
			runner := server.RunnerFunc(func(ctx context.Context, req server.GenerateRequest) (*pipeline.Result, error) {
				cfg, err := config.Load(flagConfig)
				if err != nil {
					return nil, err
				}
				g, err := newGeneration(cfg, req.Stack, req.OutputDir, nil, nil)
				if err != nil {
					return nil, err
				}
				g.runs = runs
				return g.Run(ctx, req.Sentence)
			})

			if stdio {
				rpc := &server.RPCServer{Runner: runner, History: runs, Log: log}
				return rpc.ServeStdio(cmd.Context())
			}
			api := &server.APIServer{Runner: runner, History: runs, Log: log, RunTimeout: timeout}
			cmd.Printf("weblurp API listening on %s\n", addr)
			return api.ServeContext(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOrDefault("WEBLURP_ADDR", ":8080"), "HTTP listen address")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Speak JSON-RPC over stdin/stdout instead of HTTP")
	cmd.Flags().DurationVar(&timeout, "run-timeout", 15*time.Minute, "Per-request generation timeout")
	return cmd
}
