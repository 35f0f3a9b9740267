package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/weblurp/config"
	"github.com/lexcodex/weblurp/workspace"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit weblurp settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			masked := *cfg
			masked.APIKey = previewSecret(masked.APIKey)
			masked.GitHubToken = previewSecret(masked.GitHubToken)
			body, err := yaml.Marshal(&masked)
			if err != nil {
				return err
			}
			cmd.Printf("# %s\n%s", configPath(), body)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one value and save the file",
		Long: "Keys match the file fields: provider, api_key, model_id,\n" +
			"github_username, github_token, github_repo, output_dir, stack.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			path := configPath()
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			cmd.Printf("Saved %s\n", path)
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}

	configCmd.AddCommand(showCmd, setCmd, initCmd)
	return configCmd
}

func configPath() string {
	if flagConfig != "" {
		return config.ExpandPath(flagConfig)
	}
	return config.DefaultPath()
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "api_key":
		cfg.APIKey = value
	case "model_id":
		cfg.ModelID = value
	case "github_username":
		cfg.GitHubUsername = value
	case "github_token":
		cfg.GitHubToken = value
	case "github_repo":
		cfg.GitHubRepo = value
	case "output_dir":
		cfg.OutputDir = value
	case "stack":
		if _, err := workspace.ParseStack(value); err != nil {
			return err
		}
		cfg.Stack = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// previewSecret shows enough of a credential to recognize which one is set.
func previewSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "..."
	}
	return s[:10] + "..."
}
