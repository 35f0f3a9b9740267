// Package config loads and saves the generator settings. Values resolve in
// the order environment, config file, built-in default, so a CI run can
// override a saved config without touching it.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o"
	defaultOutputDir      = "./generated_webapp"
)

// Config matches ~/.weblurp/config.yaml.
type Config struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	ModelID        string `yaml:"model_id"`
	GitHubUsername string `yaml:"github_username"`
	GitHubToken    string `yaml:"github_token"`
	GitHubRepo     string `yaml:"github_repo"`
	OutputDir      string `yaml:"output_dir"`
	Stack          string `yaml:"stack"`
}

// DefaultPath returns ~/.weblurp/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".weblurp", "config.yaml")
}

// Load reads the config at path (DefaultPath when empty), fills defaults,
// and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := &Config{}
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to path (DefaultPath when empty).
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnv layers the environment over whatever the file carried. The key
// variable is provider-specific, so it resolves after the provider.
func (c *Config) applyEnv() {
	c.Provider = envOr("AI_PROVIDER", c.Provider)
	c.ModelID = envOr("MODEL_ID", c.ModelID)
	c.GitHubUsername = envOr("GITHUB_USERNAME", c.GitHubUsername)
	c.GitHubToken = envOr("GITHUB_TOKEN", c.GitHubToken)
	c.GitHubRepo = envOr("GITHUB_REPO", c.GitHubRepo)
	c.OutputDir = envOr("OUTPUT_DIR", c.OutputDir)
	c.Stack = envOr("WEBAPP_STACK", c.Stack)
}

// normalize folds the provider and stack tokens and fills the per-provider
// model and key defaults. Any provider other than openai means anthropic.
func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	keyEnv := "ANTHROPIC_API_KEY"
	defaultModel := defaultAnthropicModel
	if c.Provider == ProviderOpenAI {
		keyEnv = "OPENAI_API_KEY"
		defaultModel = defaultOpenAIModel
	} else {
		c.Provider = ProviderAnthropic
	}
	c.APIKey = envOr(keyEnv, c.APIKey)
	if c.ModelID == "" {
		c.ModelID = defaultModel
	}
	c.Stack = strings.ToLower(strings.TrimSpace(c.Stack))
	if c.Stack == "" {
		c.Stack = "basic"
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	c.OutputDir = ExpandPath(c.OutputDir)
}

// ExpandPath resolves a leading ~ against the home directory and leaves
// everything else alone.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
