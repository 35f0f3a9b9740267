// Package deploy holds the publishing primitives: a git runner bound to the
// workspace, a GitHub API client for repository and Pages management, and
// the polling helper that waits for a site to come up. The pipeline's deploy
// stage composes these; nothing here knows about stages or plans.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// GitRunner executes git commands against one repository directory.
type GitRunner struct {
	dir string
	log *slog.Logger
}

func NewGitRunner(dir string, log *slog.Logger) *GitRunner {
	return &GitRunner{dir: dir, log: log}
}

func (g *GitRunner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (g *GitRunner) Init(ctx context.Context) error {
	_, err := g.run(ctx, "init")
	return err
}

func (g *GitRunner) AddAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// Commit creates a commit with message. An empty tree makes git exit
// non-zero; callers treat that as survivable.
func (g *GitRunner) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

func (g *GitRunner) BranchMain(ctx context.Context) error {
	_, err := g.run(ctx, "branch", "-M", "main")
	return err
}

// SetRemote points name at url, adding the remote when absent and rewriting
// it when a previous run already configured one.
func (g *GitRunner) SetRemote(ctx context.Context, name, url string) error {
	out, err := g.run(ctx, "remote")
	if err != nil {
		return err
	}
	for _, existing := range strings.Fields(out) {
		if existing == name {
			_, err := g.run(ctx, "remote", "set-url", name, url)
			return err
		}
	}
	_, err = g.run(ctx, "remote", "add", name, url)
	return err
}

// Push uploads branch to remote with upstream tracking. There is no force
// variant: a publish must never rewrite remote history.
func (g *GitRunner) Push(ctx context.Context, remote, branch string) error {
	_, err := g.run(ctx, "push", "-u", remote, branch)
	return err
}
