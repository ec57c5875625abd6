// Package checkpoint commits the working tree at configured iteration
// intervals so a run's progress can be inspected or rolled back step by
// step.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// GitHook runs `git add -A` followed by `git commit --allow-empty` at each
// checkpoint. Failures are logged, never returned, so a dirty working tree
// or a nothing-to-commit commit never aborts the run.
type GitHook struct {
	dir    string
	logger *slog.Logger
}

// NewGitHook builds a GitHook that commits the repository rooted at dir
// (empty means the process's current working directory).
func NewGitHook(dir string, logger *slog.Logger) *GitHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHook{dir: dir, logger: logger}
}

// Checkpoint stages all changes and commits them, tagging the message with
// iteration. It never returns an error: the loop logs and continues either
// way, matching the original tool's checkpoint behavior.
func (h *GitHook) Checkpoint(ctx context.Context, iteration uint32) error {
	h.logger.Info("creating checkpoint", "iteration", iteration)

	add := exec.CommandContext(ctx, "git", "add", "-A")
	add.Dir = h.dir
	if err := add.Run(); err != nil {
		h.logger.Warn("git add failed", "error", err)
		return nil
	}

	message := fmt.Sprintf("ralph: checkpoint at iteration %d", iteration)
	commit := exec.CommandContext(ctx, "git", "commit", "-m", message, "--allow-empty")
	commit.Dir = h.dir
	if err := commit.Run(); err != nil {
		h.logger.Warn("git commit failed (may be nothing to commit)", "error", err)
	}

	return nil
}
