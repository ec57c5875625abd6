// Package executor runs an agent backend as a subprocess and adapts its
// exit status and output into the looprun.Executor contract. It never
// imports internal/looprun: the dependency runs the other way, through the
// interface looprun declares.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/basket/ralph/internal/shared"
)

// PromptMode selects how the prompt text reaches the backend process.
type PromptMode string

const (
	// PromptModeArg appends the prompt as the final argv entry.
	PromptModeArg PromptMode = "arg"
	// PromptModeStdin writes the prompt to the child's stdin and closes it.
	PromptModeStdin PromptMode = "stdin"
)

// Config names the backend command and how the prompt is delivered to it.
type Config struct {
	// Backend is a known name ("claude", "gemini", "codex", "amp") or
	// "custom", in which case Command must be set explicitly.
	Backend string
	// Command overrides the resolved backend binary; if empty, Backend is
	// looked up in knownBackends.
	Command string
	Args    []string
	Mode    PromptMode
}

var knownBackends = map[string]string{
	"claude": "claude",
	"gemini": "gemini",
	"codex":  "codex",
	"amp":    "amp",
}

// resolveCommand returns the binary to invoke for cfg.
func resolveCommand(cfg Config) (string, error) {
	if cfg.Command != "" {
		return cfg.Command, nil
	}
	if bin, ok := knownBackends[cfg.Backend]; ok {
		return bin, nil
	}
	return "", fmt.Errorf("executor: unknown backend %q and no explicit command set", cfg.Backend)
}

// costPatterns extract a best-effort dollar cost from an agent backend's
// combined output. Each backend prints its own summary line; unrecognized
// output yields a nil cost rather than an error.
var costPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total cost:\s*\$([0-9]+\.[0-9]+)`),
	regexp.MustCompile(`(?i)cost_usd["':=\s]+([0-9]+\.[0-9]+)`),
}

func parseCost(output string) *float64 {
	for _, pat := range costPatterns {
		m := pat.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// CLIExecutor runs the configured backend as a subprocess for each
// iteration's prompt.
type CLIExecutor struct {
	cfg Config
}

// New builds a CLIExecutor from cfg.
func New(cfg Config) *CLIExecutor {
	if cfg.Mode == "" {
		cfg.Mode = PromptModeArg
	}
	return &CLIExecutor{cfg: cfg}
}

// Execute runs the backend once with prompt and returns its combined
// output. A non-zero exit sets Success=false; the error return is reserved
// for failures to even launch the backend (unknown binary, spawn error).
func (e *CLIExecutor) Execute(ctx context.Context, prompt string) (ExecutionResult, error) {
	bin, err := resolveCommand(e.cfg)
	if err != nil {
		return ExecutionResult{}, err
	}

	args := append([]string{}, e.cfg.Args...)
	if e.cfg.Mode == PromptModeArg {
		args = append(args, prompt)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if e.cfg.Mode == PromptModeStdin {
		cmd.Stdin = strings.NewReader(prompt)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	output := shared.Redact(combined.String())

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); ok {
			return ExecutionResult{Output: output, Success: false}, nil
		}
		return ExecutionResult{}, fmt.Errorf("executor: spawn %s: %w", bin, runErr)
	}

	return ExecutionResult{Output: output, Success: true, Cost: parseCost(output)}, nil
}

// ExecutionResult mirrors looprun.ExecutionResult's shape. Go interface
// satisfaction is nominal, not structural, so cmd/ralph wraps a CLIExecutor
// in a small adapter that converts this type to looprun.ExecutionResult
// rather than this package importing looprun directly.
type ExecutionResult struct {
	Output  string
	Success bool
	Cost    *float64
}
