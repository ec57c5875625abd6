// Package doctor runs a small battery of startup checks so an operator can
// tell why a run won't start before the event loop itself does.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/basket/ralph/internal/config"
)

// CheckResult is the outcome of one diagnostic check.
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "PASS", "FAIL", "WARN", "SKIP"
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Diagnosis bundles every check result from one Run.
type Diagnosis struct {
	Timestamp time.Time     `json:"timestamp"`
	System    SystemInfo    `json:"system"`
	Results   []CheckResult `json:"results"`
}

// SystemInfo identifies the platform the checks ran on.
type SystemInfo struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Go      string `json:"go_version"`
	Version string `json:"version"`
}

// Run executes every diagnostic check against cfg and the on-disk state at
// configPath.
func Run(ctx context.Context, cfg config.Config, configPath, version string) Diagnosis {
	d := Diagnosis{
		Timestamp: time.Now().UTC(),
		System: SystemInfo{
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Go:      runtime.Version(),
			Version: version,
		},
	}

	d.Results = append(d.Results,
		checkConfig(configPath),
		checkBackend(cfg),
		checkEventLogDir(cfg),
		checkGit(ctx, cfg),
	)
	return d
}

func checkConfig(configPath string) CheckResult {
	if _, err := os.Stat(configPath); err != nil {
		return CheckResult{
			Name:    "Config",
			Status:  "WARN",
			Message: fmt.Sprintf("%s not found, using defaults", configPath),
		}
	}
	if _, err := config.Load(configPath); err != nil {
		return CheckResult{Name: "Config", Status: "FAIL", Message: fmt.Sprintf("failed to parse %s", configPath), Detail: err.Error()}
	}
	return CheckResult{Name: "Config", Status: "PASS", Message: fmt.Sprintf("loaded from %s", configPath)}
}

func checkBackend(cfg config.Config) CheckResult {
	if cfg.CLI.Command != "" {
		if _, err := exec.LookPath(cfg.CLI.Command); err != nil {
			return CheckResult{
				Name:    "CLI backend",
				Status:  "FAIL",
				Message: fmt.Sprintf("configured command %q not found on PATH", cfg.CLI.Command),
			}
		}
		return CheckResult{Name: "CLI backend", Status: "PASS", Message: fmt.Sprintf("%q resolved on PATH", cfg.CLI.Command)}
	}

	known := map[string]bool{"claude": true, "gemini": true, "codex": true, "amp": true}
	if !known[cfg.CLI.Backend] {
		return CheckResult{
			Name:    "CLI backend",
			Status:  "FAIL",
			Message: fmt.Sprintf("backend %q is unknown and no explicit cli.command is set", cfg.CLI.Backend),
		}
	}
	if _, err := exec.LookPath(cfg.CLI.Backend); err != nil {
		return CheckResult{
			Name:    "CLI backend",
			Status:  "WARN",
			Message: fmt.Sprintf("backend %q not found on PATH yet", cfg.CLI.Backend),
		}
	}
	return CheckResult{Name: "CLI backend", Status: "PASS", Message: fmt.Sprintf("backend %q resolved on PATH", cfg.CLI.Backend)}
}

func checkEventLogDir(cfg config.Config) CheckResult {
	dir := filepath.Dir(cfg.Core.EventsFile)
	if dir == "." {
		return CheckResult{Name: "Event log directory", Status: "PASS", Message: "using the working directory"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{Name: "Event log directory", Status: "FAIL", Message: fmt.Sprintf("cannot create %s", dir), Detail: err.Error()}
	}
	probe := filepath.Join(dir, ".doctor_write_test")
	if err := os.WriteFile(probe, []byte("x"), 0o600); err != nil {
		return CheckResult{Name: "Event log directory", Status: "FAIL", Message: fmt.Sprintf("%s is not writable", dir), Detail: err.Error()}
	}
	_ = os.Remove(probe)
	return CheckResult{Name: "Event log directory", Status: "PASS", Message: fmt.Sprintf("%s is writable", dir)}
}

func checkGit(ctx context.Context, cfg config.Config) CheckResult {
	if cfg.EventLoop.CheckpointInterval == 0 {
		return CheckResult{Name: "Git", Status: "SKIP", Message: "checkpoints disabled"}
	}
	if _, err := exec.LookPath("git"); err != nil {
		return CheckResult{Name: "Git", Status: "FAIL", Message: "git not found on PATH but checkpoints are enabled"}
	}
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	if err := cmd.Run(); err != nil {
		return CheckResult{Name: "Git", Status: "WARN", Message: "git is installed but the working directory is not a repository"}
	}
	return CheckResult{Name: "Git", Status: "PASS", Message: "git available and working directory is a repository"}
}
