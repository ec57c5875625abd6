package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/basket/ralph/internal/config"
	"github.com/basket/ralph/internal/doctor"
	"github.com/mattn/go-isatty"
)

const (
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiReset  = "\033[0m"
)

// colorize wraps a status label in the status's color when stdout is an
// interactive terminal; piped/redirected output (CI logs, `| tee`) stays
// plain so it greps cleanly.
func colorize(status string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return status
	}
	switch status {
	case "PASS":
		return ansiGreen + status + ansiReset
	case "WARN":
		return ansiYellow + status + ansiReset
	case "FAIL":
		return ansiRed + status + ansiReset
	default:
		return status
	}
}

func runDoctorCommand(ctx context.Context, configPath string, args []string) int {
	jsonOutput := false
	for _, arg := range args {
		if arg == "-json" || arg == "--json" {
			jsonOutput = true
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		// Continue anyway: checkConfig will surface the same failure.
	}

	diag := doctor.Run(ctx, cfg, configPath, Version)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diag); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding json: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("ralph doctor report (%s)\n", diag.Timestamp.Format(time.RFC3339))
	fmt.Printf("system: %s/%s (%s)\n", diag.System.OS, diag.System.Arch, diag.System.Go)
	fmt.Println("---")

	failCount := 0
	for _, res := range diag.Results {
		if res.Status == "FAIL" {
			failCount++
		}
		fmt.Printf("[%s] %-24s %s\n", colorize(res.Status), res.Name, res.Message)
		if res.Detail != "" {
			fmt.Printf("       %s\n", res.Detail)
		}
	}

	if failCount > 0 {
		return 1
	}
	return 0
}
