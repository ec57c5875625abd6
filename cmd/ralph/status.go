package main

import (
	"context"
	"fmt"
	"os"

	"github.com/basket/ralph/internal/config"
	"github.com/basket/ralph/internal/history"
)

func runStatusCommand(ctx context.Context, cfg config.Config, args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "usage: ralph status")
		return 2
	}

	if cfg.Audit.HistoryDB == "" {
		fmt.Println("run history is disabled (audit.history_db is empty)")
		return 0
	}

	store, err := history.Open(cfg.Audit.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history db: %v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read run history: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded yet")
		return 0
	}

	for _, r := range runs {
		ended := "running"
		if r.EndedAt != nil {
			ended = r.EndedAt.Format("2006-01-02T15:04:05Z")
		}
		reason := r.TerminationReason
		if reason == "" {
			reason = "-"
		}
		fmt.Printf("%s  started=%s ended=%s iterations=%d reason=%s\n",
			r.RunID, r.StartedAt.Format("2006-01-02T15:04:05Z"), ended, r.IterationCount, reason)
	}
	return 0
}
