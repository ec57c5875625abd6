package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesSchema(t *testing.T) {
	openTestStore(t)
}

func TestStartRun_EndRun_RecordIteration(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID := NewRunID()
	start := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, runID, start); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	cost := 0.42
	if err := store.RecordIteration(ctx, runID, 0, "implementer", true, &cost, start.Add(time.Minute)); err != nil {
		t.Fatalf("RecordIteration: %v", err)
	}
	if err := store.RecordIteration(ctx, runID, 1, "reviewer", false, nil, start.Add(2*time.Minute)); err != nil {
		t.Fatalf("RecordIteration: %v", err)
	}

	end := start.Add(5 * time.Minute)
	if err := store.EndRun(ctx, runID, end, "completion_promise"); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.RunID != runID {
		t.Errorf("RunID = %q, want %q", r.RunID, runID)
	}
	if r.TerminationReason != "completion_promise" {
		t.Errorf("TerminationReason = %q, want completion_promise", r.TerminationReason)
	}
	if r.IterationCount != 2 {
		t.Errorf("IterationCount = %d, want 2", r.IterationCount)
	}
	if r.EndedAt == nil {
		t.Fatal("expected EndedAt to be set")
	}
}

func TestRecentRuns_OrdersMostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := NewRunID()
	newer := NewRunID()
	if err := store.StartRun(ctx, older, time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.StartRun(ctx, newer, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != newer {
		t.Errorf("most recent run = %q, want %q", runs[0].RunID, newer)
	}
}

func TestNewRunID_ProducesUniqueIDs(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == b {
		t.Error("expected two distinct run IDs")
	}
}
