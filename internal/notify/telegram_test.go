package notify

import (
	"testing"
	"time"
)

func TestNewTelegram_EmptyTokenIsNoop(t *testing.T) {
	n, err := NewTelegram("", []int64{123}, nil)
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	if err := n.Notify("hello"); err != nil {
		t.Errorf("Notify on a disabled notifier should return nil, got %v", err)
	}
}

func TestTelegram_Name(t *testing.T) {
	n, _ := NewTelegram("", nil, nil)
	if n.Name() != "telegram" {
		t.Errorf("Name() = %q, want telegram", n.Name())
	}
}

func TestTerminationMessage(t *testing.T) {
	got := TerminationMessage("completion_promise", 7, 0, 90*time.Second)
	want := "ralph run ended: completion_promise (iteration 7, elapsed 1m30s)"
	if got != want {
		t.Errorf("TerminationMessage = %q, want %q", got, want)
	}
}

func TestTerminationMessage_IncludesNonZeroCost(t *testing.T) {
	got := TerminationMessage("max_cost", 3, 2.5, 45*time.Second)
	want := "ralph run ended: max_cost (iteration 3, elapsed 45s), cost $2.5000"
	if got != want {
		t.Errorf("TerminationMessage = %q, want %q", got, want)
	}
}

func TestAlertMessage(t *testing.T) {
	got := AlertMessage("reviewer", "tests are flaky")
	want := "ralph alert from reviewer: tests are flaky"
	if got != want {
		t.Errorf("AlertMessage = %q, want %q", got, want)
	}
}
