// Package audit appends one JSON line per loop termination decision and
// checkpoint attempt to an append-only log, for after-the-fact inspection.
// It is never read back by the loop itself.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/basket/ralph/internal/shared"
)

type entry struct {
	Timestamp      string  `json:"timestamp"`
	Event          string  `json:"event"` // "termination" | "checkpoint"
	Reason         string  `json:"reason"`
	Iteration      uint32  `json:"iteration"`
	CumulativeCost float64 `json:"cumulative_cost,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}

var (
	mu   sync.Mutex
	file *os.File
)

// Init opens (creating if needed) <homeDir>/logs/audit.jsonl for appending.
func Init(homeDir string) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		return nil
	}
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	return nil
}

// Close closes the audit file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// RecordTermination appends a record of why a run ended, matching
// spec.md §7's required user-visible termination output: reason, final
// iteration count, cumulative cost, and elapsed wall time.
func RecordTermination(reason string, iteration uint32, cumulativeCost float64, elapsed time.Duration) {
	record(entry{
		Event:          "termination",
		Reason:         reason,
		Iteration:      iteration,
		CumulativeCost: cumulativeCost,
		ElapsedSeconds: elapsed.Seconds(),
	})
}

// RecordCheckpoint appends a record of one checkpoint attempt. detail holds
// the checkpoint hook's error text when success is false.
func RecordCheckpoint(iteration uint32, success bool, detail string) {
	reason := "ok"
	if !success {
		reason = "failed"
	}
	record(entry{Event: "checkpoint", Reason: reason, Iteration: iteration, Detail: shared.Redact(detail)})
}

func record(e entry) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = file.Write(append(b, '\n'))
}
