package eventio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppend_WritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	w := NewWriter(path)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := w.Append([]LogEvent{
		{Topic: "build.done", Payload: "ok", Source: "ralph", TS: ts},
		{Topic: "build.failed", TS: ts},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Topic != "build.done" || events[0].Payload != "ok" || events[0].Source != "ralph" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Topic != "build.failed" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestAppend_EmptySliceIsNoopAndCreatesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w := NewWriter(path)

	if err := w.Append(nil); err != nil {
		t.Fatalf("Append(nil): %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file to be created, stat err = %v", err)
	}
}

func TestAppend_AccumulatesAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w := NewWriter(path)

	if err := w.Append([]LogEvent{{Topic: "first"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append([]LogEvent{{Topic: "second"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 2 || events[0].Topic != "first" || events[1].Topic != "second" {
		t.Fatalf("events = %+v, want [first second]", events)
	}
}
