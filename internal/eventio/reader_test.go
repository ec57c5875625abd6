package eventio

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("write line: %v", err)
		}
	}
}

func TestReadNew_ReturnsAppendedEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path,
		`{"topic":"test","payload":"hello","ts":"2024-01-01T00:00:00Z"}`,
		`{"topic":"test2","ts":"2024-01-01T00:00:01Z"}`,
	)

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Topic != "test" || events[0].Payload != "hello" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Topic != "test2" || events[1].Payload != "" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestReadNew_TracksPositionAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path, `{"topic":"first","ts":"2024-01-01T00:00:00Z"}`)

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}

	writeLines(t, path, `{"topic":"second","ts":"2024-01-01T00:00:01Z"}`)

	events, err = r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 1 || events[0].Topic != "second" {
		t.Fatalf("events = %+v, want exactly [second]", events)
	}
}

func TestReadNew_MissingFileReturnsNoEvents(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "nonexistent.jsonl"), nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

func TestReadNew_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path,
		`{"topic":"good","ts":"2024-01-01T00:00:00Z"}`,
		`{corrupt json}`,
		`{"topic":"also_good","ts":"2024-01-01T00:00:01Z"}`,
	)

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Topic != "good" || events[1].Topic != "also_good" {
		t.Errorf("topics = %q, %q", events[0].Topic, events[1].Topic)
	}
}

func TestReadNew_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("create empty file: %v", err)
	}

	r := NewReader(path, nil)
	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

func TestReadNew_IdempotentWhenNothingAppended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path, `{"topic":"first","ts":"2024-01-01T00:00:00Z"}`)

	r := NewReader(path, nil)
	if _, err := r.ReadNew(); err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	pos := r.Position()

	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0 on an idempotent re-read", len(events))
	}
	if r.Position() != pos {
		t.Errorf("Position() = %d, want unchanged %d", r.Position(), pos)
	}
}

func TestReset_RewindsToStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	writeLines(t, path, `{"topic":"test","ts":"2024-01-01T00:00:00Z"}`)

	r := NewReader(path, nil)
	if _, err := r.ReadNew(); err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if r.Position() == 0 {
		t.Fatal("position should have advanced past the first read")
	}

	r.Reset()
	if r.Position() != 0 {
		t.Errorf("Position() = %d, want 0 after Reset", r.Position())
	}

	events, err := r.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1 after reset re-read", len(events))
	}
}
