package eventio

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Writer appends LogEvents to the durable JSONL event log that Reader tails
// back in. Like Reader, it holds no file handle across calls — the log is
// opened, appended to, and closed once per call, since the core never
// contends with the agent subprocess over the file.
type Writer struct {
	path string
}

// NewWriter creates a writer for the event log at path. The parent
// directory is created lazily on the first Append, not here.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append writes each event as one JSON line, in order, creating the log and
// its parent directory if they do not yet exist. A nil or empty events
// slice is a no-op that never touches the filesystem.
func (w *Writer) Append(events []LogEvent) error {
	if len(events) == 0 {
		return nil
	}
	if dir := filepath.Dir(w.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}
