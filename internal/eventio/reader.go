package eventio

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Reader tails an append-only JSONL event log, returning only the events
// appended since the previous read. It keeps no in-memory copy of the file
// between calls — only a byte offset — so it is cheap to poll every
// iteration of a long-running loop.
type Reader struct {
	path     string
	position int64
	logger   *slog.Logger
}

// NewReader creates a reader positioned at the start of path. The file need
// not exist yet; ReadNew returns no events until it does.
func NewReader(path string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{path: path, logger: logger}
}

// ReadNew reads and returns every well-formed event appended to the log
// since the last call (or since construction / the last Reset). Blank lines
// are skipped silently; a line that fails to unmarshal as a LogEvent is
// skipped with a warning logged, and reading continues with the next line —
// one corrupt line never blocks the events after it.
//
// Calling ReadNew again immediately, with nothing appended in between, is
// idempotent: it returns no events and the position does not move.
func (r *Reader) ReadNew() ([]LogEvent, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(r.position, io.SeekStart); err != nil {
		return nil, err
	}

	var events []LogEvent
	pos := r.position
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		pos += int64(len(line)) + 1 // +1 for the newline the scanner stripped

		if strings.TrimSpace(line) == "" {
			continue
		}

		var ev LogEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			r.logger.Warn("skipping corrupt event log line", "error", err, "line", line)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	r.position = pos
	return events, nil
}

// Position returns the current byte offset into the log.
func (r *Reader) Position() int64 { return r.position }

// Reset rewinds the reader to the beginning of the log.
func (r *Reader) Reset() { r.position = 0 }
