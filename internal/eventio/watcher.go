package eventio

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WriteEvent signals that the watched event log changed on disk. It carries
// no payload of its own — the loop responds by invoking Reader.ReadNew,
// which is the only thing that determines what, if anything, is new.
type WriteEvent struct {
	Path string
}

// Watcher wakes an EventLoop's select phase as soon as the event log file is
// written to, so the loop need not poll on a fixed timer between iterations.
type Watcher struct {
	path   string
	logger *slog.Logger
	events chan WriteEvent
}

// NewWatcher creates a watcher for the event log at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:   path,
		logger: logger,
		events: make(chan WriteEvent, 16),
	}
}

// Events returns the channel WriteEvents are delivered on. It is closed when
// the watcher's context is cancelled.
func (w *Watcher) Events() <-chan WriteEvent {
	return w.events
}

// Start begins watching in a background goroutine and returns once the
// underlying fsnotify watcher is armed. The event log's parent directory is
// watched rather than the file itself, since the file may not exist yet and
// editors commonly replace rather than append to watched files.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	go func() {
		defer fsw.Close()
		defer close(w.events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case w.events <- WriteEvent{Path: ev.Name}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("event log watcher error", "error", err)
			}
		}
	}()
	return nil
}
