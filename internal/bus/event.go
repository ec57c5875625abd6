// Package bus implements the event-driven scheduler: per-hat pending-event
// queues, publish routing (direct-target override, no-self-routing,
// subscription matching), and deterministic next-ready selection.
package bus

import (
	"time"

	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/topic"
)

// Event is an immutable value produced by parsing agent output or by a
// seed/handoff call. Once constructed it is never mutated; it is moved from
// the parser to the bus to a hat's queue.
type Event struct {
	Topic   topic.Topic
	Payload string
	Source  hat.ID // empty if unset
	Target  hat.ID // empty if unset
	TS      time.Time
}

// HasSource reports whether the event carries a source hat id.
func (e Event) HasSource() bool { return e.Source != "" }

// HasTarget reports whether the event carries a direct target hat id.
func (e Event) HasTarget() bool { return e.Target != "" }
