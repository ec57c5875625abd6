// Package hat defines personas ("hats") that tell the external agent how to
// behave for a given iteration, and the registry that looks them up.
package hat

import "github.com/basket/ralph/internal/topic"

// ID is an opaque identifier for a hat, unique within a run.
type ID string

// Coordinator is the well-known id of the distinguished coordinator hat,
// always registered and always a universal fallback subscriber.
const Coordinator ID = "ralph"

// Hat is a named persona: its subscriptions, the topics it may publish, and
// the instruction text prepended to its prompts.
type Hat struct {
	ID            ID
	Name          string
	Subscriptions []topic.Pattern
	Publishes     []topic.Topic
	Instructions  string
}

// NewCoordinator builds the always-present coordinator hat. It subscribes to
// every topic so it is always a valid routing fallback.
func NewCoordinator() Hat {
	return Hat{
		ID:            Coordinator,
		Name:          "Ralph",
		Subscriptions: []topic.Pattern{"*"},
	}
}

// IsSubscribed reports whether h subscribes to t via any of its patterns.
func (h Hat) IsSubscribed(t topic.Topic) bool {
	for _, p := range h.Subscriptions {
		if p.Matches(t) {
			return true
		}
	}
	return false
}
