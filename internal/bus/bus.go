package bus

import "github.com/basket/ralph/internal/hat"

// Bus is the event-driven scheduler: a hat registry plus a per-hat FIFO
// queue of pending events. Every hat id with a queue exists in the
// registry; queues are disjoint — an event instance appears in each
// recipient's queue at most once.
type Bus struct {
	registry            *hat.Registry
	pending             map[hat.ID][]Event
	coordinatorPriority bool
}

// New creates a Bus with the coordinator hat already registered and its
// queue initialized. coordinatorPriority mirrors the
// event_loop.coordinator_priority config flag (§4.2).
func New(coordinatorPriority bool) *Bus {
	b := &Bus{
		registry:            hat.NewRegistry(),
		pending:             make(map[hat.ID][]Event),
		coordinatorPriority: coordinatorPriority,
	}
	b.pending[hat.Coordinator] = nil
	return b
}

// Registry exposes the underlying hat registry for prompt building.
func (b *Bus) Registry() *hat.Registry { return b.registry }

// Register inserts a hat into the registry and initializes its queue. A
// duplicate id (including re-registering the coordinator) is a
// configuration error.
func (b *Bus) Register(h hat.Hat) error {
	if err := b.registry.Register(h); err != nil {
		return err
	}
	b.pending[h.ID] = nil
	return nil
}

// Publish routes an event and returns the ids that received it.
//
// Routing rules, evaluated in order:
//  1. If event.Target is set: deliver only to that hat if it exists
//     (bypassing subscription checks and the no-self rule); otherwise drop.
//  2. Otherwise, for each registered hat in registration order, skip the
//     event's own source (no self-delivery); deliver to every hat whose
//     subscriptions match the event's topic.
func (b *Bus) Publish(e Event) []hat.ID {
	if e.HasTarget() {
		if _, ok := b.registry.Get(e.Target); ok {
			b.pending[e.Target] = append(b.pending[e.Target], e)
			return []hat.ID{e.Target}
		}
		return nil
	}

	var recipients []hat.ID
	for _, id := range b.registry.OrderedIDs() {
		if e.HasSource() && e.Source == id {
			continue
		}
		h, _ := b.registry.Get(id)
		if h.IsSubscribed(e.Topic) {
			b.pending[id] = append(b.pending[id], e)
			recipients = append(recipients, id)
		}
	}
	return recipients
}

// TakePending atomically removes and returns the entire FIFO queue for a
// hat, in publish order.
func (b *Bus) TakePending(id hat.ID) []Event {
	events := b.pending[id]
	b.pending[id] = nil
	return events
}

// HasPending reports whether any hat has a non-empty queue.
func (b *Bus) HasPending() bool {
	for _, events := range b.pending {
		if len(events) > 0 {
			return true
		}
	}
	return false
}

// NextHatWithPending selects a hat with a non-empty queue.
//
// Among hats with non-empty queues, the coordinator is chosen iff it is the
// only one with pending events, or iff coordinatorPriority is set;
// otherwise selection is deterministic by registration order among the
// non-coordinator hats. The coordinator is always a valid fallback because
// it subscribes to "*".
func (b *Bus) NextHatWithPending() (hat.ID, bool) {
	var nonEmpty []hat.ID
	for _, id := range b.registry.OrderedIDs() {
		if len(b.pending[id]) > 0 {
			nonEmpty = append(nonEmpty, id)
		}
	}
	if len(nonEmpty) == 0 {
		return "", false
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0], true
	}
	if b.coordinatorPriority && len(b.pending[hat.Coordinator]) > 0 {
		return hat.Coordinator, true
	}
	for _, id := range nonEmpty {
		if id != hat.Coordinator {
			return id, true
		}
	}
	return nonEmpty[0], true
}
