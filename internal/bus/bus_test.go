package bus

import (
	"testing"

	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/topic"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New(false)
	if err := b.Register(hat.Hat{ID: "impl", Subscriptions: []topic.Pattern{"task.*"}}); err != nil {
		t.Fatalf("register impl: %v", err)
	}
	if err := b.Register(hat.Hat{ID: "review", Subscriptions: []topic.Pattern{"impl.done"}}); err != nil {
		t.Fatalf("register review: %v", err)
	}
	return b
}

func TestPublish_DeliversToMatchingSubscriber(t *testing.T) {
	b := newTestBus(t)
	recipients := b.Publish(Event{Topic: "task.start"})
	if len(recipients) != 1 || recipients[0] != "impl" {
		t.Fatalf("recipients = %v, want [impl]", recipients)
	}
	pending := b.TakePending("impl")
	if len(pending) != 1 {
		t.Fatalf("impl pending = %d, want 1", len(pending))
	}
}

func TestPublish_NoMatchingSubscriberDropsEvent(t *testing.T) {
	b := newTestBus(t)
	// "ralph" (coordinator) subscribes to "*" so it always matches; verify
	// a non-matching hat receives nothing while the coordinator still does.
	b.Publish(Event{Topic: "unrelated.thing"})
	if len(b.TakePending("impl")) != 0 {
		t.Error("impl should not have received unrelated.thing")
	}
	if len(b.TakePending("review")) != 0 {
		t.Error("review should not have received unrelated.thing")
	}
	if len(b.TakePending(hat.Coordinator)) != 1 {
		t.Error("coordinator should receive every topic via its wildcard subscription")
	}
}

func TestPublish_DirectTargetBypassesSubscriptionMatching(t *testing.T) {
	b := newTestBus(t)
	recipients := b.Publish(Event{Topic: "unrelated.thing", Target: "review"})
	if len(recipients) != 1 || recipients[0] != "review" {
		t.Fatalf("recipients = %v, want [review]", recipients)
	}
	if len(b.TakePending("review")) != 1 {
		t.Error("review should have received the directly targeted event despite no subscription match")
	}
}

func TestPublish_DirectTargetBypassesNoSelfRule(t *testing.T) {
	b := newTestBus(t)
	recipients := b.Publish(Event{Topic: "task.start", Source: "impl", Target: "impl"})
	if len(recipients) != 1 || recipients[0] != "impl" {
		t.Fatalf("recipients = %v, want [impl] (direct target overrides no-self rule)", recipients)
	}
	if len(b.TakePending("impl")) != 1 {
		t.Error("impl should receive its own directly targeted event")
	}
}

func TestPublish_DirectTargetToUnknownHatIsDropped(t *testing.T) {
	b := newTestBus(t)
	recipients := b.Publish(Event{Topic: "task.start", Target: "ghost"})
	if recipients != nil {
		t.Fatalf("recipients = %v, want nil", recipients)
	}
}

func TestPublish_NoSelfRouting(t *testing.T) {
	b := newTestBus(t)
	// impl publishes a topic that would otherwise match its own subscription.
	recipients := b.Publish(Event{Topic: "task.followup", Source: "impl"})
	for _, id := range recipients {
		if id == "impl" {
			t.Fatal("impl should never receive its own published event")
		}
	}
	if len(b.TakePending("impl")) != 0 {
		t.Error("impl's queue should be empty after publishing its own event")
	}
}

func TestTakePending_DrainsFIFOAndClears(t *testing.T) {
	b := newTestBus(t)
	b.Publish(Event{Topic: "task.a"})
	b.Publish(Event{Topic: "task.b"})
	events := b.TakePending("impl")
	if len(events) != 2 || events[0].Topic != "task.a" || events[1].Topic != "task.b" {
		t.Fatalf("events = %v, want [task.a task.b] in order", events)
	}
	if len(b.TakePending("impl")) != 0 {
		t.Error("second TakePending should return nothing, queue was drained")
	}
}

func TestNextHatWithPending_EmptyBusReturnsFalse(t *testing.T) {
	b := newTestBus(t)
	if _, ok := b.NextHatWithPending(); ok {
		t.Error("expected no hat with pending events")
	}
}

func TestNextHatWithPending_CoordinatorOnlyRegistryRoutesEverything(t *testing.T) {
	b := New(false)
	b.Publish(Event{Topic: "anything.at.all"})
	id, ok := b.NextHatWithPending()
	if !ok || id != hat.Coordinator {
		t.Fatalf("NextHatWithPending() = (%q, %v), want (%q, true)", id, ok, hat.Coordinator)
	}
}

func TestNextHatWithPending_CoordinatorChosenWhenOnlyOneWithPending(t *testing.T) {
	b := newTestBus(t)
	b.Publish(Event{Topic: "anything.at.all"}) // only matches the coordinator's "*"
	id, ok := b.NextHatWithPending()
	if !ok || id != hat.Coordinator {
		t.Fatalf("NextHatWithPending() = (%q, %v), want (%q, true)", id, ok, hat.Coordinator)
	}
}

func TestNextHatWithPending_NonCoordinatorPreferredByRegistrationOrder(t *testing.T) {
	b := newTestBus(t)
	// Matches coordinator (wildcard) and impl (task.*): two hats have pending.
	b.Publish(Event{Topic: "task.start"})
	id, ok := b.NextHatWithPending()
	if !ok || id != "impl" {
		t.Fatalf("NextHatWithPending() = (%q, %v), want (\"impl\", true)", id, ok)
	}
}

func TestNextHatWithPending_CoordinatorPriorityFlag(t *testing.T) {
	b := New(true)
	_ = b.Register(hat.Hat{ID: "impl", Subscriptions: []topic.Pattern{"task.*"}})
	b.Publish(Event{Topic: "task.start"})
	id, ok := b.NextHatWithPending()
	if !ok || id != hat.Coordinator {
		t.Fatalf("NextHatWithPending() = (%q, %v), want (%q, true) with coordinator_priority set", id, ok, hat.Coordinator)
	}
}

func TestRegister_DuplicateHatIDFails(t *testing.T) {
	b := newTestBus(t)
	if err := b.Register(hat.Hat{ID: "impl"}); err == nil {
		t.Error("expected duplicate id error re-registering impl")
	}
}
