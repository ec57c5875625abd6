package hat

import (
	"testing"

	"github.com/basket/ralph/internal/topic"
)

func TestNewRegistry_InstallsCoordinator(t *testing.T) {
	r := NewRegistry()
	h, ok := r.Get(Coordinator)
	if !ok {
		t.Fatal("coordinator not registered")
	}
	if h.ID != Coordinator {
		t.Errorf("coordinator id = %q, want %q", h.ID, Coordinator)
	}
	if r.NonCoordinatorCount() != 0 {
		t.Errorf("NonCoordinatorCount = %d, want 0", r.NonCoordinatorCount())
	}
}

func TestRegister_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	impl := Hat{ID: "impl", Name: "Implementer"}
	if err := r.Register(impl); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(impl)
	var dup *DuplicateIDError
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	if !isDuplicateIDError(err, &dup) {
		t.Errorf("error = %v, want *DuplicateIDError", err)
	}
}

func isDuplicateIDError(err error, target **DuplicateIDError) bool {
	d, ok := err.(*DuplicateIDError)
	if ok {
		*target = d
	}
	return ok
}

func TestRegister_CoordinatorIDRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Hat{ID: Coordinator}); err == nil {
		t.Error("re-registering the coordinator id should fail")
	}
}

func TestRegistry_OrderedIDs_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Hat{ID: "b"})
	_ = r.Register(Hat{ID: "a"})
	_ = r.Register(Hat{ID: "c"})

	got := r.OrderedIDs()
	want := []ID{Coordinator, "b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("len(OrderedIDs()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OrderedIDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHat_IsSubscribed(t *testing.T) {
	h := Hat{
		ID:            "impl",
		Subscriptions: []topic.Pattern{"impl.*", "task.start"},
	}
	if !h.IsSubscribed(topic.Topic("impl.done")) {
		t.Error("should be subscribed to impl.done via impl.*")
	}
	if !h.IsSubscribed(topic.Topic("task.start")) {
		t.Error("should be subscribed to task.start")
	}
	if h.IsSubscribed(topic.Topic("review.done")) {
		t.Error("should not be subscribed to review.done")
	}
}
