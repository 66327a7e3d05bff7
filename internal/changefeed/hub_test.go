package changefeed

import "testing"

func TestHub_NotifyReachesSubscribersUntilUnsubscribed(t *testing.T) {
	hub := NewHub()
	var first, second int

	subFirst, err := hub.Subscribe(func() { first++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := hub.Subscribe(func() { second++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hub.Notify()
	subFirst.Unsubscribe()
	subFirst.Unsubscribe()
	hub.Notify()

	if first != 1 {
		t.Fatalf("first handler calls = %d, want 1", first)
	}
	if second != 2 {
		t.Fatalf("second handler calls = %d, want 2", second)
	}
}
