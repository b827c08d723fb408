package store

import (
	"sync"
	"testing"
)

func TestSubscribeDeliversCurrentValue(t *testing.T) {
	count := NewWritable(41)

	var got int
	calls := 0
	unsubscribe := count.Subscribe(func(v int) {
		got = v
		calls++
	})
	defer unsubscribe()

	if calls != 1 {
		t.Fatalf("expected 1 immediate call, got %d", calls)
	}
	if got != 41 {
		t.Errorf("initial value = %d, want 41", got)
	}
}

func TestSetNotifiesSubscribers(t *testing.T) {
	count := NewWritable(0)

	var values []int
	unsubscribe := count.Subscribe(func(v int) { values = append(values, v) })
	defer unsubscribe()

	count.Set(1)
	count.Set(2)

	want := []int{0, 1, 2}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("got %v, want %v", values, want)
		}
	}
}

func TestUpdate(t *testing.T) {
	count := NewWritable(10)
	count.Update(func(v int) int { return v * 2 })

	if count.Value() != 20 {
		t.Errorf("Value = %d, want 20", count.Value())
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	count := NewWritable(0)

	calls := 0
	unsubscribe := count.Subscribe(func(int) { calls++ })
	unsubscribe()
	unsubscribe() // must be safe to call twice

	count.Set(5)

	if calls != 1 {
		t.Errorf("expected only the initial call, got %d", calls)
	}
	if count.SubscriberCount() != 0 {
		t.Error("subscriber should be removed")
	}
}

func TestNotificationOrderIsSubscriptionOrder(t *testing.T) {
	s := NewWritable("")

	var order []string
	unsub1 := s.Subscribe(func(v string) {
		if v != "" {
			order = append(order, "first")
		}
	})
	defer unsub1()
	unsub2 := s.Subscribe(func(v string) {
		if v != "" {
			order = append(order, "second")
		}
	})
	defer unsub2()

	s.Set("go")

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("notification order = %v", order)
	}
}

func TestReentrantSetIsQueuedNotRecursive(t *testing.T) {
	s := NewWritable(0)

	var seen []int
	unsubscribe := s.Subscribe(func(v int) {
		seen = append(seen, v)
		if v == 1 {
			s.Set(2) // re-entrant: must not interleave
		}
	})
	defer unsubscribe()

	s.Set(1)

	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestStartStopSemantics(t *testing.T) {
	started := 0
	stopped := 0
	s := NewWritableWithStart(0, func(set func(int)) func() {
		started++
		set(7)
		return func() { stopped++ }
	})

	var got int
	unsub1 := s.Subscribe(func(v int) { got = v })
	if started != 1 {
		t.Fatalf("start ran %d times, want 1", started)
	}
	if got != 7 {
		t.Errorf("subscriber saw %d, want the value pushed by start", got)
	}

	unsub2 := s.Subscribe(func(int) {})
	if started != 1 {
		t.Error("start must not re-run for additional subscribers")
	}

	unsub1()
	if stopped != 0 {
		t.Error("stop must not run while subscribers remain")
	}
	unsub2()
	if stopped != 1 {
		t.Errorf("stop ran %d times, want 1", stopped)
	}

	// A fresh subscriber restarts the store.
	unsub3 := s.Subscribe(func(int) {})
	defer unsub3()
	if started != 2 {
		t.Errorf("start ran %d times after resubscribe, want 2", started)
	}
}

func TestGet(t *testing.T) {
	s := NewWritable("hello")
	if got := Get[string](s); got != "hello" {
		t.Errorf("Get = %q, want %q", got, "hello")
	}
	if s.SubscriberCount() != 0 {
		t.Error("Get must not leak a subscription")
	}
}

func TestConcurrentSet(t *testing.T) {
	s := NewWritable(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set(n)
		}(i)
	}
	wg.Wait()

	got := s.Value()
	if got < 0 || got > 15 {
		t.Errorf("final value %d outside written range", got)
	}
}

func TestDerived(t *testing.T) {
	source := NewWritable(2)
	doubled := NewDerived[int, int](source, func(v int) int { return v * 2 })

	var got int
	unsubscribe := doubled.Subscribe(func(v int) { got = v })

	if got != 4 {
		t.Errorf("derived initial = %d, want 4", got)
	}

	source.Set(5)
	if got != 10 {
		t.Errorf("derived after source change = %d, want 10", got)
	}

	unsubscribe()
	if source.SubscriberCount() != 0 {
		t.Error("derived with no subscribers must hold no upstream subscription")
	}
}

func TestDerivedLazyUpstream(t *testing.T) {
	source := NewWritable(1)
	_ = NewDerived[int, int](source, func(v int) int { return v })

	if source.SubscriberCount() != 0 {
		t.Error("derived must not subscribe upstream before it has subscribers")
	}
}

func TestDerived2(t *testing.T) {
	a := NewWritable(2)
	b := NewWritable(3)
	sum := NewDerived2[int, int, int](a, b, func(x, y int) int { return x + y })

	var got int
	unsubscribe := sum.Subscribe(func(v int) { got = v })
	defer unsubscribe()

	if got != 5 {
		t.Errorf("derived2 initial = %d, want 5", got)
	}

	a.Set(10)
	if got != 13 {
		t.Errorf("derived2 after first source change = %d, want 13", got)
	}
	b.Set(0)
	if got != 10 {
		t.Errorf("derived2 after second source change = %d, want 10", got)
	}
}
