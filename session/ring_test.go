package session

import "testing"

func TestRingPushEvictsOldest(t *testing.T) {
	r := newRing(2)
	r.Push([]byte{1})
	r.Push([]byte{2})
	if evicted := r.Push([]byte{3}); !evicted {
		t.Fatal("expected eviction on full ring")
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
	first, _ := r.Pop()
	if first[0] != 2 {
		t.Errorf("oldest surviving chunk = %d, want 2", first[0])
	}
	if r.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", r.Dropped())
	}
}

func TestRingTryPushRefusesNewest(t *testing.T) {
	r := newRing(1)
	if !r.TryPush([]byte{1}) {
		t.Fatal("first push should fit")
	}
	if r.TryPush([]byte{2}) {
		t.Fatal("full ring should refuse")
	}
	chunk, _ := r.Pop()
	if chunk[0] != 1 {
		t.Errorf("kept chunk = %d, want the oldest", chunk[0])
	}
}

func TestRingPopEmpty(t *testing.T) {
	r := newRing(4)
	if _, ok := r.Pop(); ok {
		t.Error("pop on empty ring should report not ok")
	}
}

func TestRingClear(t *testing.T) {
	r := newRing(4)
	r.Push([]byte{1})
	r.Push([]byte{2})
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("len = %d after clear", r.Len())
	}
}
