package session

import (
	"testing"
	"time"
)

func TestBackoffDoubles(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 10*time.Second)
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}

func TestBackoffCaps(t *testing.T) {
	b := newBackoff(time.Second, 3*time.Second)
	b.Next()
	b.Next()
	for i := 0; i < 5; i++ {
		if got := b.Next(); got != 3*time.Second {
			t.Errorf("got %v, want cap", got)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(time.Second, 8*time.Second)
	b.Next()
	b.Next()
	if b.Attempts() != 2 {
		t.Fatalf("attempts = %d, want 2", b.Attempts())
	}
	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("attempts = %d after reset", b.Attempts())
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("first delay after reset = %v, want base", got)
	}
}
