package vad

import (
	"testing"
	"time"
)

// scripted reports whatever the test says next.
type scripted struct {
	answers []bool
	resets  int
}

func (s *scripted) Voiced([]byte) bool {
	if len(s.answers) == 0 {
		return false
	}
	v := s.answers[0]
	s.answers = s.answers[1:]
	return v
}

func (s *scripted) Reset() { s.resets++ }

func TestEndpointerNeverEndsBeforeVoice(t *testing.T) {
	e := NewEndpointer(&scripted{}, 100*time.Millisecond)
	now := time.Now()
	for i := 0; i < 50; i++ {
		e.Feed(nil, now)
		now = now.Add(20 * time.Millisecond)
	}
	if e.Ended(now) {
		t.Error("ended without ever hearing voice")
	}
}

func TestEndpointerEndsAfterHold(t *testing.T) {
	det := &scripted{answers: []bool{true}}
	e := NewEndpointer(det, 100*time.Millisecond)
	now := time.Now()

	if !e.Feed(nil, now) {
		t.Fatal("expected voiced")
	}
	if e.Ended(now.Add(99 * time.Millisecond)) {
		t.Error("ended before the hold elapsed")
	}
	if !e.Ended(now.Add(100 * time.Millisecond)) {
		t.Error("did not end after the hold")
	}
}

func TestEndpointerVoiceRestartsHold(t *testing.T) {
	det := &scripted{answers: []bool{true, false, true}}
	e := NewEndpointer(det, 100*time.Millisecond)
	now := time.Now()

	e.Feed(nil, now)                          // voice
	e.Feed(nil, now.Add(50*time.Millisecond)) // silence
	e.Feed(nil, now.Add(90*time.Millisecond)) // voice again

	if e.Ended(now.Add(150 * time.Millisecond)) {
		t.Error("hold should restart from the last voice")
	}
	if !e.Ended(now.Add(190 * time.Millisecond)) {
		t.Error("did not end after the restarted hold")
	}
}

func TestEndpointerReset(t *testing.T) {
	det := &scripted{answers: []bool{true}}
	e := NewEndpointer(det, 50*time.Millisecond)
	now := time.Now()

	e.Feed(nil, now)
	e.Reset()

	if e.HeardVoice() {
		t.Error("heardVoice survived reset")
	}
	if e.Ended(now.Add(time.Hour)) {
		t.Error("ended after reset without new voice")
	}
	if det.resets != 1 {
		t.Errorf("detector resets = %d, want 1", det.resets)
	}
}
