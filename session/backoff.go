package session

import "time"

// backoff computes reconnect delays: base doubled per attempt, capped.
type backoff struct {
	base    time.Duration
	cap     time.Duration
	attempt int
}

func newBackoff(base, cap time.Duration) *backoff {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if cap < base {
		cap = base
	}
	return &backoff{base: base, cap: cap}
}

// Next returns the delay for the current attempt and advances the counter.
func (b *backoff) Next() time.Duration {
	d := b.base
	for i := 0; i < b.attempt; i++ {
		d *= 2
		if d >= b.cap {
			d = b.cap
			break
		}
	}
	b.attempt++
	return d
}

// Attempts returns how many delays have been handed out since the last reset.
func (b *backoff) Attempts() int { return b.attempt }

// Reset is called once the server confirms a session; the next failure
// starts the schedule over.
func (b *backoff) Reset() { b.attempt = 0 }
