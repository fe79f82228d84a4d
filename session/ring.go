package session

// ring is a bounded FIFO of PCM chunks. Push drops the oldest entry when
// full (playback: stale audio is worse than a gap), TryPush refuses the
// newest (capture: backpressure to the producer). Not safe for concurrent
// use; the session goroutine owns it.
type ring struct {
	chunks  [][]byte
	cap     int
	dropped uint64
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{cap: capacity}
}

// Push appends chunk, evicting the oldest entry if the ring is full.
// Returns true when an eviction happened.
func (r *ring) Push(chunk []byte) bool {
	evicted := false
	if len(r.chunks) >= r.cap {
		r.chunks = r.chunks[1:]
		r.dropped++
		evicted = true
	}
	r.chunks = append(r.chunks, chunk)
	return evicted
}

// TryPush appends chunk only if there is room.
func (r *ring) TryPush(chunk []byte) bool {
	if len(r.chunks) >= r.cap {
		r.dropped++
		return false
	}
	r.chunks = append(r.chunks, chunk)
	return true
}

// Peek returns the oldest entry without removing it.
func (r *ring) Peek() ([]byte, bool) {
	if len(r.chunks) == 0 {
		return nil, false
	}
	return r.chunks[0], true
}

func (r *ring) Full() bool { return len(r.chunks) >= r.cap }

func (r *ring) Pop() ([]byte, bool) {
	if len(r.chunks) == 0 {
		return nil, false
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	return chunk, true
}

func (r *ring) Clear() {
	r.chunks = nil
}

func (r *ring) Len() int { return len(r.chunks) }

func (r *ring) Dropped() uint64 { return r.dropped }
