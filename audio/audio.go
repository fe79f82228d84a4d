package audio

import "sync"

// Config is the PCM shape shared by capture and playback: 16-bit
// little-endian mono frames, fixed-size chunks.
type Config struct {
	SampleRate uint32
	Channels   uint32
	ChunkBytes int
}

// BytesPerSecond returns the PCM data rate for this config.
func (c Config) BytesPerSecond() int {
	return int(c.SampleRate) * int(c.Channels) * 2
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context enumerates devices and constructs capture sources and playback
// sinks. One Context is shared by all devices in a process.
type Context interface {
	Devices() ([]DeviceInfo, error)
	NewSource(device *DeviceInfo, config Config) (Source, error)
	NewSink(config Config) (Sink, error)
	Close()
}

// Source produces fixed-size PCM chunks from the microphone while started.
// NextChunk never blocks; the session loop polls it.
type Source interface {
	Start() error
	Stop()
	NextChunk() ([]byte, bool)
	Close()
}

// Sink consumes PCM chunks and emits sound while started. Write never
// blocks: it queues the chunk for realtime playback and reports false
// when the bounded queue is full, so the caller holds the chunk and
// retries later. Pending is how many queued bytes the device has not
// played yet. Stop cuts output immediately and discards anything still
// buffered; callers wanting a clean finish wait for Pending to reach
// zero first.
type Sink interface {
	Start() error
	Stop()
	Write(chunk []byte) (bool, error)
	Pending() int
	Close()
}

// queueLimit sizes the device-side queue to roughly two seconds of audio.
func queueLimit(config Config) int {
	limit := 2 * config.BytesPerSecond() / config.ChunkBytes
	if limit < 4 {
		limit = 4
	}
	return limit
}

// chunkQueue re-chunks arbitrary device callbacks into fixed-size pieces.
// Bounded: when the device outpaces the consumer the oldest chunk is
// dropped, never the newest.
type chunkQueue struct {
	mu        sync.Mutex
	chunkSize int
	limit     int
	partial   []byte
	chunks    [][]byte
	dropped   uint64
}

func newChunkQueue(chunkSize, limit int) *chunkQueue {
	return &chunkQueue{chunkSize: chunkSize, limit: limit}
}

func (q *chunkQueue) push(data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.partial = append(q.partial, data...)
	for len(q.partial) >= q.chunkSize {
		chunk := make([]byte, q.chunkSize)
		copy(chunk, q.partial[:q.chunkSize])
		q.partial = q.partial[q.chunkSize:]
		if len(q.chunks) >= q.limit {
			q.chunks = q.chunks[1:]
			q.dropped++
		}
		q.chunks = append(q.chunks, chunk)
	}
}

func (q *chunkQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.chunks) == 0 {
		return nil, false
	}
	chunk := q.chunks[0]
	q.chunks = q.chunks[1:]
	return chunk, true
}

func (q *chunkQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.partial = nil
	q.chunks = nil
}

func (q *chunkQueue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
