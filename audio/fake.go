package audio

import (
	"os"
	"sync"
	"time"
)

const wavHeaderSize = 44

// FakeContext serves canned PCM instead of real devices. Used by the
// headless test mode and by package tests.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

// NewFakeContext loads PCM from a WAV file. realtime paces the feed at the
// wall-clock rate of the audio; otherwise chunks are available immediately.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > wavHeaderSize {
		data = data[wavHeaderSize:]
	}
	return &FakeContext{pcm: data, realtime: realtime}, nil
}

// NewFakeContextPCM wraps raw PCM directly, no file involved.
func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewSource(_ *DeviceInfo, config Config) (Source, error) {
	return NewFakeSource(f.pcm, config, f.realtime), nil
}

func (f *FakeContext) NewSink(_ Config) (Sink, error) {
	return NewFakeSink(), nil
}

// FakeSource hands out the canned PCM in chunk-size pieces, then silence.
// Feed appends more audio mid-stream, which is how tests simulate the user
// talking over the agent.
type FakeSource struct {
	config   Config
	realtime bool

	mu      sync.Mutex
	pcm     []byte
	pos     int
	started bool
	nextAt  time.Time
}

func NewFakeSource(pcm []byte, config Config, realtime bool) *FakeSource {
	return &FakeSource{pcm: pcm, config: config, realtime: realtime}
}

// Feed appends PCM to the stream, as if the user spoke just now.
func (f *FakeSource) Feed(pcm []byte) {
	f.mu.Lock()
	f.pcm = append(f.pcm, pcm...)
	f.mu.Unlock()
}

func (f *FakeSource) Start() error {
	f.mu.Lock()
	f.started = true
	f.nextAt = time.Now()
	f.mu.Unlock()
	return nil
}

func (f *FakeSource) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeSource) NextChunk() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return nil, false
	}
	if f.realtime {
		now := time.Now()
		if now.Before(f.nextAt) {
			return nil, false
		}
		chunkDur := time.Duration(f.config.ChunkBytes) * time.Second / time.Duration(f.config.BytesPerSecond())
		f.nextAt = now.Add(chunkDur)
	}

	chunk := make([]byte, f.config.ChunkBytes)
	if f.pos < len(f.pcm) {
		n := copy(chunk, f.pcm[f.pos:])
		f.pos += n
		// tail of the canned audio is zero-padded; silence follows
	}
	return chunk, true
}

func (f *FakeSource) Close() {}

// FakeSink records what playback would have done. Ops preserves the
// ordering of starts, writes and stops so tests can assert on it.
type FakeSink struct {
	mu      sync.Mutex
	started bool
	chunks  [][]byte
	ops     []string
}

func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

func (f *FakeSink) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.started = true
		f.ops = append(f.ops, "start")
	}
	return nil
}

func (f *FakeSink) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		f.started = false
		f.ops = append(f.ops, "stop")
	}
}

func (f *FakeSink) Write(chunk []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := make([]byte, len(chunk))
	copy(c, chunk)
	f.chunks = append(f.chunks, c)
	f.ops = append(f.ops, "write")
	return true, nil
}

// Pending is always zero: the fake plays instantly.
func (f *FakeSink) Pending() int { return 0 }

func (f *FakeSink) Close() {}

// Chunks returns a snapshot of everything written so far.
func (f *FakeSink) Chunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.chunks))
	copy(out, f.chunks)
	return out
}

// Ops returns the ordered operation log.
func (f *FakeSink) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

// Started reports whether the sink is currently emitting.
func (f *FakeSink) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}
