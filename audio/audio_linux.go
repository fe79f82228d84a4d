//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		devices = append(devices, DeviceInfo{
			ID:   s.ID(),
			Name: s.Name(),
		})
	}
	return devices, nil
}

func (p *pulseContext) NewSource(device *DeviceInfo, config Config) (Source, error) {
	return &pulseSource{
		client: p.client,
		device: device,
		config: config,
		queue:  newChunkQueue(config.ChunkBytes, queueLimit(config)),
	}, nil
}

func (p *pulseContext) NewSink(config Config) (Sink, error) {
	return &pulseSink{
		client: p.client,
		config: config,
		limit:  2 * config.BytesPerSecond(),
	}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseSource struct {
	client *pulse.Client
	device *DeviceInfo
	config Config
	queue  *chunkQueue

	mu     sync.Mutex
	stream *pulse.RecordStream
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseSource) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		c.queue.push(data)
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
	}
	if c.device != nil {
		source, err := c.client.SourceByID(c.device.ID)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	c.stream = stream
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		stream.Start()
		<-c.stop
		stream.Stop()
		stream.Close()
	}()

	return nil
}

func (c *pulseSource) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stream = nil
	c.queue.reset()
}

func (c *pulseSource) NextChunk() ([]byte, bool) {
	return c.queue.pop()
}

func (c *pulseSource) Close() {
	c.Stop()
}

type pulseSink struct {
	client *pulse.Client
	config Config
	limit  int

	mu     sync.Mutex
	buf    []byte
	stream *pulse.PlaybackStream
	stop   chan struct{}
	done   chan struct{}
}

func (s *pulseSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return nil
	}

	// Underruns read as silence so the stream never stalls between
	// server chunks.
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		s.mu.Lock()
		n := len(s.buf) / 2
		if n > len(buf) {
			n = len(buf)
		}
		for i := 0; i < n; i++ {
			buf[i] = int16(binary.LittleEndian.Uint16(s.buf[i*2:]))
		}
		s.buf = s.buf[n*2:]
		s.mu.Unlock()
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return len(buf), nil
	})

	stream, err := s.client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(int(s.config.SampleRate)),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}

	s.stream = stream
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		stream.Start()
		<-s.stop
		stream.Stop()
		stream.Close()
	}()

	return nil
}

func (s *pulseSink) Stop() {
	s.mu.Lock()
	if s.stream == nil {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.stream = nil
	s.buf = nil
	s.mu.Unlock()
	close(stop)
	<-done
}

func (s *pulseSink) Write(chunk []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return false, fmt.Errorf("sink not started")
	}
	if len(s.buf)+len(chunk) > s.limit {
		return false, nil
	}
	s.buf = append(s.buf, chunk...)
	return true, nil
}

func (s *pulseSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *pulseSink) Close() {
	s.Stop()
}
