//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewSource(device *DeviceInfo, config Config) (Source, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	if device != nil {
		idBytes, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	src := &malgoSource{
		queue: newChunkQueue(config.ChunkBytes, queueLimit(config)),
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			src.queue.push(data)
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	src.device = dev
	return src, nil
}

func (m *malgoContext) NewSink(config Config) (Sink, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	snk := &malgoSink{limit: 2 * config.BytesPerSecond()}
	callbacks := malgo.DeviceCallbacks{
		// Underruns play as silence so the device never stalls between
		// server chunks.
		Data: func(out, _ []byte, frameCount uint32) {
			snk.mu.Lock()
			n := copy(out, snk.buf)
			snk.buf = snk.buf[n:]
			snk.mu.Unlock()
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	snk.device = dev
	return snk, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoSource struct {
	device *malgo.Device
	queue  *chunkQueue
}

func (c *malgoSource) Start() error {
	if c.device.IsStarted() {
		return nil
	}
	return c.device.Start()
}

func (c *malgoSource) Stop() {
	if c.device.IsStarted() {
		c.device.Stop()
	}
	c.queue.reset()
}

func (c *malgoSource) NextChunk() ([]byte, bool) {
	return c.queue.pop()
}

func (c *malgoSource) Close() {
	c.device.Uninit()
}

type malgoSink struct {
	device *malgo.Device
	limit  int

	mu      sync.Mutex
	buf     []byte
	started bool
}

func (s *malgoSink) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()
	return s.device.Start()
}

func (s *malgoSink) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.buf = nil
	s.mu.Unlock()
	s.device.Stop()
}

func (s *malgoSink) Write(chunk []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return false, fmt.Errorf("sink not started")
	}
	if len(s.buf)+len(chunk) > s.limit {
		return false, nil
	}
	s.buf = append(s.buf, chunk...)
	return true, nil
}

func (s *malgoSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

func (s *malgoSink) Close() {
	s.device.Uninit()
}
