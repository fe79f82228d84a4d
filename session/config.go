package session

import (
	"fmt"
	"time"

	"chirp/wire"
)

// Config carries everything the engine needs. Zero values are filled by
// withDefaults; Validate rejects combinations the loop cannot run with.
type Config struct {
	Format wire.Format

	// SilenceHold is how long the endpointer must see silence after
	// voice before the user's turn is committed.
	SilenceHold time.Duration

	// BargeIn enables interrupting playback when the user speaks.
	BargeIn bool

	// OneShot closes the session after a single exchange instead of
	// returning to idle.
	OneShot bool

	// Ring capacities, in chunks.
	PlaybackBuffer int
	CaptureBuffer  int

	MaxReconnects int
	BackoffBase   time.Duration
	BackoffCap    time.Duration

	ConnectTimeout   time.Duration
	ReadyTimeout     time.Duration
	ResponseTimeout  time.Duration
	InterruptTimeout time.Duration
	TickInterval     time.Duration
}

func (c *Config) withDefaults() {
	if c.Format.Encoding == "" {
		c.Format.Encoding = "pcm16"
	}
	if c.Format.SampleRateHz == 0 {
		c.Format.SampleRateHz = 16000
	}
	if c.Format.Channels == 0 {
		c.Format.Channels = 1
	}
	if c.Format.ChunkBytes == 0 {
		c.Format.ChunkBytes = 1024
	}
	if c.SilenceHold == 0 {
		c.SilenceHold = 1500 * time.Millisecond
	}
	if c.PlaybackBuffer == 0 {
		c.PlaybackBuffer = 64
	}
	if c.CaptureBuffer == 0 {
		c.CaptureBuffer = 32
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 5
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = 8 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = 5 * time.Second
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 30 * time.Second
	}
	if c.InterruptTimeout == 0 {
		c.InterruptTimeout = 500 * time.Millisecond
	}
	if c.TickInterval == 0 {
		c.TickInterval = 20 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.Format.Encoding != "pcm16" {
		return fmt.Errorf("unsupported encoding %q", c.Format.Encoding)
	}
	if c.Format.Channels != 1 {
		return fmt.Errorf("unsupported channel count %d", c.Format.Channels)
	}
	if c.Format.ChunkBytes%2 != 0 {
		return fmt.Errorf("chunk size %d not sample-aligned", c.Format.ChunkBytes)
	}
	if c.Format.ChunkBytes <= 0 || c.Format.ChunkBytes > 64*1024 {
		return fmt.Errorf("chunk size %d out of range", c.Format.ChunkBytes)
	}
	if c.Format.SampleRateHz < 8000 || c.Format.SampleRateHz > 48000 {
		return fmt.Errorf("sample rate %d out of range", c.Format.SampleRateHz)
	}
	if c.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects must not be negative")
	}
	return nil
}
