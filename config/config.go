// Package config loads the TOML configuration file and maps it onto the
// engine's settings. Every field has a default; an absent file is not an
// error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"chirp/session"
	"chirp/wire"
)

type Config struct {
	Server  Server  `toml:"server"`
	Audio   Audio   `toml:"audio"`
	VAD     VAD     `toml:"vad"`
	Session Session `toml:"session"`
}

type Server struct {
	URL               string `toml:"url"`
	Token             string `toml:"token"`
	ConnectTimeoutMs  int    `toml:"connect_timeout_ms"`
	ReadyTimeoutMs    int    `toml:"ready_timeout_ms"`
	ResponseTimeoutMs int    `toml:"response_timeout_ms"`
}

type Audio struct {
	SampleRate int    `toml:"sample_rate"`
	ChunkBytes int    `toml:"chunk_bytes"`
	Device     string `toml:"device"`
	Earcons    bool   `toml:"earcons"`
}

type VAD struct {
	// Engine is "webrtc" or "energy".
	Engine          string  `toml:"engine"`
	Aggressiveness  int     `toml:"aggressiveness"`
	SilenceMs       int     `toml:"silence_ms"`
	EnergyThreshold float64 `toml:"energy_threshold"`
}

type Session struct {
	BargeIn            bool `toml:"barge_in"`
	OneShot            bool `toml:"one_shot"`
	MaxReconnects      int  `toml:"max_reconnects"`
	BackoffBaseMs      int  `toml:"backoff_base_ms"`
	BackoffCapMs       int  `toml:"backoff_cap_ms"`
	InterruptTimeoutMs int  `toml:"interrupt_timeout_ms"`
	PlaybackBuffer     int  `toml:"playback_buffer"`
	CaptureBuffer      int  `toml:"capture_buffer"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			ConnectTimeoutMs:  10000,
			ReadyTimeoutMs:    5000,
			ResponseTimeoutMs: 30000,
		},
		Audio: Audio{
			SampleRate: 16000,
			ChunkBytes: 1024,
			Earcons:    true,
		},
		VAD: VAD{
			Engine:         "webrtc",
			Aggressiveness: 3,
			SilenceMs:      1500,
		},
		Session: Session{
			BargeIn:            true,
			MaxReconnects:      5,
			BackoffBaseMs:      500,
			BackoffCapMs:       8000,
			InterruptTimeoutMs: 500,
			PlaybackBuffer:     64,
			CaptureBuffer:      32,
		},
	}
}

// Load reads configuration in priority order: the -config flag, the
// CHIRP_CONFIG environment variable, the default location. A missing
// default file yields defaults; an explicitly named file must exist.
func Load(flagPath string) (*Config, error) {
	cfg := Default()

	path := flagPath
	if path == "" {
		path = os.Getenv("CHIRP_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = defaultPath()
	}
	if path == "" {
		cfg.applyEnv()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "chirp", "config.toml")
}

// applyEnv lets the secret stay out of the config file.
func (c *Config) applyEnv() {
	if tok := os.Getenv("CHIRP_TOKEN"); tok != "" {
		c.Server.Token = tok
	}
	if url := os.Getenv("CHIRP_URL"); url != "" && c.Server.URL == "" {
		c.Server.URL = url
	}
}

func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required (flag -url, CHIRP_URL, or config file)")
	}
	if c.Audio.ChunkBytes <= 0 || c.Audio.ChunkBytes%2 != 0 {
		return fmt.Errorf("audio.chunk_bytes must be a positive even number, got %d", c.Audio.ChunkBytes)
	}
	if c.Audio.ChunkBytes > 64*1024 {
		return fmt.Errorf("audio.chunk_bytes must not exceed 64 KiB, got %d", c.Audio.ChunkBytes)
	}
	switch c.VAD.Engine {
	case "webrtc", "energy":
	default:
		return fmt.Errorf("vad.engine must be webrtc or energy, got %q", c.VAD.Engine)
	}
	if c.VAD.Aggressiveness < 0 || c.VAD.Aggressiveness > 3 {
		return fmt.Errorf("vad.aggressiveness must be 0..3, got %d", c.VAD.Aggressiveness)
	}
	return nil
}

// SessionConfig maps the file-level settings onto the engine's Config.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Format: wire.Format{
			Encoding:     "pcm16",
			SampleRateHz: c.Audio.SampleRate,
			Channels:     1,
			ChunkBytes:   c.Audio.ChunkBytes,
		},
		SilenceHold:      time.Duration(c.VAD.SilenceMs) * time.Millisecond,
		BargeIn:          c.Session.BargeIn,
		OneShot:          c.Session.OneShot,
		PlaybackBuffer:   c.Session.PlaybackBuffer,
		CaptureBuffer:    c.Session.CaptureBuffer,
		MaxReconnects:    c.Session.MaxReconnects,
		BackoffBase:      time.Duration(c.Session.BackoffBaseMs) * time.Millisecond,
		BackoffCap:       time.Duration(c.Session.BackoffCapMs) * time.Millisecond,
		ConnectTimeout:   time.Duration(c.Server.ConnectTimeoutMs) * time.Millisecond,
		ReadyTimeout:     time.Duration(c.Server.ReadyTimeoutMs) * time.Millisecond,
		ResponseTimeout:  time.Duration(c.Server.ResponseTimeoutMs) * time.Millisecond,
		InterruptTimeout: time.Duration(c.Session.InterruptTimeoutMs) * time.Millisecond,
	}
}
