package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHIRP_CONFIG", "")
	t.Setenv("CHIRP_TOKEN", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config file there

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.ChunkBytes != 1024 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if !cfg.Session.BargeIn {
		t.Error("barge-in should default on")
	}
	if cfg.VAD.SilenceMs != 1500 {
		t.Errorf("silence_ms = %d, want 1500", cfg.VAD.SilenceMs)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("CHIRP_TOKEN", "")
	path := writeConfig(t, `
[server]
url = "wss://svc.example/voice"

[audio]
sample_rate = 8000

[session]
barge_in = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "wss://svc.example/voice" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("sample_rate = %d", cfg.Audio.SampleRate)
	}
	if cfg.Session.BargeIn {
		t.Error("barge_in = false in file was ignored")
	}
	// untouched keys keep their defaults
	if cfg.Audio.ChunkBytes != 1024 {
		t.Errorf("chunk_bytes = %d, want default", cfg.Audio.ChunkBytes)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("explicitly named missing file should error")
	}
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("CHIRP_TOKEN", "secret-from-env")
	path := writeConfig(t, `
[server]
url = "wss://svc.example/voice"
token = "file-token"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Token != "secret-from-env" {
		t.Errorf("token = %q, env should win", cfg.Server.Token)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("missing url should fail validation")
	}

	cfg.Server.URL = "wss://svc.example/voice"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.VAD.Aggressiveness = 7
	if err := cfg.Validate(); err == nil {
		t.Error("aggressiveness 7 should fail")
	}
	cfg.VAD.Aggressiveness = 2

	cfg.Audio.ChunkBytes = 3
	if err := cfg.Validate(); err == nil {
		t.Error("odd chunk size should fail")
	}
}

func TestSessionConfigMapping(t *testing.T) {
	cfg := Default()
	cfg.VAD.SilenceMs = 2000
	cfg.Session.BackoffBaseMs = 250

	sc := cfg.SessionConfig()
	if sc.SilenceHold != 2*time.Second {
		t.Errorf("silence hold = %v", sc.SilenceHold)
	}
	if sc.BackoffBase != 250*time.Millisecond {
		t.Errorf("backoff base = %v", sc.BackoffBase)
	}
	if sc.Format.SampleRateHz != 16000 || sc.Format.ChunkBytes != 1024 {
		t.Errorf("format = %+v", sc.Format)
	}
}
