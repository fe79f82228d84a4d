package main

import (
	"fmt"
	"sync"

	"chirp/audio"
	"chirp/config"
	"chirp/log"
	"chirp/session"
)

// consoleNotifier is the display layer: state changes and captions go to
// stdout, agent text to the conversation log, earcons to the speaker.
// Session calls arrive on the engine goroutine, so everything slow runs
// elsewhere.
type consoleNotifier struct {
	cfg      *config.Config
	audioCtx audio.Context
	audioCfg audio.Config

	mu      sync.Mutex
	partial bool
}

func newConsoleNotifier(cfg *config.Config, audioCtx audio.Context, audioCfg audio.Config) *consoleNotifier {
	return &consoleNotifier{cfg: cfg, audioCtx: audioCtx, audioCfg: audioCfg}
}

func (n *consoleNotifier) StateChanged(from, to session.State) {
	n.mu.Lock()
	if n.partial {
		fmt.Println()
		n.partial = false
	}
	n.mu.Unlock()

	switch to {
	case session.StateListening:
		fmt.Println("● listening")
		n.earcon(audio.ListenTone(int(n.audioCfg.SampleRate)))
	case session.StateWaiting:
		fmt.Println("… thinking")
		n.earcon(audio.DoneTone(int(n.audioCfg.SampleRate)))
	case session.StateSpeaking:
		fmt.Println("▶ speaking")
	case session.StateError:
		fmt.Println("✗ connection trouble, retrying")
		n.earcon(audio.ErrorTone(int(n.audioCfg.SampleRate)))
	case session.StateClosed:
		fmt.Println("session closed")
	}
}

func (n *consoleNotifier) Caption(text string, final bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if final {
		fmt.Printf("\r\x1b[Kagent: %s\n", text)
		n.partial = false
		log.Caption("agent", text)
		return
	}
	fmt.Printf("\r\x1b[Kagent: %s", text)
	n.partial = true
}

func (n *consoleNotifier) Anomaly(detail string) {
	// already in the diagnostics log; not worth the user's attention
}

func (n *consoleNotifier) earcon(pcm []byte) {
	if !n.cfg.Audio.Earcons {
		return
	}
	go func() {
		if err := audio.PlayOnce(n.audioCtx, n.audioCfg, pcm); err != nil {
			log.Warnf("earcon: %v", err)
		}
	}()
}
