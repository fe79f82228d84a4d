package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chirp/audio"
	"chirp/config"
	"chirp/log"
	"chirp/session"
	"chirp/transport"
	"chirp/vad"
	"chirp/wire"
)

// runTestMode drives a whole conversation without hardware or network:
// canned WAV as the mic, a recording sink as the speaker, and a scripted
// loopback server behind a fake channel. Stdin is the test driver.
func runTestMode(cfg *config.Config, wavPath string) int {
	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	audioCfg := audio.Config{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   1,
		ChunkBytes: cfg.Audio.ChunkBytes,
	}
	src, _ := fakeCtx.NewSource(nil, audioCfg)
	sink, _ := fakeCtx.NewSink(audioCfg)

	lb := newLoopback(cfg.Audio.ChunkBytes, cfg.Audio.SampleRate)

	// energy detector: deterministic for canned audio
	det := vad.NewEnergy(cfg.VAD.EnergyThreshold)

	sessCfg := cfg.SessionConfig()
	sess, err := session.New(sessCfg, lb.ch, src, sink, det, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log.SessionStart("loopback", cfg.Audio.SampleRate)

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	// Stdin driver -- one command per line, results on stdout
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch {
			case cmd == "END":
				sess.EndTurn()
			case cmd == "INT":
				sess.Interrupt()
			case cmd == "STATE":
				fmt.Println(sess.State())
			case cmd == "QUIT":
				sess.Stop()
				return
			case strings.HasPrefix(cmd, "SLEEP "):
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			case strings.HasPrefix(cmd, "WAIT_STATE "):
				want := cmd[len("WAIT_STATE "):]
				waitState(sess, want, 10*time.Second)
				fmt.Println(sess.State())
			}
		}
		sess.Stop()
	}()

	err = <-done
	log.SessionEnd(sess.Turns())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Session ended: %v\n", err)
		return 1
	}
	return 0
}

func waitState(sess *session.Session, want string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if sess.State().String() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// loopback is a minimal in-process voice service: greets, echoes a short
// tone as the agent's reply, honors interrupts.
type loopback struct {
	ch         *transport.FakeChannel
	chunkBytes int
	sampleRate int
}

func newLoopback(chunkBytes, sampleRate int) *loopback {
	lb := &loopback{
		ch:         transport.NewFakeChannel(),
		chunkBytes: chunkBytes,
		sampleRate: sampleRate,
	}
	lb.ch.OnSend = lb.handle
	return lb
}

func (l *loopback) handle(data []byte) {
	frame, err := wire.Decode(data)
	if err != nil {
		return
	}
	cf, ok := frame.(wire.ControlFrame)
	if !ok {
		return
	}
	switch cf.Kind {
	case wire.KindHello:
		l.ch.Push(wire.EncodeControl(wire.ControlFrame{Kind: wire.KindReady, Format: cf.Format}))
	case wire.KindCommit:
		go l.respond(cf.Turn)
	case wire.KindInterrupt:
		l.ch.Push(wire.EncodeControl(wire.ControlFrame{Kind: wire.KindInterruptAck, Turn: cf.Turn}))
	}
}

func (l *loopback) respond(turn int64) {
	time.Sleep(50 * time.Millisecond)
	l.ch.Push(wire.EncodeControl(wire.ControlFrame{Kind: wire.KindTurnStart, Turn: turn}))
	l.ch.Push(wire.EncodeControl(wire.ControlFrame{Kind: wire.KindCaption, Turn: turn, Text: "ok", Final: true}))

	reply := audio.DoneTone(l.sampleRate)
	seq := int64(0)
	for off := 0; off < len(reply); off += l.chunkBytes {
		end := off + l.chunkBytes
		if end > len(reply) {
			end = len(reply)
		}
		l.ch.Push(wire.EncodeAudio(reply[off:end], turn, seq))
		seq++
		time.Sleep(5 * time.Millisecond)
	}
	l.ch.Push(wire.EncodeControl(wire.ControlFrame{Kind: wire.KindTurnEnd, Turn: turn}))
}
