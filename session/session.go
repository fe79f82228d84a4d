package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"chirp/audio"
	"chirp/log"
	"chirp/transport"
	"chirp/vad"
	"chirp/wire"
)

// malformedLimit is how many consecutive undecodable frames are tolerated
// before the connection is treated as broken.
const malformedLimit = 5

// maxChunksPerTick bounds how much audio moves in one loop iteration so a
// burst cannot starve control traffic.
const maxChunksPerTick = 8

type timerKind int

const (
	timerNone timerKind = iota
	timerReady
	timerResponse
	timerInterrupt
	timerBackoff
)

type recvMsg struct {
	gen  int
	data []byte
	err  error
}

// Session drives one voice conversation: mic chunks out, agent audio back,
// with the turn-taking state machine in between. All state lives on the
// Run goroutine; the public control methods only signal it.
type Session struct {
	cfg    Config
	ch     transport.Channel
	src    audio.Source
	sink   audio.Sink
	ep     *vad.Endpointer
	notify Notifier

	state     State
	published atomic.Int32

	chunker  *wire.Chunker
	capture  *ring
	playback *ring
	bo       *backoff

	userTurn   int64
	sendSeq    int64
	serverTurn int64
	lastSeq    int64
	draining   bool // turn_end seen, playback ring still emptying

	gen       int
	recvCh    chan recvMsg
	stopCh    chan struct{}
	stopOnce  sync.Once
	intCh     chan struct{}
	endCh     chan struct{}
	timer     *time.Timer
	timerWhat timerKind

	runCtx      context.Context
	malformed   int
	lastErr     error
	started     time.Time
	metricsOnce sync.Once

	stats struct {
		sentChunks int
		recvChunks int
		reconnects int
		interrupts int
	}
}

// New assembles a session over the given channel and audio devices. The
// caller keeps ownership of the devices and closes them after Run returns.
func New(cfg Config, ch transport.Channel, src audio.Source, sink audio.Sink, det vad.Detector, notify Notifier) (*Session, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Session{
		cfg:      cfg,
		ch:       ch,
		src:      src,
		sink:     sink,
		ep:       vad.NewEndpointer(det, cfg.SilenceHold),
		notify:   notify,
		chunker:  wire.NewChunker(cfg.Format.ChunkBytes),
		capture:  newRing(cfg.CaptureBuffer),
		playback: newRing(cfg.PlaybackBuffer),
		bo:       newBackoff(cfg.BackoffBase, cfg.BackoffCap),
		recvCh:   make(chan recvMsg, cfg.PlaybackBuffer),
		stopCh:   make(chan struct{}),
		intCh:    make(chan struct{}, 1),
		endCh:    make(chan struct{}, 1),
	}, nil
}

// Run owns the session until the conversation closes. It returns nil on a
// clean stop and the terminal error otherwise.
func (s *Session) Run(ctx context.Context) error {
	s.runCtx = ctx
	s.started = time.Now()
	s.timer = time.NewTimer(time.Hour)
	s.disarmTimer()
	defer s.timer.Stop()

	s.connect()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-s.stopCh:
			s.shutdown()
			return nil
		case <-s.intCh:
			s.startInterrupt("requested")
		case <-s.endCh:
			s.commitTurn()
		case m := <-s.recvCh:
			if m.gen == s.gen {
				s.handleRecv(m)
			}
		case <-s.timer.C:
			what := s.timerWhat
			s.timerWhat = timerNone
			s.handleTimer(what)
		case <-ticker.C:
			s.tick(time.Now())
		}
		if s.state.terminal() {
			s.logMetrics()
			return s.lastErr
		}
	}
}

// --- connection lifecycle ---

func (s *Session) connect() {
	s.transition(StateConnecting)

	openCtx, cancel := context.WithTimeout(s.runCtx, s.cfg.ConnectTimeout)
	err := s.ch.Open(openCtx)
	cancel()
	if err != nil {
		log.Warnf("connect failed: %v", err)
		s.enterError(err)
		return
	}

	s.gen++
	s.malformed = 0
	go s.pump(s.gen)

	hello := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindHello, Format: s.cfg.Format})
	if !s.send(hello) {
		return
	}
	s.armTimer(timerReady, s.cfg.ReadyTimeout)
}

// pump moves raw frames from the channel onto the session goroutine. It is
// generation-tagged so frames from a dead connection are dropped, and it
// exits on the first receive error.
func (s *Session) pump(gen int) {
	for {
		data, err := s.ch.Receive(s.runCtx)
		select {
		case s.recvCh <- recvMsg{gen: gen, data: data, err: err}:
		case <-s.runCtx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) enterError(err error) {
	s.lastErr = err
	s.stopAudio()
	s.gen++ // orphan the pump
	s.ch.Close()
	s.transition(StateError)

	// this failure counts toward the limit before deciding to retry
	d := s.bo.Next()
	if s.bo.Attempts() >= s.cfg.MaxReconnects {
		log.Errorf("giving up after %d consecutive connection failures: %v", s.bo.Attempts(), err)
		s.transition(StateClosed)
		return
	}
	s.stats.reconnects++
	log.Warnf("reconnecting in %v (attempt %d): %v", d, s.bo.Attempts(), err)
	s.armTimer(timerBackoff, d)
}

func (s *Session) shutdown() {
	if s.state != StateError && s.state != StateClosed {
		// best effort farewell; the close right after is what matters
		bye := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindBye})
		sendCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		s.ch.Send(sendCtx, bye)
		cancel()
	}
	s.stopAudio()
	s.gen++
	s.ch.Close()
	s.transition(StateClosed)
	s.logMetrics()
}

func (s *Session) stopAudio() {
	s.src.Stop()
	s.sink.Stop()
	s.capture.Clear()
	s.playback.Clear()
	s.draining = false
}

// --- state machine ---

func (s *Session) transition(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.published.Store(int32(to))
	log.Infof("state %s -> %s", from, to)
	s.notify.StateChanged(from, to)
}

func (s *Session) beginListening() {
	s.disarmTimer()
	s.userTurn++
	s.sendSeq = 0
	s.chunker.Reset()
	s.capture.Clear()
	s.ep.Reset()
	s.draining = false
	if err := s.src.Start(); err != nil {
		s.enterError(fmt.Errorf("mic start: %w", err))
		return
	}
	s.transition(StateListening)
}

// commitTurn ends the user's utterance: flush the short tail, tell the
// server the turn is complete, wait for the reply.
func (s *Session) commitTurn() {
	if s.state != StateListening {
		return
	}
	for {
		chunk, ok := s.capture.Pop()
		if !ok {
			break
		}
		if !s.sendAudio(chunk) {
			return
		}
	}
	if tail := s.chunker.Flush(); tail != nil {
		if !s.sendAudio(tail) {
			return
		}
	}
	commit := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindCommit, Turn: s.userTurn})
	if !s.send(commit) {
		return
	}
	// half duplex from here: the mic stays off until the agent either
	// starts talking (barge-in rearms it) or yields the floor
	s.src.Stop()
	s.transition(StateWaiting)
	s.armTimer(timerResponse, s.cfg.ResponseTimeout)
}

// startInterrupt cuts playback before the server hears about it: the
// speaker must go quiet the instant the user barges in, not a round trip
// later.
func (s *Session) startInterrupt(reason string) {
	if s.state != StateSpeaking {
		return
	}
	s.sink.Stop()
	s.playback.Clear()
	s.draining = false
	s.stats.interrupts++
	log.Infof("interrupting turn %d (%s)", s.serverTurn, reason)

	frame := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindInterrupt, Turn: s.serverTurn})
	if !s.send(frame) {
		return
	}
	s.transition(StateInterrupting)
	s.armTimer(timerInterrupt, s.cfg.InterruptTimeout)
}

// endSpeaking runs once the agent's turn is fully played out.
func (s *Session) endSpeaking() {
	s.sink.Stop()
	if s.cfg.OneShot {
		s.transition(StateIdle)
		s.shutdown()
		return
	}
	s.beginListening()
}

// --- timers ---

func (s *Session) armTimer(what timerKind, d time.Duration) {
	s.disarmTimer()
	s.timerWhat = what
	s.timer.Reset(d)
}

func (s *Session) disarmTimer() {
	s.timerWhat = timerNone
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
}

func (s *Session) handleTimer(what timerKind) {
	switch what {
	case timerReady:
		s.enterError(errors.New("server never sent ready"))
	case timerResponse:
		s.enterError(errors.New("server never answered the committed turn"))
	case timerInterrupt:
		// ack lost or server too slow; the speaker is already quiet,
		// so just hand the floor back to the user
		log.Warn("interrupt ack timed out")
		s.beginListening()
	case timerBackoff:
		s.connect()
	}
}

// --- per-tick audio movement ---

func (s *Session) tick(now time.Time) {
	switch s.state {
	case StateListening:
		s.tickListening(now)
	case StateSpeaking:
		s.tickSpeaking(now)
	case StateWaiting, StateInterrupting:
		// keep the mic queue drained so stale audio never leaks into
		// the next utterance
		for i := 0; i < maxChunksPerTick; i++ {
			if _, ok := s.src.NextChunk(); !ok {
				break
			}
		}
	}
}

func (s *Session) tickListening(now time.Time) {
	for i := 0; i < maxChunksPerTick; i++ {
		if s.capture.Full() {
			// backpressure: leave mic audio queued at the device edge
			// until the ring drains, rather than losing speech
			break
		}
		chunk, ok := s.src.NextChunk()
		if !ok {
			break
		}
		s.ep.Feed(chunk, now)
		for _, c := range s.chunker.Push(chunk) {
			if !s.capture.TryPush(c) {
				log.Warnf("capture ring full, refused mic chunk")
			}
		}
	}
	for {
		chunk, ok := s.capture.Pop()
		if !ok {
			break
		}
		if !s.sendAudio(chunk) {
			return
		}
	}
	if s.ep.Ended(now) {
		s.commitTurn()
	}
}

func (s *Session) tickSpeaking(now time.Time) {
	if s.cfg.BargeIn {
		for i := 0; i < maxChunksPerTick; i++ {
			chunk, ok := s.src.NextChunk()
			if !ok {
				break
			}
			if s.ep.Feed(chunk, now) {
				s.startInterrupt("voice detected")
				return
			}
		}
	}

	for i := 0; i < maxChunksPerTick; i++ {
		chunk, ok := s.playback.Peek()
		if !ok {
			break
		}
		accepted, err := s.sink.Write(chunk)
		if err != nil {
			log.Warnf("playback write: %v", err)
			break
		}
		if !accepted {
			// sink queue full; the device drains it at realtime and
			// the chunk stays in the ring until there is room
			break
		}
		s.playback.Pop()
	}
	if s.draining && s.playback.Len() == 0 && s.sink.Pending() == 0 {
		s.endSpeaking()
	}
}

// --- inbound frames ---

func (s *Session) handleRecv(m recvMsg) {
	if m.err != nil {
		if errors.Is(m.err, context.Canceled) {
			return
		}
		s.enterError(m.err)
		return
	}

	frame, err := wire.Decode(m.data)
	if err != nil {
		s.malformed++
		s.notify.Anomaly(fmt.Sprintf("dropped frame: %v", err))
		log.Warnf("dropped frame (%d consecutive): %v", s.malformed, err)
		if s.malformed >= malformedLimit {
			s.enterError(fmt.Errorf("protocol breakdown: %w", err))
		}
		return
	}
	s.malformed = 0

	switch f := frame.(type) {
	case wire.AudioFrame:
		s.handleAudio(f)
	case wire.ControlFrame:
		s.handleControl(f)
	}
}

func (s *Session) handleAudio(f wire.AudioFrame) {
	if s.state != StateSpeaking {
		// routinely happens right after an interrupt; the server's
		// in-flight audio is already obsolete
		return
	}
	if f.Turn != s.serverTurn {
		if f.Turn > s.serverTurn {
			s.anomaly(fmt.Sprintf("audio for future turn %d", f.Turn))
		}
		return
	}
	if f.Seq <= s.lastSeq {
		s.anomaly(fmt.Sprintf("audio seq %d after %d", f.Seq, s.lastSeq))
		return
	}
	s.lastSeq = f.Seq
	s.stats.recvChunks++
	if s.playback.Push(f.Data) {
		log.Warnf("playback ring full, dropped oldest chunk (turn %d)", s.serverTurn)
	}
}

func (s *Session) handleControl(f wire.ControlFrame) {
	switch f.Kind {
	case wire.KindReady:
		if s.state != StateConnecting {
			s.anomaly("ready outside handshake")
			return
		}
		s.bo.Reset()
		log.Infof("session ready, format %s %dHz", s.cfg.Format.Encoding, s.cfg.Format.SampleRateHz)
		s.beginListening()

	case wire.KindTurnStart:
		if s.state != StateWaiting {
			s.anomaly(fmt.Sprintf("turn_start in %s", s.state))
			return
		}
		s.disarmTimer()
		s.serverTurn = f.Turn
		s.lastSeq = -1
		s.draining = false
		s.playback.Clear()
		s.ep.Reset()
		if err := s.sink.Start(); err != nil {
			s.enterError(fmt.Errorf("speaker start: %w", err))
			return
		}
		if s.cfg.BargeIn {
			if err := s.src.Start(); err != nil {
				s.enterError(fmt.Errorf("mic start: %w", err))
				return
			}
		}
		s.transition(StateSpeaking)

	case wire.KindTurnEnd:
		switch s.state {
		case StateSpeaking:
			s.draining = true
		case StateWaiting:
			// turn_end with no turn_start; keep waiting for the real
			// reply, the response timer bounds how long
			s.anomaly("empty agent turn")
		default:
			s.anomaly(fmt.Sprintf("turn_end in %s", s.state))
		}

	case wire.KindInterruptAck:
		if s.state != StateInterrupting {
			s.anomaly(fmt.Sprintf("interrupt_ack in %s", s.state))
			return
		}
		s.beginListening()

	case wire.KindCaption:
		s.notify.Caption(f.Text, f.Final)

	case wire.KindError:
		s.enterError(fmt.Errorf("server error %s: %s", f.Code, f.Text))

	case wire.KindUnknown:
		// newer server, older client; fine

	default:
		s.anomaly(fmt.Sprintf("unexpected %s frame", f.Kind))
	}
}

func (s *Session) anomaly(detail string) {
	log.Warnf("protocol anomaly: %s", detail)
	s.notify.Anomaly(detail)
}

// --- outbound ---

func (s *Session) sendAudio(chunk []byte) bool {
	if !s.send(wire.EncodeAudio(chunk, s.userTurn, s.sendSeq)) {
		return false
	}
	s.sendSeq++
	s.stats.sentChunks++
	return true
}

// send pushes one frame, treating failure as connection loss. Returns
// false when the session has entered error handling.
func (s *Session) send(data []byte) bool {
	sendCtx, cancel := context.WithTimeout(s.runCtx, s.cfg.ConnectTimeout)
	err := s.ch.Send(sendCtx, data)
	cancel()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warnf("send failed: %v", err)
		}
		s.enterError(err)
		return false
	}
	return true
}

func (s *Session) logMetrics() {
	s.metricsOnce.Do(s.emitMetrics)
}

func (s *Session) emitMetrics() {
	log.SessionMetrics(log.SessionMetricsData{
		DurationS:     time.Since(s.started).Seconds(),
		SentChunks:    s.stats.sentChunks,
		RecvChunks:    s.stats.recvChunks,
		PlaybackDrops: s.playback.Dropped(),
		Reconnects:    s.stats.reconnects,
		Interrupts:    s.stats.interrupts,
		UserTurns:     s.userTurn,
	})
}
