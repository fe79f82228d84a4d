package vad

import "time"

// Endpointer decides when the user has finished talking: after voice has
// been heard at least once, a continuous stretch of silence of the
// configured hold ends the utterance. Before the first voice, silence is
// just the user thinking; the hold clock does not run.
type Endpointer struct {
	det  Detector
	hold time.Duration

	heardVoice bool
	lastVoice  time.Time
}

func NewEndpointer(det Detector, hold time.Duration) *Endpointer {
	return &Endpointer{det: det, hold: hold}
}

// Feed consumes one capture chunk and reports whether it contained voice.
func (e *Endpointer) Feed(chunk []byte, now time.Time) bool {
	voiced := e.det.Voiced(chunk)
	if voiced {
		e.heardVoice = true
		e.lastVoice = now
	}
	return voiced
}

// Ended reports whether the utterance is over as of now.
func (e *Endpointer) Ended(now time.Time) bool {
	return e.heardVoice && now.Sub(e.lastVoice) >= e.hold
}

// HeardVoice reports whether any voice has arrived this utterance.
func (e *Endpointer) HeardVoice() bool { return e.heardVoice }

// Reset arms the endpointer for a new utterance.
func (e *Endpointer) Reset() {
	e.heardVoice = false
	e.lastVoice = time.Time{}
	e.det.Reset()
}
