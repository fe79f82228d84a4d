package vad

import (
	"encoding/binary"
	"fmt"
	"math"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	frameMs  = 20
	debounce = 3 // consecutive speech frames to confirm voice
)

// Detector classifies PCM as voiced or silent. Implementations keep
// internal framing state, so one Detector serves one stream.
type Detector interface {
	// Voiced consumes one chunk and reports whether confirmed speech was
	// present in it. Chunks may be any sample-aligned size.
	Voiced(chunk []byte) bool
	Reset()
}

// WebRTC wraps the GIPS voice activity detector. Input chunks are
// re-framed to the 20ms frames the detector requires; a short run of
// speech frames is needed before voice is confirmed, which filters out
// clicks and breaths.
type WebRTC struct {
	vad        *webrtcvad.VAD
	sampleRate int
	frameBytes int
	buf        []byte
	speechRun  int
}

// NewWebRTC creates a detector for the given sample rate. Aggressiveness
// runs 0 (permissive) to 3 (strict).
func NewWebRTC(sampleRate, aggressiveness int) (*WebRTC, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(aggressiveness); err != nil {
		return nil, fmt.Errorf("vad mode %d: %w", aggressiveness, err)
	}
	return &WebRTC{
		vad:        v,
		sampleRate: sampleRate,
		frameBytes: sampleRate * frameMs / 1000 * 2,
	}, nil
}

func (d *WebRTC) Voiced(chunk []byte) bool {
	voiced := false
	d.buf = append(d.buf, chunk...)
	for len(d.buf) >= d.frameBytes {
		frame := d.buf[:d.frameBytes]
		d.buf = d.buf[d.frameBytes:]

		active, err := d.vad.Process(d.sampleRate, frame)
		if err != nil {
			continue
		}
		if active {
			d.speechRun++
			if d.speechRun >= debounce {
				voiced = true
			}
		} else {
			d.speechRun = 0
		}
	}
	return voiced
}

func (d *WebRTC) Reset() {
	d.buf = d.buf[:0]
	d.speechRun = 0
}

// Energy is an RMS-threshold fallback for platforms where the WebRTC
// detector is unavailable. Cruder, but good enough for end-of-utterance
// detection in a quiet room.
type Energy struct {
	threshold float64
}

// NewEnergy creates an energy detector. threshold is RMS amplitude in
// 16-bit sample units; 500 is a reasonable default for close-mic speech.
func NewEnergy(threshold float64) *Energy {
	if threshold <= 0 {
		threshold = 500
	}
	return &Energy{threshold: threshold}
}

func (d *Energy) Voiced(chunk []byte) bool {
	n := len(chunk) / 2
	if n == 0 {
		return false
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(n)) >= d.threshold
}

func (d *Energy) Reset() {}
