package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Earcon tones. Short cues played at state changes so the user knows the
// session is listening without looking at a screen.
const (
	listenFreq = 880.0
	listenVol  = 0.20
	doneFreq   = 660.0
	doneVol    = 0.15
	errorFreq  = 220.0
	errorVol   = 0.25
	toneDecay  = 18.0
	toneDur    = 0.15
	errToneDur = 0.08
	errToneGap = 0.05
)

// Tone synthesizes a decaying sine as 16-bit mono PCM.
func Tone(sampleRate int, freq, duration, volume, decay float64) []byte {
	n := int(float64(sampleRate) * duration)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ListenTone is played when the session starts listening.
func ListenTone(sampleRate int) []byte {
	return Tone(sampleRate, listenFreq, toneDur, listenVol, toneDecay)
}

// DoneTone is played when the user's turn is committed.
func DoneTone(sampleRate int) []byte {
	return Tone(sampleRate, doneFreq, toneDur, doneVol, toneDecay)
}

// ErrorTone is a low double beep.
func ErrorTone(sampleRate int) []byte {
	beep := Tone(sampleRate, errorFreq, errToneDur, errorVol, toneDecay)
	gap := make([]byte, int(float64(sampleRate)*errToneGap)*2)
	out := make([]byte, 0, len(beep)*2+len(gap))
	out = append(out, beep...)
	out = append(out, gap...)
	out = append(out, beep...)
	return out
}

// PlayOnce pushes pcm through a short-lived sink and waits for it to play
// out. Meant for earcons; conversation audio goes through the session's
// own sink.
func PlayOnce(ctx Context, config Config, pcm []byte) error {
	sink, err := ctx.NewSink(config)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.Start(); err != nil {
		return err
	}
	if _, err := sink.Write(pcm); err != nil {
		sink.Stop()
		return err
	}
	time.Sleep(time.Duration(len(pcm)) * time.Second / time.Duration(config.BytesPerSecond()))
	sink.Stop()
	return nil
}
