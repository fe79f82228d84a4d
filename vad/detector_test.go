package vad

import (
	"encoding/binary"
	"testing"
)

func pcmWithAmplitude(samples int, amp int16) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amp
		if i%2 == 1 {
			v = -amp
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestEnergySilence(t *testing.T) {
	d := NewEnergy(500)
	if d.Voiced(make([]byte, 640)) {
		t.Error("all-zero pcm classified as voice")
	}
}

func TestEnergyLoud(t *testing.T) {
	d := NewEnergy(500)
	if !d.Voiced(pcmWithAmplitude(320, 4000)) {
		t.Error("loud pcm not classified as voice")
	}
}

func TestEnergyThresholdBoundary(t *testing.T) {
	d := NewEnergy(500)
	// RMS of a constant-magnitude square wave equals its amplitude
	if d.Voiced(pcmWithAmplitude(320, 499)) {
		t.Error("sub-threshold pcm classified as voice")
	}
	if !d.Voiced(pcmWithAmplitude(320, 500)) {
		t.Error("at-threshold pcm not classified as voice")
	}
}

func TestEnergyEmptyChunk(t *testing.T) {
	d := NewEnergy(500)
	if d.Voiced(nil) {
		t.Error("empty chunk classified as voice")
	}
}

func TestEnergyDefaultThreshold(t *testing.T) {
	d := NewEnergy(0)
	if !d.Voiced(pcmWithAmplitude(320, 8000)) {
		t.Error("default threshold rejects clearly loud audio")
	}
}
