package vad

import (
	"encoding/binary"
	"fmt"
)

// BytesToSamples decodes a little-endian 16-bit PCM buffer into samples.
// The buffer length must be even; frames arrive as 2 bytes per sample and an
// odd length means the caller handed over a torn buffer.
func BytesToSamples(pcm []byte) ([]int16, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrInvalidFrame, len(pcm))
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples, nil
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(s))
	}
	return pcm
}

// FloatsToSamples converts normalised float32 samples in [-1, 1] into int16
// by scaling with 32767. Out-of-range values clamp rather than wrap, so a
// slightly hot float stream degrades instead of glitching.
func FloatsToSamples(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, f := range samples {
		v := f * 32767
		switch {
		case v > 32767:
			out[i] = 32767
		case v < -32768:
			out[i] = -32768
		default:
			out[i] = int16(v)
		}
	}
	return out
}
