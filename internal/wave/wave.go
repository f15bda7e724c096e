// Package wave loads PCM16 audio from RIFF/WAV files for the CLI and test
// fixtures. Decoding is delegated to go-audio; this package normalises the
// result to the mono int16 stream the detector consumes.
package wave

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// File is a decoded mono PCM16 audio stream.
type File struct {
	SampleRate int
	Samples    []int16
}

// Load reads a WAV file and returns its contents as mono 16-bit samples.
// Multi-channel input is down-mixed by averaging channels; bit depths other
// than 16 are rejected (the detector's contract is 16-bit PCM).
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wave: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wave: decode %q: %w", path, err)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("wave: %q is %d-bit, want 16-bit PCM", path, dec.BitDepth)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("wave: %q has no channels", path)
	}

	data := buf.Data
	samples := make([]int16, len(data)/channels)
	if channels == 1 {
		for i := range samples {
			samples[i] = int16(data[i])
		}
	} else {
		for i := range samples {
			var sum int
			for ch := 0; ch < channels; ch++ {
				sum += data[i*channels+ch]
			}
			samples[i] = int16(sum / channels)
		}
	}

	return &File{
		SampleRate: int(dec.SampleRate),
		Samples:    samples,
	}, nil
}

// Frames cuts the stream into consecutive full frames of frameSize samples.
// A trailing partial frame is dropped; the detector cannot classify it.
func (f *File) Frames(frameSize int) [][]int16 {
	if frameSize <= 0 {
		return nil
	}
	n := len(f.Samples) / frameSize
	frames := make([][]int16, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, f.Samples[i*frameSize:(i+1)*frameSize])
	}
	return frames
}
