package server

import (
	"fmt"

	"layeh.com/gopus"
)

// opusDecoder wraps a gopus decoder for one mono stream session. A session
// keeps its own decoder so decoder state carries correctly across
// consecutive packets.
type opusDecoder struct {
	dec       *gopus.Decoder
	frameSize int
}

// newOpusDecoder creates a mono decoder for the session's sample rate. One
// Opus packet must decode to exactly frameSize samples.
func newOpusDecoder(sampleRate, frameSize int) (*opusDecoder, error) {
	dec, err := gopus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("server: create opus decoder: %w", err)
	}
	return &opusDecoder{dec: dec, frameSize: frameSize}, nil
}

// decode decodes an Opus packet into mono PCM samples.
func (d *opusDecoder) decode(packet []byte) ([]int16, error) {
	pcm, err := d.dec.Decode(packet, d.frameSize, false)
	if err != nil {
		return nil, fmt.Errorf("server: opus decode: %w", err)
	}
	if len(pcm) != d.frameSize {
		return nil, fmt.Errorf("server: opus packet decoded to %d samples, want %d", len(pcm), d.frameSize)
	}
	return pcm, nil
}
