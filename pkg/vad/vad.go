// Package vad defines the contract for frame-based voice activity detection
// engines and the pieces every engine shares: configuration and its
// validation, the debounced speech/noise event machine, and lossless frame
// encodings.
//
// A Detector classifies fixed-size frames of 16-bit mono PCM one at a time.
// The frame size and sample rate are fixed at construction; each detector owns
// mutable model state that is updated on every classified frame, so a single
// detector must only ever be fed by one goroutine. Callers that process
// multiple audio streams create one detector per stream — detectors share no
// state.
//
// The GMM engine shipped with this module lives in the webrtc subpackage.
// DNN-backed engines (Silero and friends) are external collaborators that can
// implement the same interface; they are not part of this module.
package vad

import "errors"

// Errors returned by detector construction and per-frame calls. Engines wrap
// these with context; match with errors.Is.
var (
	// ErrInvalidConfiguration reports an unsupported (sample rate, frame
	// size) pair, an unknown mode, or a duration parameter out of range.
	ErrInvalidConfiguration = errors.New("vad: invalid configuration")

	// ErrInvalidFrame reports an input frame whose length does not match the
	// configured frame size. Frames are never truncated or padded.
	ErrInvalidFrame = errors.New("vad: invalid frame")

	// ErrClosed reports a call on a detector after Close.
	ErrClosed = errors.New("vad: detector is closed")

	// ErrEngineInit reports that the underlying engine failed to initialise.
	ErrEngineInit = errors.New("vad: engine initialisation failed")
)

// Event is the debounced output of a detector's hysteresis machine.
type Event int

const (
	// EventNone means the current frame did not cross a duration threshold.
	EventNone Event = iota

	// EventSpeechDetected fires once the configured minimum run of
	// consecutive speech frames has been exceeded.
	EventSpeechDetected

	// EventNoiseDetected fires once the configured minimum run of
	// consecutive non-speech frames has been exceeded.
	EventNoiseDetected
)

// String returns the event name for logs and wire encodings.
func (e Event) String() string {
	switch e {
	case EventSpeechDetected:
		return "speech_detected"
	case EventNoiseDetected:
		return "noise_detected"
	default:
		return "none"
	}
}

// Detector classifies PCM frames. Implementations are stateful and not safe
// for concurrent use; see the package documentation for the ownership model.
//
// All methods return ErrClosed after Close. Close itself is idempotent.
type Detector interface {
	// IsSpeech returns the raw per-frame decision. frame must contain
	// exactly the configured number of samples.
	IsSpeech(frame []int16) (bool, error)

	// OnFrame classifies frame and runs the result through the hysteresis
	// machine, returning the debounced event for this frame.
	OnFrame(frame []int16) (Event, error)

	// SetMode switches the aggressiveness operating point. The new
	// threshold tables take effect on the next classified frame; adaptive
	// model history is deliberately kept so a mode switch mid-stream does
	// not discard what the detector has learned about the background noise.
	SetMode(mode Mode) error

	// Close releases engine resources. Subsequent calls to the other
	// methods fail with ErrClosed; repeated Close calls return nil.
	Close() error
}

// BytesDetector is implemented by detectors that additionally accept frames
// as little-endian PCM16 byte buffers or normalised float32 buffers. Both
// encodings convert losslessly to the canonical int16 frame before
// classification.
type BytesDetector interface {
	Detector

	// IsSpeechBytes accepts a little-endian 16-bit PCM buffer of exactly
	// 2 x frameSize bytes.
	IsSpeechBytes(frame []byte) (bool, error)

	// IsSpeechFloats accepts samples in [-1, 1]; values outside the range
	// clamp. Scaling is by 32767.
	IsSpeechFloats(frame []float32) (bool, error)

	// OnFrameBytes is OnFrame for the byte encoding.
	OnFrameBytes(frame []byte) (Event, error)

	// OnFrameFloats is OnFrame for the float encoding.
	OnFrameFloats(frame []float32) (Event, error)
}

// EngineWebRTC names the GMM engine for config files and the serve protocol.
// It is the only engine this module ships; the constant exists so configs
// stay forward compatible with external engine plugins.
const EngineWebRTC = "webrtc"
