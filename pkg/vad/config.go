package vad

import (
	"fmt"
	"slices"
)

// Mode selects one of four pretrained aggressiveness operating points. Higher
// modes trade recall for precision: they misfire less on noise but clip more
// quiet speech.
type Mode int

const (
	ModeNormal Mode = iota
	ModeLowBitrate
	ModeAggressive
	ModeVeryAggressive
)

// modeNames is indexed by Mode.
var modeNames = [...]string{"normal", "low_bitrate", "aggressive", "very_aggressive"}

// IsValid reports whether m is one of the four defined modes.
func (m Mode) IsValid() bool {
	return m >= ModeNormal && m <= ModeVeryAggressive
}

func (m Mode) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a config-file name into a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, s)
}

// MaxDurationMs bounds the speech/silence duration parameters (5 minutes).
const MaxDurationMs = 300000

// Config holds the parameters for one detector instance. SampleRate and
// FrameSize are fixed for the detector's lifetime; Mode can be changed later
// via Detector.SetMode.
type Config struct {
	// SampleRate of the input PCM in Hz: 8000, 16000, 32000 or 48000.
	SampleRate int

	// FrameSize in samples. Must pair with SampleRate to a 10, 20 or 30 ms
	// frame; see ValidFrameSizes.
	FrameSize int

	// Mode is the initial aggressiveness operating point.
	Mode Mode

	// SpeechDurationMs is the minimum run of consecutive speech frames,
	// expressed as a duration, before EventSpeechDetected fires. Zero means
	// every speech frame fires.
	SpeechDurationMs int

	// SilenceDurationMs is the counterpart for EventNoiseDetected.
	SilenceDurationMs int

	// LevelTriggered switches the hysteresis machine from the default
	// edge-triggered policy (counter resets once an event fires) to the
	// sticky policy kept for parity with older revisions: once past the
	// threshold the event repeats every frame until the opposite class
	// crosses its own threshold.
	LevelTriggered bool
}

// validFrames maps each supported sample rate to its legal frame sizes
// (10, 20 and 30 ms frames only).
var validFrames = map[int][]int{
	8000:  {80, 160, 240},
	16000: {160, 320, 480},
	32000: {320, 640, 960},
	48000: {480, 960, 1440},
}

// ValidSampleRates returns the supported sample rates in ascending order.
func ValidSampleRates() []int {
	return []int{8000, 16000, 32000, 48000}
}

// ValidFrameSizes returns the legal frame sizes for sampleRate in ascending
// order, or nil for an unsupported rate. The returned slice is a copy.
func ValidFrameSizes(sampleRate int) []int {
	return slices.Clone(validFrames[sampleRate])
}

// ValidateFrame checks a (sample rate, frame size) pair against the fixed
// support table.
func ValidateFrame(sampleRate, frameSize int) error {
	sizes, ok := validFrames[sampleRate]
	if !ok {
		return fmt.Errorf("%w: unsupported sample rate %d Hz", ErrInvalidConfiguration, sampleRate)
	}
	if !slices.Contains(sizes, frameSize) {
		return fmt.Errorf("%w: frame size %d unsupported at %d Hz (valid: %v)",
			ErrInvalidConfiguration, frameSize, sampleRate, sizes)
	}
	return nil
}

// Validate checks the whole configuration. It returns an error wrapping
// ErrInvalidConfiguration on the first violation found.
func (c Config) Validate() error {
	if err := ValidateFrame(c.SampleRate, c.FrameSize); err != nil {
		return err
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: mode %d out of range 0-3", ErrInvalidConfiguration, int(c.Mode))
	}
	if c.SpeechDurationMs < 0 || c.SpeechDurationMs > MaxDurationMs {
		return fmt.Errorf("%w: speech duration %d ms outside 0-%d",
			ErrInvalidConfiguration, c.SpeechDurationMs, MaxDurationMs)
	}
	if c.SilenceDurationMs < 0 || c.SilenceDurationMs > MaxDurationMs {
		return fmt.Errorf("%w: silence duration %d ms outside 0-%d",
			ErrInvalidConfiguration, c.SilenceDurationMs, MaxDurationMs)
	}
	return nil
}

// FrameDurationMs returns the duration of one frame in milliseconds.
func (c Config) FrameDurationMs() int {
	return c.FrameSize / (c.SampleRate / 1000)
}

// FrameCount converts a duration in milliseconds into a whole number of
// frames at the given rate and frame size, rounding down. Non-positive
// durations and degenerate frame geometries yield zero.
func FrameCount(sampleRate, frameSize, durationMs int) int {
	if durationMs <= 0 || sampleRate < 1000 || frameSize <= 0 {
		return 0
	}
	frameMs := frameSize / (sampleRate / 1000)
	if frameMs <= 0 {
		return 0
	}
	return durationMs / frameMs
}
