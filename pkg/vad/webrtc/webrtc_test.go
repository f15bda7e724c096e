package webrtc_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/MrWong99/voxgate/pkg/vad"
	"github.com/MrWong99/voxgate/pkg/vad/webrtc"
)

func newDetector(t *testing.T, cfg vad.Config) *webrtc.Detector {
	t.Helper()
	det, err := webrtc.New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	t.Cleanup(func() { det.Close() })
	return det
}

// noisyFrame fills a frame with deterministic pseudo-random wideband noise.
func noisyFrame(rng *rand.Rand, size int) []int16 {
	frame := make([]int16, size)
	for i := range frame {
		frame[i] = int16(rng.Intn(16000) - 8000)
	}
	return frame
}

// voicedFrame synthesises a loud harmonic signal with a 120 Hz fundamental,
// phase-continuous across consecutive frame indices.
func voicedFrame(rate, size, index int) []int16 {
	frame := make([]int16, size)
	for i := range frame {
		ts := float64(index*size+i) / float64(rate)
		s := 9000*math.Sin(2*math.Pi*120*ts) +
			6000*math.Sin(2*math.Pi*240*ts) +
			3000*math.Sin(2*math.Pi*480*ts)
		frame[i] = int16(s)
	}
	return frame
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  vad.Config
	}{
		{"zero config", vad.Config{}},
		{"bad rate", vad.Config{SampleRate: 44100, FrameSize: 441}},
		{"bad frame", vad.Config{SampleRate: 16000, FrameSize: 200}},
		{"bad mode", vad.Config{SampleRate: 16000, FrameSize: 320, Mode: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := webrtc.New(tt.cfg); !errors.Is(err, vad.ErrInvalidConfiguration) {
				t.Errorf("New() err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestDetector_AllSupportedGeometries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, rate := range vad.ValidSampleRates() {
		for _, size := range vad.ValidFrameSizes(rate) {
			det := newDetector(t, vad.Config{SampleRate: rate, FrameSize: size})
			for i := 0; i < 5; i++ {
				if _, err := det.IsSpeech(noisyFrame(rng, size)); err != nil {
					t.Errorf("IsSpeech at %d Hz / %d samples: %v", rate, size, err)
				}
			}
		}
	}
}

// Two detectors with identical configuration fed identical frames must make
// bit-identical decisions: the engine has no hidden randomness.
func TestDetector_Deterministic(t *testing.T) {
	cfg := vad.Config{SampleRate: 16000, FrameSize: 320, Mode: vad.ModeNormal}
	a := newDetector(t, cfg)
	b := newDetector(t, cfg)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		frame := noisyFrame(rng, cfg.FrameSize)

		gotA, err := a.IsSpeech(frame)
		if err != nil {
			t.Fatalf("frame %d: a: %v", i, err)
		}
		gotB, err := b.IsSpeech(frame)
		if err != nil {
			t.Fatalf("frame %d: b: %v", i, err)
		}
		if gotA != gotB {
			t.Fatalf("frame %d: a=%v b=%v, want identical decisions", i, gotA, gotB)
		}
	}
}

func TestDetector_SilenceIsNeverSpeech(t *testing.T) {
	det := newDetector(t, vad.Config{SampleRate: 8000, FrameSize: 80})
	silence := make([]int16, 80)

	for i := 0; i < 50; i++ {
		speech, err := det.IsSpeech(silence)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if speech {
			t.Fatalf("frame %d: silence classified as speech", i)
		}
	}
}

func TestDetector_WrongFrameLength(t *testing.T) {
	det := newDetector(t, vad.Config{SampleRate: 16000, FrameSize: 320})

	for _, n := range []int{0, 1, 319, 321, 640} {
		if _, err := det.IsSpeech(make([]int16, n)); !errors.Is(err, vad.ErrInvalidFrame) {
			t.Errorf("IsSpeech(%d samples) err = %v, want ErrInvalidFrame", n, err)
		}
	}

	// Byte frames must be exactly 2x the frame size.
	if _, err := det.IsSpeechBytes(make([]byte, 320)); !errors.Is(err, vad.ErrInvalidFrame) {
		t.Errorf("IsSpeechBytes(320 bytes) err = %v, want ErrInvalidFrame", err)
	}
	if _, err := det.IsSpeechBytes(make([]byte, 641)); !errors.Is(err, vad.ErrInvalidFrame) {
		t.Errorf("IsSpeechBytes(odd bytes) err = %v, want ErrInvalidFrame", err)
	}
}

func TestDetector_ByteAndFloatFrames(t *testing.T) {
	det := newDetector(t, vad.Config{SampleRate: 16000, FrameSize: 320})

	if speech, err := det.IsSpeechBytes(make([]byte, 640)); err != nil || speech {
		t.Errorf("IsSpeechBytes(silence) = %v, %v, want false, nil", speech, err)
	}
	if speech, err := det.IsSpeechFloats(make([]float32, 320)); err != nil || speech {
		t.Errorf("IsSpeechFloats(silence) = %v, %v, want false, nil", speech, err)
	}
}

func TestDetector_NoiseEventAfterSilenceRun(t *testing.T) {
	// 10 ms frames, 100 ms of required silence: threshold is 10 frames, so
	// the event fires on frame index 10 (the 11th frame).
	det := newDetector(t, vad.Config{
		SampleRate:        8000,
		FrameSize:         80,
		SilenceDurationMs: 100,
	})
	silence := make([]int16, 80)

	for i := 0; i < 10; i++ {
		ev, err := det.OnFrame(silence)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if ev != vad.EventNone {
			t.Fatalf("frame %d: event %v, want none", i, ev)
		}
	}
	ev, err := det.OnFrame(silence)
	if err != nil {
		t.Fatalf("frame 10: %v", err)
	}
	if ev != vad.EventNoiseDetected {
		t.Fatalf("frame 10: event %v, want noise_detected", ev)
	}
}

func TestDetector_SetMode(t *testing.T) {
	det := newDetector(t, vad.Config{SampleRate: 16000, FrameSize: 320, Mode: vad.ModeNormal})

	if err := det.SetMode(vad.ModeVeryAggressive); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if got := det.Config().Mode; got != vad.ModeVeryAggressive {
		t.Errorf("Config().Mode = %v, want very_aggressive", got)
	}

	if err := det.SetMode(5); !errors.Is(err, vad.ErrInvalidConfiguration) {
		t.Errorf("SetMode(5) = %v, want ErrInvalidConfiguration", err)
	}

	// The detector must keep classifying after a mode switch.
	if _, err := det.IsSpeech(make([]int16, 320)); err != nil {
		t.Errorf("IsSpeech after SetMode: %v", err)
	}
}

// A detector warmed on silence must flag a loud voiced signal as speech, and
// once triggered it must hold the decision for as long as the signal lasts.
// The per-frame sequence is the regression surface: silence all false, one
// onset transition inside the first few voiced frames, then all true.
func TestDetector_VoicedSignalOnset(t *testing.T) {
	cfg := vad.Config{SampleRate: 8000, FrameSize: 80, Mode: vad.ModeNormal}
	det := newDetector(t, cfg)

	const silentFrames = 30
	silence := make([]int16, cfg.FrameSize)
	for i := 0; i < silentFrames; i++ {
		got, err := det.IsSpeech(silence)
		if err != nil {
			t.Fatalf("silent frame %d: %v", i, err)
		}
		if got {
			t.Fatalf("silent frame %d classified as speech", i)
		}
	}

	const voicedFrames = 50
	got := make([]bool, 0, voicedFrames)
	for i := 0; i < voicedFrames; i++ {
		speech, err := det.IsSpeech(voicedFrame(cfg.SampleRate, cfg.FrameSize, i))
		if err != nil {
			t.Fatalf("voiced frame %d: %v", i, err)
		}
		got = append(got, speech)
	}

	onset := -1
	for i, v := range got {
		if v {
			onset = i
			break
		}
	}
	if onset < 0 {
		t.Fatalf("voiced signal never classified as speech over %d frames", voicedFrames)
	}
	const maxOnset = 10
	if onset > maxOnset {
		t.Errorf("speech onset at voiced frame %d, want within %d frames", onset, maxOnset)
	}
	for i := onset; i < len(got); i++ {
		if !got[i] {
			t.Errorf("voiced frame %d: decision dropped to false after onset at %d", i, onset)
		}
	}
}

// SetMode swaps decision thresholds but keeps the adapted noise model: a
// detector that has learned a noise profile keeps diverging from a fresh
// detector constructed directly in the new mode.
func TestDetector_SetModeKeepsAdaptiveHistory(t *testing.T) {
	cfg := vad.Config{SampleRate: 16000, FrameSize: 320, Mode: vad.ModeNormal}
	adapted := newDetector(t, cfg)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		if _, err := adapted.IsSpeech(noisyFrame(rng, cfg.FrameSize)); err != nil {
			t.Fatalf("warmup frame %d: %v", i, err)
		}
	}
	if err := adapted.SetMode(vad.ModeVeryAggressive); err != nil {
		t.Fatalf("SetMode: %v", err)
	}

	fresh := newDetector(t, vad.Config{
		SampleRate: cfg.SampleRate,
		FrameSize:  cfg.FrameSize,
		Mode:       vad.ModeVeryAggressive,
	})

	shared := rand.New(rand.NewSource(23))
	diverged := false
	for i := 0; i < 50; i++ {
		frame := noisyFrame(shared, cfg.FrameSize)

		gotAdapted, err := adapted.IsSpeech(frame)
		if err != nil {
			t.Fatalf("frame %d: adapted: %v", i, err)
		}
		gotFresh, err := fresh.IsSpeech(frame)
		if err != nil {
			t.Fatalf("frame %d: fresh: %v", i, err)
		}
		if gotAdapted != gotFresh {
			diverged = true
		}
	}
	if !diverged {
		t.Errorf("adapted and fresh detectors agreed on every frame; the mode switch discarded the learned noise model")
	}
}

func TestDetector_DurationSettersAndGetters(t *testing.T) {
	det := newDetector(t, vad.Config{
		SampleRate:        16000,
		FrameSize:         320,
		SpeechDurationMs:  300,
		SilenceDurationMs: 600,
	})

	if got := det.SpeechDurationMs(); got != 300 {
		t.Errorf("SpeechDurationMs() = %d, want 300", got)
	}
	if got := det.SilenceDurationMs(); got != 600 {
		t.Errorf("SilenceDurationMs() = %d, want 600", got)
	}

	if err := det.SetSpeechDurationMs(100); err != nil {
		t.Fatalf("SetSpeechDurationMs: %v", err)
	}
	if got := det.SpeechDurationMs(); got != 100 {
		t.Errorf("SpeechDurationMs() after set = %d, want 100", got)
	}

	if err := det.SetSilenceDurationMs(vad.MaxDurationMs + 1); !errors.Is(err, vad.ErrInvalidConfiguration) {
		t.Errorf("SetSilenceDurationMs(too long) = %v, want ErrInvalidConfiguration", err)
	}
}

func TestDetector_CloseIsIdempotent(t *testing.T) {
	det, err := webrtc.New(vad.Config{SampleRate: 16000, FrameSize: 320})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := det.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := det.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := det.IsSpeech(make([]int16, 320)); !errors.Is(err, vad.ErrClosed) {
		t.Errorf("IsSpeech after Close = %v, want ErrClosed", err)
	}
	if _, err := det.OnFrame(make([]int16, 320)); !errors.Is(err, vad.ErrClosed) {
		t.Errorf("OnFrame after Close = %v, want ErrClosed", err)
	}
	if err := det.SetMode(vad.ModeNormal); !errors.Is(err, vad.ErrClosed) {
		t.Errorf("SetMode after Close = %v, want ErrClosed", err)
	}
}
