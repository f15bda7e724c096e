package main

import (
	"math"
	"testing"

	"github.com/MrWong99/voxgate/pkg/vad"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want vad.Mode
	}{
		{"normal", vad.ModeNormal},
		{"very_aggressive", vad.ModeVeryAggressive},
		{"0", vad.ModeNormal},
		{"3", vad.ModeVeryAggressive},
	}
	for _, tt := range tests {
		got, err := parseMode(tt.in)
		if err != nil {
			t.Errorf("parseMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "4", "-1", "extreme"} {
		if _, err := parseMode(bad); err == nil {
			t.Errorf("parseMode(%q) succeeded, want error", bad)
		}
	}
}

func TestFFTOrder(t *testing.T) {
	tests := []struct {
		frameSize int
		want      int
	}{
		{80, 6},
		{160, 7},
		{320, 8},
		{480, 8},
		{960, 9},
		{1440, 10},
		{4096, 10}, // capped at MaxFFTOrder
	}
	for _, tt := range tests {
		if got := fftOrder(tt.frameSize); got != tt.want {
			t.Errorf("fftOrder(%d) = %d, want %d", tt.frameSize, got, tt.want)
		}
	}
}

func TestFrameRMS(t *testing.T) {
	if got := frameRMS(make([]int16, 80)); got != 0 {
		t.Errorf("rms of silence = %d, want 0", got)
	}

	// A constant signal has an RMS equal to its amplitude.
	frame := make([]int16, 80)
	for i := range frame {
		frame[i] = 1000
	}
	if got := frameRMS(frame); got != 1000 {
		t.Errorf("rms of constant 1000 = %d, want 1000", got)
	}
}

func TestPeriodicity(t *testing.T) {
	const rate = 8000

	// A 200 Hz sine is strongly periodic.
	tone := make([]int16, 240)
	for i := range tone {
		tone[i] = int16(math.Round(8000 * math.Sin(2*math.Pi*200*float64(i)/rate)))
	}
	if got := periodicity(tone, rate); got < 0.8 {
		t.Errorf("periodicity(200 Hz tone) = %.2f, want >= 0.8", got)
	}

	// Silence scores zero.
	if got := periodicity(make([]int16, 240), rate); got != 0 {
		t.Errorf("periodicity(silence) = %.2f, want 0", got)
	}
}
