package vad_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/voxgate/pkg/vad"
)

func TestBytesToSamples_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}

	got, err := vad.BytesToSamples(vad.SamplesToBytes(samples))
	if err != nil {
		t.Fatalf("BytesToSamples: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestBytesToSamples_LittleEndian(t *testing.T) {
	got, err := vad.BytesToSamples([]byte{0x34, 0x12})
	if err != nil {
		t.Fatalf("BytesToSamples: %v", err)
	}
	if got[0] != 0x1234 {
		t.Errorf("sample = %#x, want 0x1234", got[0])
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	_, err := vad.BytesToSamples([]byte{1, 2, 3})
	if !errors.Is(err, vad.ErrInvalidFrame) {
		t.Errorf("err = %v, want ErrInvalidFrame", err)
	}
}

func TestFloatsToSamples(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{0.5, 16383},
		{2.0, 32767},    // clamps
		{-2.0, -32768},  // clamps
		{1.0001, 32767}, // slightly hot stream clamps too
	}
	for _, tt := range tests {
		got := vad.FloatsToSamples([]float32{tt.in})
		if got[0] != tt.want {
			t.Errorf("FloatsToSamples(%v) = %d, want %d", tt.in, got[0], tt.want)
		}
	}
}
