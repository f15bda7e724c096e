package dsp

import (
	"math"
	"testing"
)

func TestDivW32W16(t *testing.T) {
	tests := []struct {
		name string
		num  int32
		den  int16
		want int32
	}{
		{"simple", 100, 10, 10},
		{"truncates", 7, 2, 3},
		{"negative num", -100, 10, -10},
		{"negative den", 100, -10, -10},
		{"zero divisor saturates", 42, 0, math.MaxInt32},
		{"overflow case saturates", math.MinInt32, -1, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DivW32W16(tt.num, tt.den); got != tt.want {
				t.Errorf("DivW32W16(%d, %d) = %d, want %d", tt.num, tt.den, got, tt.want)
			}
		})
	}
}

func TestNormW32(t *testing.T) {
	tests := []struct {
		in   int32
		want int16
	}{
		{0, 0},
		{1, 30},
		{-1, 31},
		{math.MaxInt32, 0},
		{math.MinInt32, 0},
		{1 << 14, 16},
		{-(1 << 14), 17},
	}
	for _, tt := range tests {
		if got := NormW32(tt.in); got != tt.want {
			t.Errorf("NormW32(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// NormW32 must shift a positive value into [2^30, 2^31).
func TestNormW32_Normalises(t *testing.T) {
	for _, v := range []int32{1, 2, 3, 100, 12345, 1 << 20, math.MaxInt32 / 3} {
		n := NormW32(v)
		norm := int64(v) << uint(n)
		if norm < 1<<30 || norm >= 1<<31 {
			t.Errorf("NormW32(%d) = %d: %d << %d = %d out of range", v, n, v, n, norm)
		}
	}
}

func TestNormU32(t *testing.T) {
	tests := []struct {
		in   uint32
		want int16
	}{
		{0, 0},
		{1, 31},
		{math.MaxUint32, 0},
		{1 << 16, 15},
	}
	for _, tt := range tests {
		if got := NormU32(tt.in); got != tt.want {
			t.Errorf("NormU32(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSqrtFloor(t *testing.T) {
	tests := []struct {
		in   int32
		want int32
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{1 << 30, 1 << 15},
		{math.MaxInt32, 46340},
	}
	for _, tt := range tests {
		if got := SqrtFloor(tt.in); got != tt.want {
			t.Errorf("SqrtFloor(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnergy_RecoversTrueMagnitude(t *testing.T) {
	vec := []int16{100, -200, 300, -400}
	var want int64
	for _, v := range vec {
		want += int64(v) * int64(v)
	}

	energy, shifts := Energy(vec)
	if got := int64(energy) << uint(shifts); got != want {
		t.Errorf("energy %d << %d = %d, want %d", energy, shifts, got, want)
	}
}

func TestEnergy_Zero(t *testing.T) {
	energy, shifts := Energy(make([]int16, 80))
	if energy != 0 || shifts != 0 {
		t.Errorf("Energy(zeros) = %d, %d, want 0, 0", energy, shifts)
	}
}

func TestCrossCorrelation_LagZeroIsEnergy(t *testing.T) {
	seq := []int16{10, -20, 30, -40, 50}
	corr := CrossCorrelation(seq, seq, 1, 0, 1)

	var want int32
	for _, v := range seq {
		want += int32(v) * int32(v)
	}
	if corr[0] != want {
		t.Errorf("lag-0 correlation = %d, want %d", corr[0], want)
	}
}

func TestCrossCorrelation_Lags(t *testing.T) {
	seq1 := []int16{1, 2}
	seq2 := []int16{1, 2, 3, 4}
	corr := CrossCorrelation(seq1, seq2, 3, 0, 1)

	want := []int32{1*1 + 2*2, 1*2 + 2*3, 1*3 + 2*4}
	for i := range want {
		if corr[i] != want[i] {
			t.Errorf("corr[%d] = %d, want %d", i, corr[i], want[i])
		}
	}
}

func TestScaleVector(t *testing.T) {
	in := []int16{1 << 14, -(1 << 14), 1000}
	out := make([]int16, len(in))

	// Unity gain in Q14.
	ScaleVector(in, out, 1<<14)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("unity gain: out[%d] = %d, want %d", i, out[i], in[i])
		}
	}

	// Maximum gain is just under 2.0.
	ScaleVector(in, out, 1<<15-1)
	if out[2] >= 2000 || out[2] < 1990 {
		t.Errorf("double gain: out[2] = %d, want just below 2000", out[2])
	}
}

func TestSatW32ToW16(t *testing.T) {
	tests := []struct {
		in   int32
		want int16
	}{
		{0, 0},
		{32767, 32767},
		{32768, 32767},
		{-32768, -32768},
		{-32769, -32768},
		{math.MaxInt32, 32767},
		{math.MinInt32, -32768},
	}
	for _, tt := range tests {
		if got := SatW32ToW16(tt.in); got != tt.want {
			t.Errorf("SatW32ToW16(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
