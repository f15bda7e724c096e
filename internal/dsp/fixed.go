// Package dsp provides the fixed-point signal-processing primitives used by
// the voxgate classifier and CLI diagnostics.
//
// Everything here operates on 16-bit samples and 32-bit accumulators in
// Q-format fixed point. The routines are deliberately branch-for-branch
// deterministic: given the same inputs they produce the same outputs on every
// platform, which is what keeps classifier output reproducible against
// recorded reference sequences. No floating point is used on any path that
// feeds a classification decision.
//
// Overflow and division-by-zero semantics are saturating and documented per
// function, never undefined.
package dsp

import "math/bits"

// Saturation bounds for 16-bit samples.
const (
	MaxInt16 = 32767
	MinInt16 = -32768
)

const maxInt32 = 2147483647

// DivW32W16 divides a 32-bit numerator by a 16-bit denominator.
//
// Division by zero saturates to the maximum 32-bit value instead of trapping,
// matching the reference fixed-point library. The single overflowing case
// (MinInt32 / -1) saturates the same way.
func DivW32W16(num int32, den int16) int32 {
	if den == 0 {
		return maxInt32
	}
	if num == -2147483648 && den == -1 {
		return maxInt32
	}
	return num / int32(den)
}

// NormW32 returns the number of left shifts needed to normalise a to the
// range [1<<30, 1<<31) for positive values, or the symmetric range for
// negative values. Zero normalises to zero shifts.
func NormW32(a int32) int16 {
	if a == 0 {
		return 0
	}
	v := uint32(a)
	if a < 0 {
		v = uint32(^a)
	}
	return int16(bits.LeadingZeros32(v) - 1)
}

// NormU32 returns the number of left shifts needed to normalise an unsigned
// 32-bit value so its top bit is set. Zero normalises to zero shifts.
func NormU32(a uint32) int16 {
	if a == 0 {
		return 0
	}
	return int16(bits.LeadingZeros32(a))
}

// SqrtFloor returns the integer square root of value, rounded down.
// Negative input returns 0.
func SqrtFloor(value int32) int32 {
	if value <= 0 {
		return 0
	}
	var root int32
	for i := 15; i >= 0; i-- {
		try := (root + (1 << uint(i))) << uint(i)
		if value >= try {
			value -= try
			root |= 2 << uint(i)
		}
	}
	return root >> 1
}

// sizeInBits returns the number of bits required to represent n.
func sizeInBits(n uint32) int16 {
	return int16(32 - bits.LeadingZeros32(n))
}

// ScalingSquare returns the number of right shifts that must be applied to
// each squared sample of vector so that the sum of `times` such squares fits
// a 32-bit accumulator without overflow.
func ScalingSquare(vector []int16, times int) int16 {
	nbits := sizeInBits(uint32(times))
	var smax int32 = -1
	for _, v := range vector {
		sabs := int32(v)
		if sabs < 0 {
			sabs = -sabs
		}
		if sabs > smax {
			smax = sabs
		}
	}
	if smax == 0 {
		return 0
	}
	t := NormW32(smax * smax)
	if t > nbits {
		return 0
	}
	return nbits - t
}

// Energy computes the sum of squared samples. Each squared sample is right
// shifted by a scaling factor chosen so the accumulator cannot overflow; the
// applied shift count is returned alongside the energy, so callers can
// recover the true magnitude as energy << shifts.
func Energy(vector []int16) (energy int32, shifts int) {
	scaling := ScalingSquare(vector, len(vector))
	for _, v := range vector {
		energy += (int32(v) * int32(v)) >> uint(scaling)
	}
	return energy, int(scaling)
}

// CrossCorrelation computes dim lagged correlations between seq1 and seq2.
// Lag i correlates seq1 against seq2 offset by i*step samples. Each product
// is right shifted by rightShifts before accumulation; the caller chooses a
// shift (typically from ScalingSquare) that keeps the accumulator in range.
//
// seq2 must hold at least len(seq1)+(dim-1)*step samples when step is
// positive.
func CrossCorrelation(seq1, seq2 []int16, dim, rightShifts, step int) []int32 {
	out := make([]int32, dim)
	offset := 0
	for i := 0; i < dim; i++ {
		var corr int32
		for j, s := range seq1 {
			corr += (int32(s) * int32(seq2[offset+j])) >> uint(rightShifts)
		}
		out[i] = corr
		offset += step
	}
	return out
}

// ScaleVector multiplies each sample by a Q14 gain, right shifting the
// product back by 14 and saturating to 16 bits. in and out may alias.
func ScaleVector(in []int16, out []int16, gainQ14 int16) {
	for i, v := range in {
		out[i] = SatW32ToW16((int32(v) * int32(gainQ14)) >> 14)
	}
}

// SatW32ToW16 clamps a 32-bit value to the 16-bit sample range.
func SatW32ToW16(v int32) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}
