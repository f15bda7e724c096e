package webrtc

import "github.com/MrWong99/voxgate/internal/dsp"

const (
	// compVar is the largest exponent (Q10) that still yields a non-zero
	// probability; anything beyond underflows to zero.
	compVar = 22005

	// log2Exp is log2(e) in Q12, used to turn the natural-log exponent into
	// a power of two.
	log2Exp = 5909
)

// gaussianProbability evaluates a single Gaussian component at input.
//
// It returns (1/s) * exp(-(x-m)^2 / (2*s^2)) in Q20, where the mean m and the
// standard deviation s are Q7 and the input x is Q4. The second return value
// is delta = (x-m)/s^2 in Q11, which the adaptation step reuses as the
// gradient direction for the mean update.
//
// The exponential is approximated in the power-of-two domain: the mantissa
// 1.f is assembled from the fractional bits and shifted down by the integer
// part. Exponents past compVar underflow to a zero probability.
func gaussianProbability(input, mean, std int16) (prob int32, delta int16) {
	// invStd = 1/s in Q10; 131072 is 1.0 in Q17 and the half-std addend
	// rounds the division instead of truncating.
	invStd := int16(dsp.DivW32W16(131072+int32(std>>1), std))

	// invStd2 = 1/s^2 in Q14.
	tmp16 := invStd >> 2 // Q10 -> Q8
	invStd2 := int16((int32(tmp16) * int32(tmp16)) >> 2)

	tmp16 = input << 3   // Q4 -> Q7
	tmp16 = tmp16 - mean // Q7

	// delta = (x-m)/s^2 in Q11 = (Q14*Q7)>>10.
	delta = int16((int32(invStd2) * int32(tmp16)) >> 10)

	// Exponent (x-m)^2 / (2*s^2) in Q10 = (Q11*Q7)>>8, with the division by
	// two folded into the shift.
	tmp32 := (int32(delta) * int32(tmp16)) >> 9

	var expValue int16
	if tmp32 < compVar {
		// log2(e) * exponent in Q10.
		tmp16 = int16((log2Exp * tmp32) >> 12)
		tmp16 = -tmp16
		expValue = 0x0400 | (tmp16 & 0x03FF)
		tmp16 ^= -1
		tmp16 >>= 10
		tmp16++
		expValue >>= uint(tmp16)
	}

	// Q10 * Q10 = Q20.
	return int32(invStd) * int32(expValue), delta
}
