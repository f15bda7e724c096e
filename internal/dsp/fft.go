package dsp

import "math"

// MaxFFTOrder is the largest supported FFT order (1024-point transform).
const MaxFFTOrder = 10

const fftTableSize = 1 << MaxFFTOrder

// sinTable holds sin(2*pi*i/1024) in Q14 for i in [0, 1024). Entry i+256 is
// the matching cosine. Rounded to nearest at init; the table is fixed for the
// lifetime of the process, so transforms stay reproducible.
var sinTable [fftTableSize + fftTableSize/4]int16

func init() {
	for i := range sinTable {
		sinTable[i] = int16(math.Round(16384 * math.Sin(2*math.Pi*float64(i)/fftTableSize)))
	}
}

// ComplexBitReverse reorders interleaved re/im pairs in data into bit-reversed
// index order for a 2^order point transform. data must hold 2*2^order values.
func ComplexBitReverse(data []int16, order int) {
	n := 1 << uint(order)
	for i, j := 0, 0; i < n-1; i++ {
		if i < j {
			data[2*i], data[2*j] = data[2*j], data[2*i]
			data[2*i+1], data[2*j+1] = data[2*j+1], data[2*i+1]
		}
		m := n >> 1
		for j >= m && m > 0 {
			j -= m
			m >>= 1
		}
		j += m
	}
}

// ComplexFFT performs an in-place radix-2 decimation-in-time FFT on
// interleaved re/im int16 pairs. data must hold 2*2^order values, already in
// bit-reversed order (see [ComplexBitReverse]).
//
// To keep every intermediate inside 16 bits the inputs of each butterfly
// stage are halved, so the output is scaled down by 2^order relative to the
// mathematical DFT. The returned value is that shift count. Twiddle products
// are Q14 with round-to-nearest.
//
// order must be in [1, MaxFFTOrder]; out-of-range orders return -1 and leave
// data untouched.
func ComplexFFT(data []int16, order int) int {
	if order < 1 || order > MaxFFTOrder {
		return -1
	}
	n := 1 << uint(order)

	// Twiddle stride through the quarter-extended sine table.
	k := MaxFFTOrder - 1
	for l := 1; l < n; l <<= 1 {
		istep := l << 1
		for m := 0; m < l; m++ {
			j := m << uint(k)
			wr := int32(sinTable[j+fftTableSize/4]) // cos
			wi := -int32(sinTable[j])               // -sin

			for i := m; i < n; i += istep {
				p := i + l
				tr := (wr*int32(data[2*p]) - wi*int32(data[2*p+1]) + 8192) >> 14
				ti := (wr*int32(data[2*p+1]) + wi*int32(data[2*p]) + 8192) >> 14

				qr := int32(data[2*i] >> 1)
				qi := int32(data[2*i+1] >> 1)

				data[2*p] = SatW32ToW16(qr - tr>>1)
				data[2*p+1] = SatW32ToW16(qi - ti>>1)
				data[2*i] = SatW32ToW16(qr + tr>>1)
				data[2*i+1] = SatW32ToW16(qi + ti>>1)
			}
		}
		k--
	}
	return order
}

// RealFFT computes the forward FFT of a real 16-bit signal of length 2^order.
// The result is written to out as interleaved re/im pairs (out must hold
// 2*2^order values); only bins 0..2^(order-1) carry information, the upper
// half is the conjugate mirror. The returned value is the scaling shift
// applied by [ComplexFFT], or -1 for an unsupported order or short input.
func RealFFT(in []int16, out []int16, order int) int {
	if order < 1 || order > MaxFFTOrder {
		return -1
	}
	n := 1 << uint(order)
	if len(in) < n || len(out) < 2*n {
		return -1
	}
	for i := 0; i < n; i++ {
		out[2*i] = in[i]
		out[2*i+1] = 0
	}
	ComplexBitReverse(out, order)
	return ComplexFFT(out, order)
}
