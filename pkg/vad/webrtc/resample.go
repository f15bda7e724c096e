package webrtc

// 48 kHz input cannot reach 8 kHz through the half-band decimator alone, so
// it runs a dedicated multi-stage chain per 10 ms block:
//
//	48 kHz --/2--> 24 kHz --LP--> 24 kHz --2/3--> 16 kHz --/2--> 8 kHz
//
// All stages are all-pass polyphase pairs in Q15 carried in 32-bit state;
// the fractional 2/3 stage is an 8-tap FIR interpolator.

// resampleAllpass holds the three cascade coefficients for the lower [0] and
// upper [1] all-pass branches (Q14).
var resampleAllpass = [2][3]int16{
	{821, 6110, 12382},
	{3050, 9368, 15063},
}

// coeffs48To32 are the two interpolation phases of the 2/3 resampler (Q15).
var coeffs48To32 = [2][8]int16{
	{778, -2050, 1087, 23285, 12903, -3783, 441, 222},
	{222, 441, -3783, 12903, 23285, 1087, -2050, 778},
}

// resamplerState carries the four stage states of the 48 kHz -> 8 kHz chain
// between frames.
type resamplerState struct {
	s48to24 [8]int32
	s24lp   [16]int32
	s24to16 [8]int32
	s16to8  [8]int32
}

func (s *resamplerState) reset() {
	clear(s.s48to24[:])
	clear(s.s24lp[:])
	clear(s.s24to16[:])
	clear(s.s16to8[:])
}

// downBy2ShortToInt decimates int16 input by two into a 32-bit intermediate
// representation (scaled up by 2^15 with a rounding offset). state holds the
// eight branch delays.
func downBy2ShortToInt(in []int16, length int, out []int32, state []int32) {
	length >>= 1

	// Lower branch over even samples.
	for i := 0; i < length; i++ {
		tmp0 := (int32(in[i<<1]) << 15) + (1 << 14)
		diff := tmp0 - state[1]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[0] + diff*int32(resampleAllpass[1][0])
		state[0] = tmp0
		diff = tmp1 - state[2]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[1] + diff*int32(resampleAllpass[1][1])
		state[1] = tmp1
		diff = tmp0 - state[3]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[3] = state[2] + diff*int32(resampleAllpass[1][2])
		state[2] = tmp0

		out[i] = state[3] >> 1
	}

	// Upper branch over odd samples, accumulated onto the lower output.
	for i := 0; i < length; i++ {
		tmp0 := (int32(in[(i<<1)+1]) << 15) + (1 << 14)
		diff := tmp0 - state[5]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[4] + diff*int32(resampleAllpass[0][0])
		state[4] = tmp0
		diff = tmp1 - state[6]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[5] + diff*int32(resampleAllpass[0][1])
		state[5] = tmp1
		diff = tmp0 - state[7]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[7] = state[6] + diff*int32(resampleAllpass[0][2])
		state[6] = tmp0

		out[i] += state[7] >> 1
	}
}

// downBy2IntToShort decimates the 32-bit intermediate representation by two
// and saturates back to int16. in is clobbered as scratch.
func downBy2IntToShort(in []int32, length int, out []int16, state []int32) {
	length >>= 1

	// Lower branch over even samples.
	for i := 0; i < length; i++ {
		tmp0 := in[i<<1]
		diff := tmp0 - state[1]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[0] + diff*int32(resampleAllpass[1][0])
		state[0] = tmp0
		diff = tmp1 - state[2]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[1] + diff*int32(resampleAllpass[1][1])
		state[1] = tmp1
		diff = tmp0 - state[3]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[3] = state[2] + diff*int32(resampleAllpass[1][2])
		state[2] = tmp0

		in[i<<1] = state[3] >> 1
	}

	// Upper branch over odd samples.
	for i := 0; i < length; i++ {
		tmp0 := in[(i<<1)+1]
		diff := tmp0 - state[5]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[4] + diff*int32(resampleAllpass[0][0])
		state[4] = tmp0
		diff = tmp1 - state[6]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[5] + diff*int32(resampleAllpass[0][1])
		state[5] = tmp1
		diff = tmp0 - state[7]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[7] = state[6] + diff*int32(resampleAllpass[0][2])
		state[6] = tmp0

		in[(i<<1)+1] = state[7] >> 1
	}

	// Combine branch outputs, scale back down and saturate.
	for i := 0; i < length; i += 2 {
		tmp0 := (in[i<<1] + in[(i<<1)+1]) >> 15
		tmp1 := (in[(i<<1)+2] + in[(i<<1)+3]) >> 15
		if tmp0 > 0x00007FFF {
			tmp0 = 0x00007FFF
		}
		if tmp0 < -0x00008000 {
			tmp0 = -0x00008000
		}
		out[i] = int16(tmp0)
		if tmp1 > 0x00007FFF {
			tmp1 = 0x00007FFF
		}
		if tmp1 < -0x00008000 {
			tmp1 = -0x00008000
		}
		out[i+1] = int16(tmp1)
	}
}

// lowPassBy2IntToInt low-pass filters the intermediate representation at half
// band without decimating (both polyphase branches averaged per sample).
func lowPassBy2IntToInt(in []int32, length int, out []int32, state []int32) {
	half := length >> 1

	// Lower branch over even samples.
	for i := 0; i < half; i++ {
		tmp0 := in[i<<1]
		diff := tmp0 - state[1]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[0] + diff*int32(resampleAllpass[1][0])
		state[0] = tmp0
		diff = tmp1 - state[2]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[1] + diff*int32(resampleAllpass[1][1])
		state[1] = tmp1
		diff = tmp0 - state[3]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[3] = state[2] + diff*int32(resampleAllpass[1][2])
		state[2] = tmp0
		out[i] = state[3]
	}

	// Upper branch over odd samples.
	for i := 0; i < half; i++ {
		tmp0 := in[(i<<1)+1]
		diff := tmp0 - state[9]
		diff = (diff + (1 << 13)) >> 14
		tmp1 := state[8] + diff*int32(resampleAllpass[0][0])
		state[8] = tmp0
		diff = tmp1 - state[10]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		tmp0 = state[9] + diff*int32(resampleAllpass[0][1])
		state[9] = tmp1
		diff = tmp0 - state[11]
		diff = diff >> 14
		if diff < 0 {
			diff++
		}
		state[11] = state[10] + diff*int32(resampleAllpass[0][2])
		state[10] = tmp0
		out[i] = (out[i] + state[11]) >> 1
	}
}

// resample2to3 performs the fractional 2/3 stage: every block of three input
// samples yields two interpolated outputs. in must provide 3*blocks+5 samples
// of lookahead context; out receives 2*blocks samples.
func resample2to3(in []int32, out []int32, blocks int) {
	inIdx, outIdx := 0, 0

	for m := 0; m < blocks; m++ {
		tmp := int32(1 << 14)
		for j := 0; j < 8; j++ {
			tmp += int32(coeffs48To32[0][j]) * in[inIdx+j]
		}
		out[outIdx] = tmp

		tmp = int32(1 << 14)
		for j := 0; j < 8; j++ {
			tmp += int32(coeffs48To32[1][j]) * in[inIdx+j+1]
		}
		out[outIdx+1] = tmp

		inIdx += 3
		outIdx += 2
	}
}

// resample48to8 converts one 10 ms block (480 samples at 48 kHz) to 80
// samples at 8 kHz. tmp must hold at least 496 int32 of scratch.
func resample48to8(in []int16, out []int16, state *resamplerState, tmp []int32) {
	// 48 -> 24 (decimate by two into the 32-bit domain).
	downBy2ShortToInt(in, 480, tmp[256:], state.s48to24[:])

	// 24 -> 24 (half-band low pass ahead of the fractional stage).
	lowPassBy2IntToInt(tmp[256:256+240], 240, tmp[16:], state.s24lp[:])

	// 24 -> 16 (fractional 2/3 with 8 samples of carried context).
	copy(tmp[8:16], state.s24to16[:8])
	copy(state.s24to16[:8], tmp[248:256])
	resample2to3(tmp[8:], tmp[:], 80)

	// 16 -> 8 (decimate by two back to int16).
	downBy2IntToShort(tmp[:160], 160, out, state.s16to8[:])
}
