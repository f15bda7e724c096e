package webrtc

import "github.com/MrWong99/voxgate/internal/dsp"

// The feature extractor splits the 8 kHz working signal into six sub-bands
// with a cascade of half-band all-pass splits, then takes the log energy of
// each band:
//
//	80-250, 250-500, 500-1000, 1000-2000, 2000-3000, 3000-4000 Hz
//
// Each split halves the rate, so a 240-sample 30 ms frame bottoms out at 15
// samples in the narrowest band. The delay lines live on the detector and
// carry over between frames.

// Log-energy constants.
const (
	logConst         = 24660 // 160*log10(2) in Q9
	logEnergyIntPart = 14336 // 14 in Q10, log2 of the 15-bit normalisation point
)

// High-pass coefficients (Q14), 80 Hz cutoff at the 500 Hz band rate.
var (
	hpZeroCoefs = [3]int16{6631, -13262, 6631}
	hpPoleCoefs = [3]int16{16384, -7756, 5620}
)

// All-pass coefficients for the band split (Q15): upper 0.64, lower 0.17.
var allPassCoefsQ15 = [2]int16{20972, 5571}

// featureOffset is added to each band's log energy to centre it on the
// pretrained model domain.
var featureOffset = [numBands]int16{368, 368, 272, 176, 176, 176}

// highPassFilter removes everything below 80 Hz from the narrowest band.
// state carries the two zero and two pole delays between frames.
func highPassFilter(in []int16, length int, state []int16, out []int16) {
	for i := 0; i < length; i++ {
		// All-zero section.
		tmp32 := int32(hpZeroCoefs[0]) * int32(in[i])
		tmp32 += int32(hpZeroCoefs[1]) * int32(state[0])
		tmp32 += int32(hpZeroCoefs[2]) * int32(state[1])
		state[1] = state[0]
		state[0] = in[i]

		// All-pole section.
		tmp32 -= int32(hpPoleCoefs[1]) * int32(state[2])
		tmp32 -= int32(hpPoleCoefs[2]) * int32(state[3])
		state[3] = state[2]
		state[2] = int16(tmp32 >> 14)
		out[i] = state[2]
	}
}

// allPassFilter runs one polyphase branch of the half-band split. in is read
// at stride 2 (the branch's phase), out is written densely at the halved
// rate. in and out must not alias. Output is Q(-1).
func allPassFilter(in []int16, length int, coefficient int16, state *int16, out []int16) {
	state32 := int32(*state) * (1 << 16) // Q15

	for i := 0; i < length; i++ {
		tmp32 := state32 + int32(coefficient)*int32(in[i*2])
		tmp16 := int16(tmp32 >> 16) // Q(-1)
		out[i] = tmp16
		state32 = (int32(in[i*2]) * (1 << 14)) - int32(coefficient)*int32(tmp16) // Q14
		state32 *= 2                                                             // Q15
	}

	*state = int16(state32 >> 16)
}

// splitFilter decomposes in into its upper and lower half-bands, each at half
// the input rate. hpOut and lpOut must hold length/2 samples.
func splitFilter(in []int16, length int, upperState, lowerState *int16, hpOut, lpOut []int16) {
	half := length >> 1

	allPassFilter(in, half, allPassCoefsQ15[0], upperState, hpOut)
	allPassFilter(in[1:], half, allPassCoefsQ15[1], lowerState, lpOut)

	// Sum and difference of the branches give the two bands.
	for i := 0; i < half; i++ {
		tmp := hpOut[i]
		hpOut[i] -= lpOut[i]
		lpOut[i] += tmp
	}
}

// logOfEnergy computes 10*log10(energy of in) in Q4, plus offset, and
// accumulates into totalEnergy until the minEnergy gate is passed. A silent
// band yields just the offset.
func logOfEnergy(in []int16, length int, offset int16, totalEnergy *int16, logEnergy *int16) {
	energyS32, totRshifts := dsp.Energy(in[:length])
	energy := uint32(energyS32)

	if energy == 0 {
		*logEnergy = offset
		return
	}

	// Normalise to 15 bits; 17 leading zeros marks the target position.
	normalizingRshifts := 17 - int(dsp.NormU32(energy))
	log2Energy := int16(logEnergyIntPart)

	totRshifts += normalizingRshifts
	// energy is now in Q(-totRshifts).
	if normalizingRshifts < 0 {
		energy <<= uint(-normalizingRshifts)
	} else {
		energy >>= uint(normalizingRshifts)
	}

	// 10*log10(E) in Q4 decomposes as logConst*(log2(mantissa)+shifts):
	// the fractional bits of the 15-bit mantissa approximate log2 directly.
	log2Energy += int16((energy & 0x00003FFF) >> 4)

	*logEnergy = int16((int32(logConst)*int32(log2Energy))>>19) +
		int16((int32(totRshifts)*logConst)>>9)

	if *logEnergy < 0 {
		*logEnergy = 0
	}

	*logEnergy += offset

	// Feed the frame-energy gate until it trips. Only the low bands ever
	// contribute because the gate saturates quickly on real signal.
	if *totalEnergy <= minEnergy {
		if totRshifts >= 0 {
			// True energy exceeds the gate by construction; just trip it.
			*totalEnergy += minEnergy + 1
		} else {
			*totalEnergy += int16(energy >> uint(-totRshifts)) // Q0
		}
	}
}

// extractFeatures computes the six sub-band log energies for an 8 kHz frame
// (80, 160 or 240 samples) and returns the gate-limited total energy.
// The split-filter and high-pass delay lines on c are advanced in place.
func extractFeatures(c *core, in []int16, length int, features []int16) int16 {
	var totalEnergy int16

	// Scratch for the band cascade: after the first split at most 120
	// samples remain, after the second at most 60.
	var (
		hp120 [120]int16
		lp120 [120]int16
		hp60  [60]int16
		lp60  [60]int16
	)
	half := length >> 1

	// Split [0-4000] at 2000 Hz.
	splitFilter(in, length, &c.upperState[0], &c.lowerState[0], hp120[:], lp120[:])

	// Upper band [2000-4000]: split at 3000 Hz.
	splitFilter(hp120[:], half, &c.upperState[1], &c.lowerState[1], hp60[:], lp60[:])

	quarter := half >> 1
	logOfEnergy(hp60[:], quarter, featureOffset[5], &totalEnergy, &features[5]) // 3000-4000
	logOfEnergy(lp60[:], quarter, featureOffset[4], &totalEnergy, &features[4]) // 2000-3000

	// Lower band [0-2000]: split at 1000 Hz.
	splitFilter(lp120[:], half, &c.upperState[2], &c.lowerState[2], hp60[:], lp60[:])
	logOfEnergy(hp60[:], quarter, featureOffset[3], &totalEnergy, &features[3]) // 1000-2000

	// [0-1000]: split at 500 Hz.
	splitFilter(lp60[:], quarter, &c.upperState[3], &c.lowerState[3], hp120[:], lp120[:])
	eighth := quarter >> 1
	logOfEnergy(hp120[:], eighth, featureOffset[2], &totalEnergy, &features[2]) // 500-1000

	// [0-500]: split at 250 Hz.
	splitFilter(lp120[:], eighth, &c.upperState[4], &c.lowerState[4], hp60[:], lp60[:])
	sixteenth := eighth >> 1
	logOfEnergy(hp60[:], sixteenth, featureOffset[1], &totalEnergy, &features[1]) // 250-500

	// [0-250]: strip everything below 80 Hz, keep the rest.
	highPassFilter(lp60[:], sixteenth, c.hpFilterState[:], hp120[:])
	logOfEnergy(hp120[:], sixteenth, featureOffset[0], &totalEnergy, &features[0]) // 80-250

	return totalEnergy
}
