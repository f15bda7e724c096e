package webrtc

import (
	"fmt"

	"github.com/MrWong99/voxgate/internal/dsp"
	"github.com/MrWong99/voxgate/pkg/vad"
)

// core is the per-detector classifier state: the adaptive mixture parameters,
// every filter delay line, and the overhang smoothing counters. It is owned
// by exactly one Detector and mutated on every processed frame.
type core struct {
	// Adaptive mixture parameters (Q7), band-major like the prior tables.
	noiseMeans  [tableSize]int16
	speechMeans [tableSize]int16
	noiseStds   [tableSize]int16
	speechStds  [tableSize]int16

	// Long-term minimum tracker (per band: 16 values + ages + smoothed mean).
	minValues    [minTrackDepth * numBands]int16
	minAges      [minTrackDepth * numBands]int16
	meanValue    [numBands]int16
	frameCounter int32

	// Filterbank and rate-conversion delay lines.
	upperState      [5]int16
	lowerState      [5]int16
	hpFilterState   [4]int16
	downsampleState [4]int32
	resampler48     resamplerState
	scratch48       [496]int32

	// Active mode thresholds, indexed by frame duration.
	overhangMax1 [3]int16
	overhangMax2 [3]int16
	localTest    [3]int16
	globalTest   [3]int16

	// Overhang smoothing across the speech/noise transition.
	overhang    int16
	numOfSpeech int16

	// Raw decision of the last processed frame (smoothed value, >0 = speech).
	lastDecision int16
}

// newCore seeds the mixture parameters from the pretrained priors and applies
// the mode's threshold tables.
func newCore(mode vad.Mode) *core {
	c := &core{}

	copy(c.noiseMeans[:], noisePriorMeans[:])
	copy(c.speechMeans[:], speechPriorMeans[:])
	copy(c.noiseStds[:], noisePriorStds[:])
	copy(c.speechStds[:], speechPriorStds[:])

	for i := range c.minValues {
		c.minValues[i] = 10000
	}
	for i := range c.meanValue {
		c.meanValue[i] = 1600
	}

	c.lastDecision = 1
	c.setMode(mode)
	return c
}

// setMode swaps the threshold tables. Mixture state, minimum trackers and
// filter delays are untouched so the detector keeps what it has learned
// about the stream.
func (c *core) setMode(mode vad.Mode) {
	p := modeTable[mode]
	c.overhangMax1 = p.overhangMax1
	c.overhangMax2 = p.overhangMax2
	c.localTest = p.local
	c.globalTest = p.global
}

// process classifies one frame at the detector's native rate, downsampling to
// the 8 kHz working rate first. Returns the smoothed decision (>0 = speech).
func (c *core) process(sampleRate int, frame []int16) (int16, error) {
	switch sampleRate {
	case 8000:
		return c.classify8k(frame, len(frame)), nil
	case 16000:
		var nb [240]int16
		downsampleBy2(frame, nb[:], c.downsampleState[:2], len(frame))
		return c.classify8k(nb[:], len(frame)/2), nil
	case 32000:
		var wb [480]int16
		var nb [240]int16
		downsampleBy2(frame, wb[:], c.downsampleState[2:], len(frame))
		downsampleBy2(wb[:], nb[:], c.downsampleState[:2], len(frame)/2)
		return c.classify8k(nb[:], len(frame)/4), nil
	case 48000:
		const (
			block48k = 480 // 10 ms at 48 kHz
			block8k  = 80
		)
		var nb [240]int16
		clear(c.scratch48[:])
		for i := 0; i < len(frame)/block48k; i++ {
			resample48to8(frame[i*block48k:(i+1)*block48k],
				nb[i*block8k:(i+1)*block8k], &c.resampler48, c.scratch48[:])
		}
		return c.classify8k(nb[:], len(frame)/6), nil
	default:
		return 0, fmt.Errorf("%w: unsupported sample rate %d", vad.ErrInvalidConfiguration, sampleRate)
	}
}

// classify8k extracts features from an 8 kHz frame and runs the mixture test.
func (c *core) classify8k(frame []int16, length int) int16 {
	var features [numBands]int16
	totalEnergy := extractFeatures(c, frame, length, features[:])
	c.lastDecision = c.mixtureDecision(features[:], totalEnergy, length)
	return c.lastDecision
}

// weightedMean shifts one band's gaussian means by offset and returns the
// mixture-weighted sum (Q14 for Q7 inputs).
func weightedMean(means []int16, offset int16, weights []int16) int32 {
	var sum int32
	for k := 0; k < numGaussians; k++ {
		idx := k * numBands
		means[idx] += offset
		sum += int32(means[idx]) * int32(weights[idx])
	}
	return sum
}

// mixtureDecision runs the per-band likelihood-ratio test and, on the same
// pass, adapts the mixture toward the observed features: the model for the
// losing hypothesis of each frame is nudged toward the evidence, so the
// noise model tracks a drifting background and the speech model follows the
// speaker. Returns the overhang-smoothed decision (>0 = speech).
func (c *core) mixtureDecision(features []int16, totalPower int16, frameLength int) int16 {
	var (
		vadflag   int16
		deltaN    [tableSize]int16
		deltaS    [tableSize]int16
		ngprvec   [tableSize]int16 // noise conditional probabilities (Q14)
		sgprvec   [tableSize]int16 // speech conditional probabilities (Q14)
		noiseProb [numGaussians]int32
		spchProb  [numGaussians]int32
	)

	di := durationIndex(frameLength)
	overhead1 := c.overhangMax1[di]
	overhead2 := c.overhangMax2[di]
	individualTest := c.localTest[di]
	totalTest := c.globalTest[di]

	if totalPower > minEnergy {
		// Likelihood-ratio test per band: H0 noise vs H1 speech, each a
		// two-gaussian mixture. The global decision sums spectrum-weighted
		// per-band log ratios; a per-band local test can trip the flag on
		// its own.
		var sumLogLikelihoodRatio int32

		for band := 0; band < numBands; band++ {
			var h0Test, h1Test int32

			for k := 0; k < numGaussians; k++ {
				g := band + k*numBands

				p, d := gaussianProbability(features[band], c.noiseMeans[g], c.noiseStds[g])
				deltaN[g] = d
				noiseProb[k] = int32(noisePriorWeights[g]) * p // Q27
				h0Test += noiseProb[k]

				p, d = gaussianProbability(features[band], c.speechMeans[g], c.speechStds[g])
				deltaS[g] = d
				spchProb[k] = int32(speechPriorWeights[g]) * p // Q27
				h1Test += spchProb[k]
			}

			// log2(Pr{X|H1}/Pr{X|H0}) approximated by the difference of
			// normalisation shifts.
			shiftsH0 := dsp.NormW32(h0Test)
			shiftsH1 := dsp.NormW32(h1Test)
			if h0Test == 0 {
				shiftsH0 = 31
			}
			if h1Test == 0 {
				shiftsH1 = 31
			}
			logLikelihoodRatio := shiftsH0 - shiftsH1

			sumLogLikelihoodRatio += int32(logLikelihoodRatio) * int32(spectrumWeight[band])

			if logLikelihoodRatio*4 > individualTest {
				vadflag = 1
			}

			// Conditional gaussian responsibilities for the update step.
			h0 := int16(h0Test >> 12) // Q15
			if h0 > 0 {
				tmp := int32(uint32(noiseProb[0])&0xFFFFF000) << 2 // Q29
				ngprvec[band] = int16(dsp.DivW32W16(tmp, h0))      // Q14
				ngprvec[band+numBands] = 16384 - ngprvec[band]
			} else {
				ngprvec[band] = 16384
			}

			h1 := int16(h1Test >> 12) // Q15
			if h1 > 0 {
				tmp := int32(uint32(spchProb[0])&0xFFFFF000) << 2 // Q29
				sgprvec[band] = int16(dsp.DivW32W16(tmp, h1))     // Q14
				sgprvec[band+numBands] = 16384 - sgprvec[band]
			}
		}

		if sumLogLikelihoodRatio >= int32(totalTest) {
			vadflag = 1
		}

		// Model update.
		maxspe := int16(12800)
		for band := 0; band < numBands; band++ {
			// Long-term feature floor for the noise correction (Q4).
			featureMinimum := findMinimum(c, features[band], band)

			noiseGlobalMean := weightedMean(c.noiseMeans[band:], 0, noisePriorWeights[band:])
			noiseMeanQ8 := int16(noiseGlobalMean >> 6)

			for k := 0; k < numGaussians; k++ {
				g := band + k*numBands

				nmk := c.noiseMeans[g]
				smk := c.speechMeans[g]
				nsk := c.noiseStds[g]
				ssk := c.speechStds[g]

				// Noise mean: EMA toward the feature on noise frames.
				nmk2 := nmk
				if vadflag == 0 {
					// (Q14 * Q11 >> 11) = Q14
					delt := int16((int32(ngprvec[g]) * int32(deltaN[g])) >> 11)
					// Q7 + (Q14 * Q15 >> 22) = Q7
					nmk2 = nmk + int16((int32(delt)*noiseUpdateConst)>>22)
				}

				// Long-term correction toward the tracked floor.
				ndelt := (featureMinimum << 4) - noiseMeanQ8 // Q8
				nmk3 := nmk2 + int16((int32(ndelt)*backEta)>>9)

				// Drift bounds.
				lo := int16((k + 5) << 7)
				if nmk3 < lo {
					nmk3 = lo
				}
				hi := int16((72 + k - band) << 7)
				if nmk3 > hi {
					nmk3 = hi
				}
				c.noiseMeans[g] = nmk3

				if vadflag != 0 {
					// Speech mean, same EMA shape with its own rate.
					delt := int16((int32(sgprvec[g]) * int32(deltaS[g])) >> 11)
					tmp16 := int16((int32(delt) * speechUpdateConst) >> 21)
					smk2 := smk + ((tmp16 + 1) >> 1)

					maxmu := maxspe + 640
					if smk2 < minimumMean[k] {
						smk2 = minimumMean[k]
					}
					if smk2 > maxmu {
						smk2 = maxmu
					}
					c.speechMeans[g] = smk2

					// Speech std update (rate 0.025).
					tmp16 = (smk + 4) >> 3 // Q7 -> Q4
					tmp16 = features[band] - tmp16
					tmp1 := (int32(deltaS[g]) * int32(tmp16)) >> 3 // Q12
					tmp2 := tmp1 - 4096
					tmp16 = sgprvec[g] >> 2
					tmp1 = int32(tmp16) * tmp2 // Q24
					tmp2 = tmp1 >> 4           // Q20

					if tmp2 > 0 {
						tmp16 = int16(dsp.DivW32W16(tmp2, ssk*10))
					} else {
						tmp16 = int16(dsp.DivW32W16(-tmp2, ssk*10))
						tmp16 = -tmp16
					}
					tmp16 += 128 // round
					ssk += tmp16 >> 8
					if ssk < minStd {
						ssk = minStd
					}
					c.speechStds[g] = ssk
				} else {
					// Noise std update (rate ~0.001).
					tmp16 := features[band] - (nmk >> 3)
					tmp1 := (int32(deltaN[g]) * int32(tmp16)) >> 3 // Q12
					tmp1 -= 4096

					tmp16 = (ngprvec[g] + 2) >> 2
					tmp2 := int32(tmp16) * tmp1 // may wrap like the reference
					tmp1 = tmp2 >> 14           // Q20

					if tmp1 > 0 {
						tmp16 = int16(dsp.DivW32W16(tmp1, nsk))
					} else {
						tmp16 = int16(dsp.DivW32W16(-tmp1, nsk))
						tmp16 = -tmp16
					}
					tmp16 += 32 // round
					nsk += tmp16 >> 6
					if nsk < minStd {
						nsk = minStd
					}
					c.noiseStds[g] = nsk
				}
			}

			// Keep the two hypotheses apart: if the global means collapse
			// within the per-band minimum distance, push speech up ~0.8 of
			// the gap and noise down ~0.2.
			noiseGlobalMean = weightedMean(c.noiseMeans[band:], 0, noisePriorWeights[band:])
			speechGlobalMean := weightedMean(c.speechMeans[band:], 0, speechPriorWeights[band:])

			diff := int16(speechGlobalMean>>9) - int16(noiseGlobalMean>>9) // Q5
			if diff < minimumDifference[band] {
				gap := minimumDifference[band] - diff

				speechShift := int16((13 * int32(gap)) >> 2) // ~0.8, Q7
				noiseShift := int16((3 * int32(gap)) >> 2)   // ~0.2, Q7

				speechGlobalMean = weightedMean(c.speechMeans[band:], speechShift, speechPriorWeights[band:])
				noiseGlobalMean = weightedMean(c.noiseMeans[band:], -noiseShift, noisePriorWeights[band:])
			}

			// Cap global drift.
			maxspe = maximumSpeech[band]
			over := int16(speechGlobalMean>>7) - maxspe
			if over > 0 {
				for k := 0; k < numGaussians; k++ {
					c.speechMeans[band+k*numBands] -= over
				}
			}

			over = int16(noiseGlobalMean>>7) - maximumNoise[band]
			if over > 0 {
				for k := 0; k < numGaussians; k++ {
					c.noiseMeans[band+k*numBands] -= over
				}
			}
		}
		c.frameCounter++
	}

	// Overhang smoothing: keep reporting speech for a few frames after the
	// raw test drops, longer after a sustained run.
	if vadflag == 0 {
		if c.overhang > 0 {
			vadflag = 2 + c.overhang
			c.overhang--
		}
		c.numOfSpeech = 0
	} else {
		c.numOfSpeech++
		if c.numOfSpeech > maxSpeechRun {
			c.numOfSpeech = maxSpeechRun
			c.overhang = overhead2
		} else {
			c.overhang = overhead1
		}
	}

	return vadflag
}
