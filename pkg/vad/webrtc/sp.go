package webrtc

// Rate conversion down to the 8 kHz working rate and the long-term feature
// minimum tracker used for the noise-model correction.

// allPassCoefsQ13 are the half-band decimator branch coefficients (Q13):
// upper 0.64, lower 0.17.
var allPassCoefsQ13 = [2]int16{5243, 1392}

// Smoothing factors for the tracked minimum (Q15).
const (
	smoothingDown = 6553  // 0.2, applied when the median drops
	smoothingUp   = 32439 // 0.99, applied when the median rises
)

// Minimum-tracker geometry: the 16 smallest feature values of the last 100
// frames are kept per band.
const (
	minTrackDepth = 16
	minTrackAge   = 100
)

// downsampleBy2 halves the sample rate of in with an all-pass polyphase
// pair, writing len(in)/2 samples to out. state holds the two branch delays
// (Q0 in, carried as int32).
func downsampleBy2(in, out []int16, state []int32, length int) {
	upper := state[0]
	lower := state[1]
	half := length >> 1

	for n := 0; n < half; n++ {
		// Upper branch, even samples.
		even := int16((upper >> 1) + ((int32(allPassCoefsQ13[0]) * int32(in[n*2])) >> 14))
		out[n] = even
		upper = int32(in[n*2]) - ((int32(allPassCoefsQ13[0]) * int32(even)) >> 12)

		// Lower branch, odd samples.
		odd := int16((lower >> 1) + ((int32(allPassCoefsQ13[1]) * int32(in[n*2+1])) >> 14))
		out[n] += odd
		lower = int32(in[n*2+1]) - ((int32(allPassCoefsQ13[1]) * int32(odd)) >> 12)
	}

	state[0] = upper
	state[1] = lower
}

// findMinimum tracks the smallest feature values seen on one band over the
// last 100 frames and returns a smoothed median of the five smallest, used as
// the long-term floor when correcting the noise model.
//
// The per-band memory holds 16 candidate minima with their ages; values older
// than 100 frames are evicted. The returned value is the previous smoothed
// minimum moved toward the current median with asymmetric smoothing — fast
// downward, slow upward — so the floor follows dips quickly but forgets
// bursts slowly.
func findMinimum(c *core, featureValue int16, band int) int16 {
	offset := band * minTrackDepth
	age := c.minAges[offset : offset+minTrackDepth]
	smallest := c.minValues[offset : offset+minTrackDepth]

	currentMedian := int16(1600)

	// Age the memory and evict expired entries, compacting upward.
	for i := 0; i < minTrackDepth; i++ {
		if age[i] != minTrackAge {
			age[i]++
			continue
		}
		for j := i; j < minTrackDepth-1; j++ {
			smallest[j] = smallest[j+1]
			age[j] = age[j+1]
		}
		age[minTrackDepth-1] = minTrackAge + 1
		smallest[minTrackDepth-1] = 10000
	}

	// Binary probe for the insertion slot, if the new value qualifies.
	position := -1
	if featureValue < smallest[7] {
		if featureValue < smallest[3] {
			if featureValue < smallest[1] {
				if featureValue < smallest[0] {
					position = 0
				} else {
					position = 1
				}
			} else if featureValue < smallest[2] {
				position = 2
			} else {
				position = 3
			}
		} else if featureValue < smallest[5] {
			if featureValue < smallest[4] {
				position = 4
			} else {
				position = 5
			}
		} else if featureValue < smallest[6] {
			position = 6
		} else {
			position = 7
		}
	} else if featureValue < smallest[15] {
		if featureValue < smallest[11] {
			if featureValue < smallest[9] {
				if featureValue < smallest[8] {
					position = 8
				} else {
					position = 9
				}
			} else if featureValue < smallest[10] {
				position = 10
			} else {
				position = 11
			}
		} else if featureValue < smallest[13] {
			if featureValue < smallest[12] {
				position = 12
			} else {
				position = 13
			}
		} else if featureValue < smallest[14] {
			position = 14
		} else {
			position = 15
		}
	}

	if position > -1 {
		for i := minTrackDepth - 1; i > position; i-- {
			smallest[i] = smallest[i-1]
			age[i] = age[i-1]
		}
		smallest[position] = featureValue
		age[position] = 1
	}

	// Until the tracker warms up the median falls back to the default above.
	if c.frameCounter > 2 {
		currentMedian = smallest[2]
	} else if c.frameCounter > 0 {
		currentMedian = smallest[0]
	}

	var alpha int16
	if c.frameCounter > 0 {
		if currentMedian < c.meanValue[band] {
			alpha = smoothingDown
		} else {
			alpha = smoothingUp
		}
	}

	tmp32 := int32(alpha+1) * int32(c.meanValue[band])
	tmp32 += int32(32767-alpha) * int32(currentMedian)
	tmp32 += 16384
	c.meanValue[band] = int16(tmp32 >> 15)

	return c.meanValue[band]
}
