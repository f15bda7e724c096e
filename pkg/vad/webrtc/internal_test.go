package webrtc

import (
	"testing"

	"github.com/MrWong99/voxgate/pkg/vad"
)

func TestGaussianProbability_PeaksAtMean(t *testing.T) {
	const std = 500

	// The mean is in Q7, the input in Q4; input<<3 sits exactly on the mean.
	atMean, _ := gaussianProbability(100, 100<<3, std)
	offMean, _ := gaussianProbability(100, (100<<3)+400, std)

	if atMean <= 0 {
		t.Fatalf("probability at the mean = %d, want > 0", atMean)
	}
	if offMean >= atMean {
		t.Errorf("probability off the mean (%d) >= at the mean (%d)", offMean, atMean)
	}
}

func TestGaussianProbability_DeltaSign(t *testing.T) {
	const std = 500
	mean := int16(100 << 3)

	_, above := gaussianProbability(150, mean, std)
	_, below := gaussianProbability(50, mean, std)

	if above <= 0 {
		t.Errorf("delta for input above the mean = %d, want > 0", above)
	}
	if below >= 0 {
		t.Errorf("delta for input below the mean = %d, want < 0", below)
	}
}

func TestDownsampleBy2_UnityDCGain(t *testing.T) {
	const amp = 1000
	in := make([]int16, 160)
	for i := range in {
		in[i] = amp
	}
	out := make([]int16, 80)
	state := make([]int32, 2)

	// Run twice so the all-pass delay states settle.
	downsampleBy2(in, out, state, len(in))
	downsampleBy2(in, out, state, len(in))

	for i := 40; i < 80; i++ {
		if out[i] < amp-5 || out[i] > amp+5 {
			t.Fatalf("out[%d] = %d, want ~%d after settling", i, out[i], amp)
		}
	}
}

func TestFindMinimum_TracksFloor(t *testing.T) {
	c := newCore(vad.ModeNormal)

	// A steady feature above the initial floor pulls the smoothed minimum
	// up slowly.
	var first, last int16
	for i := 0; i < 120; i++ {
		c.frameCounter++
		v := findMinimum(c, 4000, 0)
		if i == 0 {
			first = v
		}
		last = v
	}
	if last <= first {
		t.Errorf("floor did not rise: first=%d last=%d", first, last)
	}
	if last > 4000 {
		t.Errorf("floor overshot the feature value: %d", last)
	}

	// A dip pulls it down fast.
	for i := 0; i < 10; i++ {
		c.frameCounter++
		last = findMinimum(c, 500, 0)
	}
	if last >= 1000 {
		t.Errorf("floor after dip = %d, want < 1000", last)
	}
}

func TestResample48to8_BlockGeometry(t *testing.T) {
	in := make([]int16, 480)
	for i := range in {
		in[i] = int16((i % 32) * 100)
	}
	out := make([]int16, 80)
	var state resamplerState
	state.reset()
	tmp := make([]int32, 496)

	// Must not panic and must fill all 80 output samples deterministically.
	resample48to8(in, out, &state, tmp)

	out2 := make([]int16, 80)
	var state2 resamplerState
	state2.reset()
	tmp2 := make([]int32, 496)
	resample48to8(in, out2, &state2, tmp2)

	for i := range out {
		if out[i] != out2[i] {
			t.Fatalf("out[%d] differs between identical runs: %d vs %d", i, out[i], out2[i])
		}
	}
}
