package webrtc

import "github.com/MrWong99/voxgate/pkg/vad"

// Model geometry. The classifier works on six frequency sub-bands, each
// modelled by a two-component Gaussian mixture per hypothesis (speech and
// noise).
const (
	numBands     = 6
	numGaussians = 2
	tableSize    = numBands * numGaussians
)

const (
	// minEnergy is the frame-energy gate: frames at or below it skip the
	// model entirely and classify as noise.
	minEnergy = 10

	// minStd is the floor for adapted standard deviations (Q7).
	minStd = 384

	// maxSpeechRun caps the consecutive-speech counter that controls the
	// internal overhang smoothing.
	maxSpeechRun = 6
)

// Adaptation rate constants.
const (
	noiseUpdateConst  = 655  // Q15
	speechUpdateConst = 6554 // Q15
	backEta           = 154  // Q8
)

// spectrumWeight weighs each band's log-likelihood ratio in the global
// decision; higher bands count more.
var spectrumWeight = [numBands]int16{6, 8, 10, 12, 14, 16}

// minimumDifference is the smallest allowed gap between the global speech and
// noise means per band (Q5). Models closer than this are pushed apart.
var minimumDifference = [numBands]int16{544, 544, 576, 576, 576, 576}

// maximumSpeech caps the global speech means per band (Q7).
var maximumSpeech = [numBands]int16{11392, 11392, 11520, 11520, 11520, 11520}

// maximumNoise caps the global noise means per band (Q7).
var maximumNoise = [numBands]int16{9216, 9088, 8960, 8832, 8704, 8576}

// minimumMean is the floor for speech means per gaussian (Q7).
var minimumMean = [numGaussians]int16{640, 768}

// Pretrained mixture priors, band-major layout: index = band + gaussian*numBands.
// Weights are Q7-scaled mixture weights; means and stds are Q7.
var (
	noisePriorWeights = [tableSize]int16{
		34, 62, 72, 66, 53, 25, 94, 66, 56, 62, 75, 103,
	}
	speechPriorWeights = [tableSize]int16{
		48, 82, 45, 87, 50, 47, 80, 46, 83, 41, 78, 81,
	}
	noisePriorMeans = [tableSize]int16{
		6738, 4892, 7065, 6715, 6771, 3369, 7646, 3863, 7820, 7266, 5020, 4362,
	}
	speechPriorMeans = [tableSize]int16{
		8306, 10085, 10078, 11823, 11843, 6309, 9473, 9571, 10879, 7581, 8180, 7483,
	}
	noisePriorStds = [tableSize]int16{
		378, 1064, 493, 582, 688, 593, 474, 697, 475, 688, 421, 455,
	}
	speechPriorStds = [tableSize]int16{
		555, 505, 567, 524, 585, 1231, 509, 828, 492, 1540, 1079, 850,
	}
)

// modeParams holds the per-mode decision thresholds and overhang limits,
// indexed by frame duration (10, 20, 30 ms).
type modeParams struct {
	overhangMax1 [3]int16
	overhangMax2 [3]int16
	local        [3]int16
	global       [3]int16
}

// modeTable is indexed by vad.Mode. The four operating points share the
// mixture priors; only thresholds and overhang differ.
var modeTable = [4]modeParams{
	vad.ModeNormal: {
		overhangMax1: [3]int16{8, 4, 3},
		overhangMax2: [3]int16{14, 7, 5},
		local:        [3]int16{24, 21, 24},
		global:       [3]int16{57, 48, 57},
	},
	vad.ModeLowBitrate: {
		overhangMax1: [3]int16{8, 4, 3},
		overhangMax2: [3]int16{14, 7, 5},
		local:        [3]int16{37, 32, 37},
		global:       [3]int16{100, 80, 100},
	},
	vad.ModeAggressive: {
		overhangMax1: [3]int16{6, 3, 2},
		overhangMax2: [3]int16{9, 5, 3},
		local:        [3]int16{82, 78, 82},
		global:       [3]int16{285, 260, 285},
	},
	vad.ModeVeryAggressive: {
		overhangMax1: [3]int16{6, 3, 2},
		overhangMax2: [3]int16{9, 5, 3},
		local:        [3]int16{94, 94, 94},
		global:       [3]int16{1100, 1050, 1100},
	},
}

// durationIndex maps an 8 kHz frame length to the threshold column.
func durationIndex(frameLength8k int) int {
	switch frameLength8k {
	case 80:
		return 0
	case 160:
		return 1
	default:
		return 2
	}
}
