package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/MrWong99/voxgate/internal/dsp"
	"github.com/MrWong99/voxgate/internal/wave"
)

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var (
		file    = fs.String("file", "", "path to a 16-bit PCM WAV file (required)")
		frameMs = fs.Int("frame-ms", 30, "frame duration in ms (10, 20 or 30)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "voxgate analyze: -file is required")
		fs.Usage()
		return 2
	}

	f, err := wave.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate analyze: %v\n", err)
		return 1
	}

	frameSize := f.SampleRate / 1000 * *frameMs
	if frameSize == 0 {
		fmt.Fprintln(os.Stderr, "voxgate analyze: frame duration too small")
		return 2
	}

	order := fftOrder(frameSize)
	fftBuf := make([]int16, 2<<uint(order))
	frameSec := float64(*frameMs) / 1000

	for i, frame := range f.Frames(frameSize) {
		rms := frameRMS(frame)
		freq := dominantFrequency(frame, fftBuf, order, f.SampleRate)
		period := periodicity(frame, f.SampleRate)

		fmt.Printf("frame %4d  t=%7.3fs  rms=%5d  dominant=%5d Hz  periodicity=%.2f\n",
			i, float64(i)*frameSec, rms, freq, period)
	}
	return 0
}

// fftOrder returns the largest usable FFT order for a frame, capped at
// [dsp.MaxFFTOrder].
func fftOrder(frameSize int) int {
	order := 1
	for order < dsp.MaxFFTOrder && 1<<uint(order+1) <= frameSize {
		order++
	}
	return order
}

// frameRMS computes the root-mean-square amplitude of a frame in int16
// sample units.
func frameRMS(frame []int16) int32 {
	if len(frame) == 0 {
		return 0
	}
	energy, shifts := dsp.Energy(frame)
	mean := (int64(energy) << uint(shifts)) / int64(len(frame))
	if mean > math.MaxInt32 {
		mean = math.MaxInt32
	}
	return dsp.SqrtFloor(int32(mean))
}

// dominantFrequency returns the frequency in Hz of the strongest FFT bin of
// the leading 2^order samples, ignoring DC.
func dominantFrequency(frame []int16, buf []int16, order, sampleRate int) int {
	n := 1 << uint(order)
	if len(frame) < n {
		return 0
	}
	if dsp.RealFFT(frame[:n], buf, order) < 0 {
		return 0
	}

	bestBin, bestMag := 0, int64(0)
	for k := 1; k <= n/2; k++ {
		re := int64(buf[2*k])
		im := int64(buf[2*k+1])
		if mag := re*re + im*im; mag > bestMag {
			bestMag = mag
			bestBin = k
		}
	}
	return bestBin * sampleRate / n
}

// periodicity scores how periodic a frame is as the normalised
// autocorrelation peak over pitch-range lags. Scores near 1 indicate voiced
// speech or tones, near 0 noise.
func periodicity(frame []int16, sampleRate int) float64 {
	// Lags from 500 Hz down to half the frame cover the voice pitch range.
	minLag := sampleRate / 500
	dim := len(frame) / 2
	if dim <= minLag {
		return 0
	}

	shift := int(dsp.ScalingSquare(frame, dim))
	corr := dsp.CrossCorrelation(frame[:dim], frame, dim, shift, 1)
	if corr[0] <= 0 {
		return 0
	}

	var peak int32
	for _, c := range corr[minLag:] {
		if c > peak {
			peak = c
		}
	}
	return float64(peak) / float64(corr[0])
}
