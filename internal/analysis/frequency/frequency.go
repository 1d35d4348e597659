// Package frequency derives the 7-band frequency energy percentages from
// mono-mixed PCM samples via an averaged FFT magnitude spectrum, following
// the same windowed-FFT scaffolding used for the rest of the spectral
// analysis.
package frequency

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

// fftSize and maxWindows match the teacher's spectral analyzer defaults:
// 8192-point FFT, at most 100 evenly spaced windows per track.
const (
	fftSize    = 8192
	maxWindows = 100
)

// bandEdges is the fixed 8-edge table defining the 7 frequency bands.
var bandEdges = [8]float64{20, 60, 250, 500, 2000, 4000, 8000, 20000}

// BandNames is the canonical order of the 7 bands, matching bandEdges.
var BandNames = [7]string{
	"sub_bass", "bass", "low_mid", "mid", "upper_mid", "presence", "air",
}

// Result holds the 7 band-energy percentages, each non-negative, summing
// to approximately 100. BandEnergy holds the raw (non-percentage) average
// linear magnitude-squared energy per band, used by other analyzers (e.g.
// bass_mid_ratio) that need the unnormalized values.
type Result struct {
	BandPct    [7]float64
	BandEnergy [7]float64
}

// Analyze computes band energy percentages over mono-mixed samples.
func Analyze(samples *audio.Samples) Result {
	if samples == nil || len(samples.Channels) == 0 {
		return Result{}
	}

	mono := samples.Mono()
	if len(mono) < fftSize {
		return Result{}
	}

	positions := windowPositions(len(mono), fftSize, maxWindows)
	if len(positions) == 0 {
		return Result{}
	}

	window := hannWindow(fftSize)
	binCount := fftSize/2 + 1
	magnitudeSum := make([]float64, binCount)
	fft := fourier.NewFFT(fftSize)
	fftIn := make([]float64, fftSize)

	for _, pos := range positions {
		for i := 0; i < fftSize; i++ {
			fftIn[i] = mono[pos+i] * window[i]
		}

		coeffs := fft.Coefficients(nil, fftIn)

		for i, c := range coeffs {
			magnitudeSum[i] += math.Hypot(real(c), imag(c))
		}
	}

	avgMagnitude := make([]float64, binCount)
	for i := range avgMagnitude {
		avgMagnitude[i] = magnitudeSum[i] / float64(len(positions))
	}

	binHz := float64(samples.Format.SampleRate) / float64(fftSize)

	var bandEnergy [7]float64

	var total float64

	for band := 0; band < 7; band++ {
		e := bandEnergySum(avgMagnitude, bandEdges[band], bandEdges[band+1], binHz)
		bandEnergy[band] = e
		total += e
	}

	var bandPct [7]float64

	if total > 0 {
		for band := 0; band < 7; band++ {
			bandPct[band] = 100 * bandEnergy[band] / total
		}
	}

	return Result{BandPct: bandPct, BandEnergy: bandEnergy}
}

func bandEnergySum(magnitude []float64, startHz, endHz, binHz float64) float64 {
	startBin := int(startHz / binHz)
	endBin := int(endHz / binHz)

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitude) {
		endBin = len(magnitude) - 1
	}

	if startBin > endBin {
		return 0
	}

	var sum float64

	for i := startBin; i <= endBin; i++ {
		sum += magnitude[i] * magnitude[i]
	}

	return sum
}

// windowPositions returns evenly spaced FFT window start positions, all of
// them if the track is short enough, otherwise maxWindows spread across it.
func windowPositions(totalSamples, size, limit int) []int {
	available := totalSamples - size
	if available < 0 {
		return nil
	}

	hop := size / 2
	totalPossible := available/hop + 1

	if totalPossible <= limit {
		positions := make([]int, 0, totalPossible)
		for pos := 0; pos+size <= totalSamples; pos += hop {
			positions = append(positions, pos)
		}

		return positions
	}

	positions := make([]int, limit)
	if limit == 1 {
		positions[0] = available / 2

		return positions
	}

	for i := 0; i < limit; i++ {
		positions[i] = available * i / (limit - 1)
	}

	return positions
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}

	return w
}

// BassMidRatio derives the signed dB ratio of bass-band to mid-band energy
// from a Result, per the fingerprint's bass_mid_ratio dimension.
func BassMidRatio(r Result) float64 {
	bass := r.BandEnergy[1] // "bass"
	mid := r.BandEnergy[3]  // "mid"

	if bass <= 0 || mid <= 0 {
		return 0
	}

	return 10 * math.Log10(bass/mid)
}
