// Package spectral derives normalized spectral centroid, rolloff and
// flatness from mono-mixed PCM samples, adapted from the same windowed-FFT
// machinery used for frequency band energies.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

const (
	fftSize      = 8192
	maxWindows   = 100
	rolloffPoint = 0.85 // fraction of total energy below the rolloff frequency
)

// Result holds the three normalized spectral dimensions.
type Result struct {
	Centroid float64 // Hz / (sample_rate/2), in [0,1]
	Rolloff  float64 // Hz / (sample_rate/2), in [0,1]
	Flatness float64 // geometric/arithmetic mean ratio, in [0,1]
}

// Analyze computes the averaged magnitude spectrum across evenly spaced
// windows and derives centroid, rolloff and flatness from it.
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

	nyquist := float64(samples.Format.SampleRate) / 2
	binHz := float64(samples.Format.SampleRate) / float64(fftSize)

	centroidHz := centroid(avgMagnitude, binHz)
	rolloffHz := rolloff(avgMagnitude, binHz, rolloffPoint)
	flatness := spectralFlatness(avgMagnitude)

	result := Result{
		Centroid: sanitizeRatio(centroidHz / nyquist),
		Rolloff:  sanitizeRatio(rolloffHz / nyquist),
		Flatness: sanitizeRatio(flatness),
	}

	return result
}

func centroid(magnitude []float64, binHz float64) float64 {
	var weightedSum, totalMag float64

	for i, mag := range magnitude {
		freq := float64(i) * binHz
		weightedSum += freq * mag
		totalMag += mag
	}

	if totalMag == 0 {
		return 0
	}

	return weightedSum / totalMag
}

// rolloff returns the frequency below which `point` fraction of the total
// spectral energy is contained.
func rolloff(magnitude []float64, binHz, point float64) float64 {
	var total float64
	for _, mag := range magnitude {
		total += mag * mag
	}

	if total == 0 {
		return 0
	}

	threshold := total * point

	var cumulative float64

	for i, mag := range magnitude {
		cumulative += mag * mag
		if cumulative >= threshold {
			return float64(i) * binHz
		}
	}

	return float64(len(magnitude)-1) * binHz
}

// spectralFlatness is the Wiener entropy: geometric mean over arithmetic
// mean of the magnitude spectrum. 1.0 is white noise, near 0 is a pure tone.
func spectralFlatness(magnitude []float64) float64 {
	var logSum, sum float64

	var count int

	for _, mag := range magnitude {
		if mag <= 0 {
			continue
		}

		logSum += math.Log(mag)
		sum += mag
		count++
	}

	if count == 0 || sum == 0 {
		return 0
	}

	geometricMean := math.Exp(logSum / float64(count))
	arithmeticMean := sum / float64(count)

	return geometricMean / arithmeticMean
}

func sanitizeRatio(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

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
