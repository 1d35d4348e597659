// Package harmonic derives harmonic ratio, pitch stability and chroma
// energy from mono-mixed PCM samples via time-domain autocorrelation (for
// pitchedness and fundamental frequency) and a 12-bin chroma fold of the
// averaged magnitude spectrum (for tonal concentration), following the
// equal-tempered note-mapping convention of a classic audio fingerprinter.
package harmonic

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

const (
	minPitchHz = 50.0
	maxPitchHz = 2000.0

	fftSize    = 8192
	maxWindows = 100

	segmentCount = 5

	numChromaBins = 12

	// logSemitone is log(2^(1/12)), the equal-tempered semitone ratio, used
	// to map a frequency to its nearest chroma bin relative to A4 = 440Hz.
	logSemitone = 0.05776226504666185940
)

// Result holds the three harmonic dimensions.
type Result struct {
	HarmonicRatio  float64
	PitchStability float64
	ChromaEnergy   float64
}

// Analyze computes the harmonic group from mono-mixed samples.
func Analyze(samples *audio.Samples) Result {
	if samples == nil || len(samples.Channels) == 0 {
		return Result{}
	}

	mono := samples.Mono()
	sampleRate := samples.Format.SampleRate

	if len(mono) == 0 || sampleRate == 0 {
		return Result{}
	}

	harmonicRatio, _ := autocorrelationPitch(mono, sampleRate)
	pitchStability := estimatePitchStability(mono, sampleRate)
	chromaEnergy := chromaConcentration(mono, sampleRate)

	return Result{
		HarmonicRatio:  harmonicRatio,
		PitchStability: pitchStability,
		ChromaEnergy:   chromaEnergy,
	}
}

// autocorrelationPitch finds the lag with the strongest normalized
// autocorrelation within [minPitchHz, maxPitchHz] and returns the
// harmonic ratio (peak prominence relative to zero-lag energy, in [0,1])
// and the corresponding fundamental frequency in Hz (0 if none found).
func autocorrelationPitch(mono []float64, sampleRate int) (ratio, freqHz float64) {
	minLag := int(float64(sampleRate) / maxPitchHz)
	maxLag := int(float64(sampleRate) / minPitchHz)

	if minLag < 1 {
		minLag = 1
	}

	if maxLag >= len(mono) {
		maxLag = len(mono) - 1
	}

	if minLag >= maxLag {
		return 0, 0
	}

	var zeroLag float64

	for _, v := range mono {
		zeroLag += v * v
	}

	if zeroLag <= 0 {
		return 0, 0
	}

	bestLag := 0
	bestCorr := 0.0

	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64

		n := len(mono) - lag

		for i := 0; i < n; i++ {
			corr += mono[i] * mono[i+lag]
		}

		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0, 0
	}

	ratio = bestCorr / zeroLag
	ratio = clamp01(ratio)
	freqHz = float64(sampleRate) / float64(bestLag)

	return ratio, freqHz
}

// estimatePitchStability splits the track into segmentCount equal segments,
// estimates a fundamental frequency per segment, and returns
// 1 - (standard deviation in semitones / 12) clamped to [0,1].
func estimatePitchStability(mono []float64, sampleRate int) float64 {
	segLen := len(mono) / segmentCount
	minLag := int(float64(sampleRate) / maxPitchHz)

	if segLen < minLag*8 {
		return 0
	}

	var semitones []float64

	for s := 0; s < segmentCount; s++ {
		start := s * segLen
		end := start + segLen

		segment := mono[start:end]

		ratio, freqHz := autocorrelationPitch(segment, sampleRate)
		if ratio > 0.1 && freqHz > 0 {
			semitones = append(semitones, math.Log(freqHz/440.0)/logSemitone)
		}
	}

	if len(semitones) < 2 {
		return 0
	}

	m := mean(semitones)
	std := stdDev(semitones, m)

	// Coefficient of variation in semitone space needs an offset since
	// semitone values can be negative/near zero; use absolute spread
	// instead, scaled against one octave (12 semitones).
	stability := 1 - std/12.0

	return clamp01(stability)
}

// chromaConcentration folds the averaged magnitude spectrum into 12
// equal-tempered chroma bins and returns the normalized sum of squared
// bin energies (the inverse participation ratio): near 1 for strongly
// pitched/tonal content concentrated in few notes, near 1/12 for noise
// or percussion spread evenly across all notes.
func chromaConcentration(mono []float64, sampleRate int) float64 {
	if len(mono) < fftSize {
		return 0
	}

	positions := windowPositions(len(mono), fftSize, maxWindows)
	if len(positions) == 0 {
		return 0
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

	binHz := float64(sampleRate) / float64(fftSize)

	var chroma [numChromaBins]float64

	for i := 1; i < binCount; i++ {
		freq := float64(i) * binHz
		if freq < 20 {
			continue
		}

		note := freqToChroma(freq)
		chroma[note] += magnitudeSum[i] * magnitudeSum[i]
	}

	var total float64

	for _, e := range chroma {
		total += e
	}

	if total == 0 {
		return 0
	}

	var concentration float64

	for _, e := range chroma {
		p := e / total
		concentration += p * p
	}

	return concentration
}

// freqToChroma maps a frequency to its nearest chroma bin (0-11) on the
// equal-tempered scale, relative to A4 = 440Hz.
func freqToChroma(freq float64) int {
	steps := math.Log(freq/440.0) / logSemitone

	n := int(math.Round(steps)) % numChromaBins
	if n < 0 {
		n += numChromaBins
	}

	return n
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64, m float64) float64 {
	var sumSq float64

	for _, v := range values {
		d := v - m
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
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
