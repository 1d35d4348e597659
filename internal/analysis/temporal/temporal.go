// Package temporal derives tempo, rhythm stability, transient density and
// silence ratio from mono-mixed PCM samples via energy-based onset
// detection and autocorrelation, the same approach a beat-tracking
// estimator uses against raw PCM without needing an STFT.
package temporal

import (
	"math"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

// windowSize is the onset-energy analysis window: ~23ms at 44.1kHz.
const windowSize = 1024

const (
	minBPM = 40.0
	maxBPM = 240.0

	// confidenceRatio is the minimum ratio of the best autocorrelation peak
	// to the mean correlation across candidate lags required to report a
	// tempo at all; below this the track's rhythm is too weak/ambiguous.
	confidenceRatio = 1.5

	// fluxThresholdFactor scales the running mean flux to find the
	// per-track onset threshold for transient counting.
	fluxThresholdFactor = 1.5

	silenceFloorDBFS = -60.0

	segmentCount = 5 // number of equal segments used to assess rhythm stability
)

// Result holds the four temporal dimensions.
type Result struct {
	TempoBPM         float64
	RhythmStability  float64
	TransientDensity float64
	SilenceRatio     float64
}

// Analyze computes the temporal group from mono-mixed samples.
func Analyze(samples *audio.Samples) Result {
	if samples == nil || len(samples.Channels) == 0 {
		return Result{}
	}

	mono := samples.Mono()
	sampleRate := samples.Format.SampleRate

	energy := windowEnergies(mono)
	if len(energy) < 4 || sampleRate == 0 {
		return Result{}
	}

	flux := onsetFlux(energy)

	tempo, _ := estimateTempo(flux, sampleRate)

	duration := float64(len(mono)) / float64(sampleRate)
	transientDensity := transientDensity(flux, duration)

	silenceRatio := silenceRatio(energy)

	rhythmStability := estimateRhythmStability(mono, sampleRate)

	return Result{
		TempoBPM:         tempo,
		RhythmStability:  rhythmStability,
		TransientDensity: transientDensity,
		SilenceRatio:     silenceRatio,
	}
}

func windowEnergies(mono []float64) []float64 {
	numWindows := len(mono) / windowSize
	energy := make([]float64, numWindows)

	for i := 0; i < numWindows; i++ {
		start := i * windowSize

		var sum float64

		for j := 0; j < windowSize; j++ {
			s := mono[start+j]
			sum += s * s
		}

		energy[i] = math.Sqrt(sum / float64(windowSize))
	}

	return energy
}

func onsetFlux(energy []float64) []float64 {
	flux := make([]float64, len(energy))

	for i := 1; i < len(energy); i++ {
		diff := energy[i] - energy[i-1]
		if diff > 0 {
			flux[i] = diff
		}
	}

	return flux
}

// estimateTempo autocorrelates the onset flux signal over the lag range
// corresponding to [minBPM, maxBPM] and returns the best BPM plus a
// confidence ratio. Returns (0, 0) if the lag range is empty; if no lag
// clears confidenceRatio, bpm is 0 and confidence is the measured ratio.
func estimateTempo(flux []float64, sampleRate int) (bpm, confidence float64) {
	windowsPerSecond := float64(sampleRate) / float64(windowSize)

	minLag := int(windowsPerSecond * 60.0 / maxBPM)
	maxLag := int(windowsPerSecond * 60.0 / minBPM)

	if minLag < 1 {
		minLag = 1
	}

	if maxLag >= len(flux)/2 {
		maxLag = len(flux)/2 - 1
	}

	if minLag >= maxLag {
		return 0, 0
	}

	corrs := make([]float64, 0, maxLag-minLag+1)

	bestLag := minLag
	bestCorr := -1.0

	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64

		var count int

		for i := 0; i+lag < len(flux); i++ {
			corr += flux[i] * flux[i+lag]
			count++
		}

		if count > 0 {
			corr /= float64(count)
		}

		corrs = append(corrs, corr)

		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	meanCorr := mean(corrs)
	if meanCorr <= 0 || bestCorr/meanCorr < confidenceRatio {
		return 0, bestCorr / math.Max(meanCorr, 1e-12)
	}

	bpm = (windowsPerSecond * 60.0) / float64(bestLag)

	for bpm < minBPM {
		bpm *= 2
	}

	for bpm > maxBPM {
		bpm /= 2
	}

	return math.Round(bpm*10) / 10, bestCorr / meanCorr
}

func transientDensity(flux []float64, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}

	var onsets, runningSum float64

	for i, f := range flux {
		runningSum += f
		threshold := runningSum / float64(i+1) * fluxThresholdFactor

		if f > threshold && threshold > 0 {
			onsets++
		}
	}

	return onsets / durationSeconds
}

func silenceRatio(energy []float64) float64 {
	if len(energy) == 0 {
		return 0
	}

	var silent int

	for _, e := range energy {
		db := silenceFloorDBFS - 1
		if e > 0 {
			db = 20 * math.Log10(e)
		}

		if db < silenceFloorDBFS {
			silent++
		}
	}

	return float64(silent) / float64(len(energy))
}

// estimateRhythmStability splits the track into segmentCount equal
// segments, estimates tempo independently in each, and returns
// 1 - coefficient_of_variation clamped to [0,1]. Segments with no
// confident tempo are excluded; fewer than 2 valid estimates yields 0.
func estimateRhythmStability(mono []float64, sampleRate int) float64 {
	segLen := len(mono) / segmentCount
	if segLen < windowSize*8 {
		return 0
	}

	var tempos []float64

	for s := 0; s < segmentCount; s++ {
		start := s * segLen
		end := start + segLen

		segment := mono[start:end]
		energy := windowEnergies(segment)

		if len(energy) < 4 {
			continue
		}

		flux := onsetFlux(energy)

		bpm, _ := estimateTempo(flux, sampleRate)
		if bpm > 0 {
			tempos = append(tempos, bpm)
		}
	}

	if len(tempos) < 2 {
		return 0
	}

	m := mean(tempos)
	if m == 0 {
		return 0
	}

	std := stdDev(tempos, m)
	cov := std / m

	stability := 1 - cov
	if stability < 0 {
		return 0
	}

	if stability > 1 {
		return 1
	}

	return stability
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
