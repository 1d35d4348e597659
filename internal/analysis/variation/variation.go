// Package variation derives dynamic range variation, loudness variation
// and peak consistency from per-window loudness/crest/peak series, using
// gonum's stat package for standard deviation the same way the
// normalizer's percentile fitting does.
package variation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/loudness"
	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

// windowSeconds is the length of each analysis window used to build the
// per-window LUFS/crest/peak series.
const windowSeconds = 5.0

// Result holds the three variation dimensions.
type Result struct {
	DynamicRangeVariation float64
	LoudnessVariationStd  float64
	PeakConsistency       float64
}

// Analyze splits samples into fixed-length windows, computes per-window
// crest factor, integrated loudness (LUFS, from the loudness analyzer) and
// peak amplitude, and
// derives the variation triple from their standard deviations.
func Analyze(samples *audio.Samples) Result {
	if samples == nil || len(samples.Channels) == 0 {
		return Result{}
	}

	mono := samples.Mono()
	sampleRate := samples.Format.SampleRate

	if len(mono) == 0 || sampleRate == 0 {
		return Result{}
	}

	windowSize := int(windowSeconds * float64(sampleRate))
	if windowSize < 1 {
		windowSize = len(mono)
	}

	numWindows := len(mono) / windowSize
	if numWindows < 2 {
		return Result{}
	}

	crestSeries := make([]float64, 0, numWindows)
	loudnessSeries := make([]float64, 0, numWindows)
	peakSeries := make([]float64, 0, numWindows)

	for w := 0; w < numWindows; w++ {
		start := w * windowSize
		end := start + windowSize

		window := mono[start:end]

		var sumSq, peak float64

		for _, v := range window {
			sumSq += v * v

			if math.Abs(v) > peak {
				peak = math.Abs(v)
			}
		}

		rms := math.Sqrt(sumSq / float64(len(window)))

		if rms > 0 {
			crestSeries = append(crestSeries, 20*math.Log10(peak/rms))

			windowLUFS, _, err := loudness.Analyze(&audio.Samples{Format: samples.Format, Channels: [][]float64{window}})
			if err == nil {
				loudnessSeries = append(loudnessSeries, windowLUFS)
			}
		}

		peakSeries = append(peakSeries, peak)
	}

	var dynamicRangeVariation, loudnessVariationStd float64

	if len(crestSeries) >= 2 {
		dynamicRangeVariation = sanitize(stat.StdDev(crestSeries, nil))
	}

	if len(loudnessSeries) >= 2 {
		loudnessVariationStd = sanitize(stat.StdDev(loudnessSeries, nil))
	}

	peakMean := stat.Mean(peakSeries, nil)

	peakConsistency := 1.0

	if peakMean > 0 {
		peakStd := stat.StdDev(peakSeries, nil)
		cov := peakStd / peakMean
		peakConsistency = clamp01(1 - cov)
	}

	return Result{
		DynamicRangeVariation: dynamicRangeVariation,
		LoudnessVariationStd:  loudnessVariationStd,
		PeakConsistency:       peakConsistency,
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}

	return v
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
