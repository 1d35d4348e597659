// Package descriptor combines every analysis group into the full 25-D
// fingerprint, choosing between a full-track pass and a fixed-stride
// sampling strategy depending on track length.
package descriptor

import (
	"math"

	auralis "github.com/matiaszanolli/auralis-fpcore"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/frequency"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/harmonic"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/loudness"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/spectral"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/stereo"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/temporal"
	"github.com/matiaszanolli/auralis-fpcore/internal/analysis/variation"
	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// Strategy selects how an Analyzer processes a track.
type Strategy int

const (
	// StrategyAuto picks Sampling for tracks longer than Options.SamplingThresholdSeconds,
	// and FullTrack otherwise. This is the default.
	StrategyAuto Strategy = iota
	StrategyFullTrack
	StrategySampling
)

// Options configures an Analyzer. Zero value is DefaultOptions.
type Options struct {
	Strategy                 Strategy
	WindowSeconds            float64
	SamplingThresholdSeconds float64
}

// DefaultOptions matches the reference sampling policy: 20s windows,
// switching from full-track to sampling above 60s.
func DefaultOptions() Options {
	return Options{
		Strategy:                 StrategyAuto,
		WindowSeconds:            20.0,
		SamplingThresholdSeconds: 60.0,
	}
}

// Analyzer extracts a 25-D Fingerprint from decoded PCM samples.
type Analyzer struct {
	opts Options
}

// New builds an Analyzer with the given options.
func New(opts Options) *Analyzer {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = 20.0
	}

	if opts.SamplingThresholdSeconds <= 0 {
		opts.SamplingThresholdSeconds = 60.0
	}

	return &Analyzer{opts: opts}
}

// Analyze extracts a fingerprint for trackID from samples.
func (a *Analyzer) Analyze(trackID int64, samples *audio.Samples) (*auralis.Fingerprint, error) {
	if samples == nil || len(samples.Channels) == 0 || len(samples.Channels[0]) == 0 {
		return nil, errs.ErrInvalidSamples
	}

	strategy := a.opts.Strategy
	if strategy == StrategyAuto {
		duration := float64(len(samples.Channels[0])) / float64(samples.Format.SampleRate)
		if duration > a.opts.SamplingThresholdSeconds {
			strategy = StrategySampling
		} else {
			strategy = StrategyFullTrack
		}
	}

	var fp *auralis.Fingerprint

	var err error

	switch strategy {
	case StrategySampling:
		fp, err = a.analyzeSampled(samples)
	default:
		fp, err = a.analyzeWindow(samples)
	}

	if err != nil {
		return nil, err
	}

	fp.TrackID = trackID
	fp.Version = auralis.FingerprintVersion

	sanitizeFingerprint(fp)

	vector := fp.ToVector()
	for _, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.ErrInvalidSamples
		}
	}

	return fp, nil
}

// analyzeWindow runs every analysis group once over the full sample set.
func (a *Analyzer) analyzeWindow(samples *audio.Samples) (*auralis.Fingerprint, error) {
	freq := frequency.Analyze(samples)

	lufs, crestDB, err := loudness.Analyze(samples)
	if err != nil {
		return nil, err
	}

	spec := spectral.Analyze(samples)
	temp := temporal.Analyze(samples)
	harm := harmonic.Analyze(samples)
	varn := variation.Analyze(samples)
	ster := stereo.Analyze(samples)

	fp := &auralis.Fingerprint{
		SubBassPct:  freq.BandPct[0],
		BassPct:     freq.BandPct[1],
		LowMidPct:   freq.BandPct[2],
		MidPct:      freq.BandPct[3],
		UpperMidPct: freq.BandPct[4],
		PresencePct: freq.BandPct[5],
		AirPct:      freq.BandPct[6],

		LUFS:         lufs,
		CrestDB:      crestDB,
		BassMidRatio: frequency.BassMidRatio(freq),

		TempoBPM:         temp.TempoBPM,
		RhythmStability:  temp.RhythmStability,
		TransientDensity: temp.TransientDensity,
		SilenceRatio:     temp.SilenceRatio,

		SpectralCentroid: spec.Centroid,
		SpectralRolloff:  spec.Rolloff,
		SpectralFlatness: spec.Flatness,

		HarmonicRatio:  harm.HarmonicRatio,
		PitchStability: harm.PitchStability,
		ChromaEnergy:   harm.ChromaEnergy,

		DynamicRangeVariation: varn.DynamicRangeVariation,
		LoudnessVariationStd:  varn.LoudnessVariationStd,
		PeakConsistency:       varn.PeakConsistency,

		StereoWidth:      ster.StereoWidth,
		PhaseCorrelation: ster.PhaseCorrelation,
	}

	return fp, nil
}

// analyzeSampled splits samples into fixed-length, non-overlapping windows
// and aggregates per-dimension: length-weighted mean for tempo_bpm and
// LUFS (weighted by segment frame count, so longer segments dominate the
// track's overall character), arithmetic mean for every other dimension.
func (a *Analyzer) analyzeSampled(samples *audio.Samples) (*auralis.Fingerprint, error) {
	windowFrames := int(a.opts.WindowSeconds * float64(samples.Format.SampleRate))
	if windowFrames < 1 {
		windowFrames = len(samples.Channels[0])
	}

	totalFrames := len(samples.Channels[0])

	type segmentResult struct {
		fp     *auralis.Fingerprint
		frames int
	}

	var segments []segmentResult

	for start := 0; start < totalFrames; start += windowFrames {
		end := start + windowFrames
		if end > totalFrames {
			end = totalFrames
		}

		if end-start < samples.Format.SampleRate { // skip sub-1-second remainders
			continue
		}

		segSamples := sliceSamples(samples, start, end)

		fp, err := a.analyzeWindow(segSamples)
		if err != nil {
			return nil, err
		}

		segments = append(segments, segmentResult{fp: fp, frames: end - start})
	}

	if len(segments) == 0 {
		return a.analyzeWindow(samples)
	}

	agg := &auralis.Fingerprint{}

	var totalWeight float64

	var lufsWeightedSum, tempoWeightedSum, tempoWeight float64

	n := float64(len(segments))

	for _, seg := range segments {
		weight := float64(seg.frames)
		totalWeight += weight

		agg.SubBassPct += seg.fp.SubBassPct / n
		agg.BassPct += seg.fp.BassPct / n
		agg.LowMidPct += seg.fp.LowMidPct / n
		agg.MidPct += seg.fp.MidPct / n
		agg.UpperMidPct += seg.fp.UpperMidPct / n
		agg.PresencePct += seg.fp.PresencePct / n
		agg.AirPct += seg.fp.AirPct / n

		agg.CrestDB += seg.fp.CrestDB / n
		agg.BassMidRatio += seg.fp.BassMidRatio / n

		agg.RhythmStability += seg.fp.RhythmStability / n
		agg.TransientDensity += seg.fp.TransientDensity / n
		agg.SilenceRatio += seg.fp.SilenceRatio / n

		agg.SpectralCentroid += seg.fp.SpectralCentroid / n
		agg.SpectralRolloff += seg.fp.SpectralRolloff / n
		agg.SpectralFlatness += seg.fp.SpectralFlatness / n

		agg.HarmonicRatio += seg.fp.HarmonicRatio / n
		agg.PitchStability += seg.fp.PitchStability / n
		agg.ChromaEnergy += seg.fp.ChromaEnergy / n

		agg.DynamicRangeVariation += seg.fp.DynamicRangeVariation / n
		agg.LoudnessVariationStd += seg.fp.LoudnessVariationStd / n
		agg.PeakConsistency += seg.fp.PeakConsistency / n

		agg.StereoWidth += seg.fp.StereoWidth / n
		agg.PhaseCorrelation += seg.fp.PhaseCorrelation / n

		lufsWeightedSum += seg.fp.LUFS * weight

		if seg.fp.TempoBPM > 0 {
			tempoWeightedSum += seg.fp.TempoBPM * weight
			tempoWeight += weight
		}
	}

	if totalWeight > 0 {
		agg.LUFS = lufsWeightedSum / totalWeight
	}

	if tempoWeight > 0 {
		agg.TempoBPM = tempoWeightedSum / tempoWeight
	}

	return agg, nil
}

func sliceSamples(samples *audio.Samples, start, end int) *audio.Samples {
	channels := make([][]float64, len(samples.Channels))
	for i, ch := range samples.Channels {
		channels[i] = ch[start:end]
	}

	return &audio.Samples{Format: samples.Format, Channels: channels}
}

// sanitizeFingerprint replaces any NaN/Inf derived ratio with 0 before the
// vector is validated for full finiteness.
func sanitizeFingerprint(fp *auralis.Fingerprint) {
	vector := fp.ToVector()

	for i, v := range vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			vector[i] = 0
		}
	}

	fp.FromVector(vector)
}
