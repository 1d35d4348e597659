// Package auralis implements a 25-dimensional audio fingerprinting and
// similarity search subsystem for a local music library: extracting a fixed
// acoustic descriptor per track, normalizing it against library statistics,
// and indexing tracks by weighted Euclidean distance into a K-nearest-
// neighbor similarity graph.
package auralis

import "fmt"

// DimensionCount is the fixed width of a fingerprint vector.
const DimensionCount = 25

// DimensionNames lists the 25 dimensions in the canonical order used by
// ToVector, FromVector, the normalizer, and the distance weight table.
// The order is load-bearing: every component that walks a raw [25]float64
// vector relies on this exact sequence.
var DimensionNames = [DimensionCount]string{
	// Frequency (7D)
	"sub_bass_pct", "bass_pct", "low_mid_pct", "mid_pct",
	"upper_mid_pct", "presence_pct", "air_pct",
	// Dynamics (3D)
	"lufs", "crest_db", "bass_mid_ratio",
	// Temporal (4D)
	"tempo_bpm", "rhythm_stability", "transient_density", "silence_ratio",
	// Spectral (3D)
	"spectral_centroid", "spectral_rolloff", "spectral_flatness",
	// Harmonic (3D)
	"harmonic_ratio", "pitch_stability", "chroma_energy",
	// Variation (3D)
	"dynamic_range_variation", "loudness_variation_std", "peak_consistency",
	// Stereo (2D)
	"stereo_width", "phase_correlation",
}

// FingerprintVersion is stamped on every fingerprint row so a future change
// to the descriptor's semantics can be detected and trigger recomputation.
const FingerprintVersion = 1

// Fingerprint is the 25-dimensional acoustic descriptor extracted for a
// single track, grouped the way the analyzer produces them.
type Fingerprint struct {
	TrackID int64
	Version int

	// Frequency: percentage of total in-band spectral energy in each band,
	// summing to approximately 100.
	SubBassPct  float64
	BassPct     float64
	LowMidPct   float64
	MidPct      float64
	UpperMidPct float64
	PresencePct float64
	AirPct      float64

	// Dynamics
	LUFS         float64
	CrestDB      float64
	BassMidRatio float64

	// Temporal
	TempoBPM          float64
	RhythmStability   float64
	TransientDensity  float64
	SilenceRatio      float64

	// Spectral shape
	SpectralCentroid float64
	SpectralRolloff  float64
	SpectralFlatness float64

	// Harmonic content
	HarmonicRatio  float64
	PitchStability float64
	ChromaEnergy   float64

	// Variation across the track
	DynamicRangeVariation float64
	LoudnessVariationStd  float64
	PeakConsistency       float64

	// Stereo image
	StereoWidth      float64
	PhaseCorrelation float64
}

// ToVector flattens the fingerprint into the canonical 25-element order
// matching DimensionNames.
func (f *Fingerprint) ToVector() [DimensionCount]float64 {
	return [DimensionCount]float64{
		f.SubBassPct, f.BassPct, f.LowMidPct, f.MidPct,
		f.UpperMidPct, f.PresencePct, f.AirPct,
		f.LUFS, f.CrestDB, f.BassMidRatio,
		f.TempoBPM, f.RhythmStability, f.TransientDensity, f.SilenceRatio,
		f.SpectralCentroid, f.SpectralRolloff, f.SpectralFlatness,
		f.HarmonicRatio, f.PitchStability, f.ChromaEnergy,
		f.DynamicRangeVariation, f.LoudnessVariationStd, f.PeakConsistency,
		f.StereoWidth, f.PhaseCorrelation,
	}
}

// FromVector rebuilds a Fingerprint's dimensions from a flat 25-element
// vector, leaving TrackID and Version untouched.
func (f *Fingerprint) FromVector(v [DimensionCount]float64) {
	f.SubBassPct, f.BassPct, f.LowMidPct, f.MidPct = v[0], v[1], v[2], v[3]
	f.UpperMidPct, f.PresencePct, f.AirPct = v[4], v[5], v[6]
	f.LUFS, f.CrestDB, f.BassMidRatio = v[7], v[8], v[9]
	f.TempoBPM, f.RhythmStability, f.TransientDensity, f.SilenceRatio = v[10], v[11], v[12], v[13]
	f.SpectralCentroid, f.SpectralRolloff, f.SpectralFlatness = v[14], v[15], v[16]
	f.HarmonicRatio, f.PitchStability, f.ChromaEnergy = v[17], v[18], v[19]
	f.DynamicRangeVariation, f.LoudnessVariationStd, f.PeakConsistency = v[20], v[21], v[22]
	f.StereoWidth, f.PhaseCorrelation = v[23], v[24]
}

// String renders a short human-readable summary, useful in logs.
func (f *Fingerprint) String() string {
	return fmt.Sprintf("Fingerprint{track=%d lufs=%.1f bpm=%.0f centroid=%.0f}",
		f.TrackID, f.LUFS, f.TempoBPM, f.SpectralCentroid)
}
