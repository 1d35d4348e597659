package distance

// Weights assigns a relative importance to each of the 25 fingerprint
// dimensions for similarity ranking. The raw values below sum to 1.03;
// ToArray normalizes them to sum=1.0 so callers never need to track the
// raw total.
type Weights struct {
	// Frequency (7D) - most important for perceived similarity. Subtotal 33%.
	SubBassPct  float64
	BassPct     float64
	LowMidPct   float64
	MidPct      float64
	UpperMidPct float64
	PresencePct float64
	AirPct      float64

	// Dynamics (3D) - very important. Subtotal 23%.
	LUFS         float64
	CrestDB      float64
	BassMidRatio float64

	// Temporal (4D) - important for genre/style. Subtotal 18%.
	TempoBPM         float64
	RhythmStability  float64
	TransientDensity float64
	SilenceRatio     float64

	// Spectral (3D) - moderate importance. Subtotal 12%.
	SpectralCentroid float64
	SpectralRolloff  float64
	SpectralFlatness float64

	// Harmonic (3D) - moderate importance. Subtotal 9%.
	HarmonicRatio  float64
	PitchStability float64
	ChromaEnergy   float64

	// Variation (3D) - low importance. Subtotal 5%.
	DynamicRangeVariation float64
	LoudnessVariationStd  float64
	PeakConsistency       float64

	// Stereo (2D) - low importance. Subtotal 3%.
	StereoWidth      float64
	PhaseCorrelation float64
}

// DefaultWeights returns the library's standard dimension weighting.
func DefaultWeights() Weights {
	return Weights{
		SubBassPct: 0.04, BassPct: 0.06, LowMidPct: 0.05, MidPct: 0.06,
		UpperMidPct: 0.05, PresencePct: 0.04, AirPct: 0.03,

		LUFS: 0.10, CrestDB: 0.08, BassMidRatio: 0.05,

		TempoBPM: 0.08, RhythmStability: 0.04, TransientDensity: 0.04, SilenceRatio: 0.02,

		SpectralCentroid: 0.05, SpectralRolloff: 0.04, SpectralFlatness: 0.03,

		HarmonicRatio: 0.04, PitchStability: 0.03, ChromaEnergy: 0.02,

		DynamicRangeVariation: 0.02, LoudnessVariationStd: 0.02, PeakConsistency: 0.01,

		StereoWidth: 0.02, PhaseCorrelation: 0.01,
	}
}

// EqualWeights gives every dimension the same weight (1/25).
func EqualWeights() Weights {
	w := 1.0 / 25.0

	return Weights{
		SubBassPct: w, BassPct: w, LowMidPct: w, MidPct: w,
		UpperMidPct: w, PresencePct: w, AirPct: w,
		LUFS: w, CrestDB: w, BassMidRatio: w,
		TempoBPM: w, RhythmStability: w, TransientDensity: w, SilenceRatio: w,
		SpectralCentroid: w, SpectralRolloff: w, SpectralFlatness: w,
		HarmonicRatio: w, PitchStability: w, ChromaEnergy: w,
		DynamicRangeVariation: w, LoudnessVariationStd: w, PeakConsistency: w,
		StereoWidth: w, PhaseCorrelation: w,
	}
}

// FrequencyFocused doubles the weight of all frequency-band dimensions
// relative to the default, for callers matching primarily on tonal balance.
func FrequencyFocused() Weights {
	w := DefaultWeights()
	w.SubBassPct *= 2
	w.BassPct *= 2
	w.LowMidPct *= 2
	w.MidPct *= 2
	w.UpperMidPct *= 2
	w.PresencePct *= 2
	w.AirPct *= 2

	return w
}

// DynamicsFocused doubles the weight of the dynamics dimensions relative to
// the default, for callers matching primarily on mastering loudness/dynamics.
func DynamicsFocused() Weights {
	w := DefaultWeights()
	w.LUFS *= 2
	w.CrestDB *= 2
	w.BassMidRatio *= 2

	return w
}

// ToArray flattens the weights into the canonical 25-element dimension
// order, normalized so the array sums to 1.0.
func (w Weights) ToArray() [25]float64 {
	raw := [25]float64{
		w.SubBassPct, w.BassPct, w.LowMidPct, w.MidPct,
		w.UpperMidPct, w.PresencePct, w.AirPct,
		w.LUFS, w.CrestDB, w.BassMidRatio,
		w.TempoBPM, w.RhythmStability, w.TransientDensity, w.SilenceRatio,
		w.SpectralCentroid, w.SpectralRolloff, w.SpectralFlatness,
		w.HarmonicRatio, w.PitchStability, w.ChromaEnergy,
		w.DynamicRangeVariation, w.LoudnessVariationStd, w.PeakConsistency,
		w.StereoWidth, w.PhaseCorrelation,
	}

	var sum float64
	for _, v := range raw {
		sum += v
	}

	if sum == 0 {
		return raw
	}

	for i := range raw {
		raw[i] /= sum
	}

	return raw
}
