// Package normalize rescales 25-dimensional fingerprint vectors to [0, 1]
// so that every dimension contributes comparably to a distance calculation,
// regardless of its native scale (tempo_bpm ranges over ~140, lufs over
// ~25, phase_correlation over 2).
package normalize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// DimensionStats holds the fitted min/max/mean/std for one dimension.
type DimensionStats struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Normalizer performs percentile-based min-max normalization, fitted from a
// library's worth of fingerprint vectors.
type Normalizer struct {
	UseRobust      bool
	PercentileLow  float64
	PercentileHigh float64
	stats          map[string]DimensionStats
	fitted         bool
}

// New returns a Normalizer using robust (5th/95th percentile) bounds, the
// default the similarity engine fits with.
func New() *Normalizer {
	return &Normalizer{
		UseRobust:      true,
		PercentileLow:  5.0,
		PercentileHigh: 95.0,
		stats:          make(map[string]DimensionStats),
	}
}

// IsFitted reports whether Fit has succeeded.
func (n *Normalizer) IsFitted() bool {
	return n.fitted
}

// Fit computes per-dimension statistics from a set of 25-element vectors.
// Requires at least minSamples vectors.
func (n *Normalizer) Fit(vectors [][25]float64, minSamples int) error {
	if len(vectors) < minSamples {
		return fmt.Errorf("%w: %d < %d", errs.ErrInsufficientData, len(vectors), minSamples)
	}

	n.stats = make(map[string]DimensionStats, 25)

	column := make([]float64, len(vectors))

	for dim, name := range dimensionNames() {
		for i, v := range vectors {
			column[i] = v[dim]
		}

		var minVal, maxVal float64

		if n.UseRobust {
			sorted := append([]float64(nil), column...)
			sort.Float64s(sorted)
			minVal = stat.Quantile(n.PercentileLow/100.0, stat.Empirical, sorted, nil)
			maxVal = stat.Quantile(n.PercentileHigh/100.0, stat.Empirical, sorted, nil)
		} else {
			minVal, maxVal = column[0], column[0]
			for _, v := range column {
				if v < minVal {
					minVal = v
				}
				if v > maxVal {
					maxVal = v
				}
			}
		}

		mean := stat.Mean(column, nil)
		std := stat.StdDev(column, nil)

		n.stats[name] = DimensionStats{
			Name:  name,
			Min:   minVal,
			Max:   maxVal,
			Mean:  mean,
			Std:   std,
			Count: len(vectors),
		}
	}

	n.fitted = true

	return nil
}

// Normalize scales a 25-element vector to [0, 1] per dimension. Dimensions
// with near-zero observed variance (range < 1e-6) fall back to 0.5, the
// midpoint, rather than dividing by a near-zero range.
func (n *Normalizer) Normalize(vector [25]float64) ([25]float64, error) {
	if !n.fitted {
		return [25]float64{}, errs.ErrNotFitted
	}

	var out [25]float64

	for dim, name := range dimensionNames() {
		s := n.stats[name]
		rng := s.Max - s.Min

		var v float64

		if rng > 1e-6 {
			v = (vector[dim] - s.Min) / rng
		} else {
			v = 0.5
		}

		out[dim] = clamp01(v)
	}

	return out, nil
}

// Denormalize reverses Normalize, for display/debugging. Unlike Normalize,
// the result is not clamped back to the observed range.
func (n *Normalizer) Denormalize(normalized [25]float64) ([25]float64, error) {
	if !n.fitted {
		return [25]float64{}, errs.ErrNotFitted
	}

	var out [25]float64

	for dim, name := range dimensionNames() {
		s := n.stats[name]
		out[dim] = normalized[dim]*(s.Max-s.Min) + s.Min
	}

	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// persisted is the on-disk JSON envelope for saved normalization stats.
type persisted struct {
	UseRobust      bool                      `json:"use_robust"`
	PercentileLow  float64                   `json:"percentile_low"`
	PercentileHigh float64                   `json:"percentile_high"`
	Dimensions     map[string]DimensionStats `json:"dimensions"`
}

// Save persists the fitted statistics to filepath as JSON.
func (n *Normalizer) Save(path string) error {
	if !n.fitted {
		return errs.ErrNotFitted
	}

	data := persisted{
		UseRobust:      n.UseRobust,
		PercentileLow:  n.PercentileLow,
		PercentileHigh: n.PercentileHigh,
		Dimensions:     n.stats,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating normalizer directory: %w", err)
	}

	blob, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling normalizer stats: %w", err)
	}

	if err := os.WriteFile(path, blob, 0o644); err != nil { //nolint:gosec // stats file, not sensitive
		return fmt.Errorf("writing normalizer stats: %w", err)
	}

	return nil
}

// Load restores statistics previously written by Save.
func (n *Normalizer) Load(path string) error {
	blob, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled config
	if err != nil {
		return fmt.Errorf("reading normalizer stats: %w", err)
	}

	var data persisted
	if err := json.Unmarshal(blob, &data); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidJSON, err)
	}

	n.UseRobust = data.UseRobust
	n.PercentileLow = data.PercentileLow
	n.PercentileHigh = data.PercentileHigh
	n.stats = data.Dimensions
	n.fitted = len(n.stats) > 0

	return nil
}

func dimensionNames() [25]string {
	return [25]string{
		"sub_bass_pct", "bass_pct", "low_mid_pct", "mid_pct",
		"upper_mid_pct", "presence_pct", "air_pct",
		"lufs", "crest_db", "bass_mid_ratio",
		"tempo_bpm", "rhythm_stability", "transient_density", "silence_ratio",
		"spectral_centroid", "spectral_rolloff", "spectral_flatness",
		"harmonic_ratio", "pitch_stability", "chroma_energy",
		"dynamic_range_variation", "loudness_variation_std", "peak_consistency",
		"stereo_width", "phase_correlation",
	}
}
