// Package mastering derives fixed per-track mastering targets from a
// fingerprint's frequency and dynamics dimensions, so the rest of a
// processing pipeline can apply consistent EQ/loudness/compression
// parameters without re-deriving them on every chunk.
package mastering

import (
	"crypto/md5" //nolint:gosec // used only as a short cache-key fingerprint, not for security
	"encoding/hex"
	"fmt"
)

// StreamingTargetLUFS is the fixed loudness target for the generated
// targets: standard streaming-platform normalization.
const StreamingTargetLUFS = -14.0

// minTargetCrestDB is the floor below which a track's crest factor is never
// pushed, even if its current crest factor is already low.
const minTargetCrestDB = 10.0

// crestReductionFactor applies a slight reduction to the current crest
// factor, tightening dynamics without flattening them.
const crestReductionFactor = 0.85

// eqAdjustmentGainPerPct converts a percentage-point gap from the ideal
// band balance into a dB adjustment: each 1% of gap becomes 0.5 dB.
const eqAdjustmentGainPerPct = 0.5

// maxEQAdjustmentDB bounds every per-band adjustment to +/-6 dB.
const maxEQAdjustmentDB = 6.0

// compressionRatio and compressionAmount are the fixed compressor
// parameters applied alongside the EQ/loudness targets.
const (
	compressionRatio  = 2.5
	compressionAmount = 0.6
)

// idealBandPct is the target tonal-balance percentage for each of the 7
// frequency bands, derived from a well-mastered reference curve.
var idealBandPct = map[string]float64{
	"sub_bass":  5.0,
	"bass":      15.0,
	"low_mid":   18.0,
	"mid":       22.0,
	"upper_mid": 20.0,
	"presence":  13.0,
	"air":       7.0,
}

// FrequencyBalance holds a track's current tonal balance, as fractions of
// total energy expressed in percent (matching the fingerprint's own scale).
type FrequencyBalance struct {
	SubBassPct  float64
	BassPct     float64
	LowMidPct   float64
	MidPct      float64
	UpperMidPct float64
	PresencePct float64
	AirPct      float64
}

// Compression holds fixed compressor parameters.
type Compression struct {
	Ratio  float64
	Amount float64
}

// Targets is the full set of mastering parameters derived for one track.
type Targets struct {
	TargetLUFS      float64
	TargetCrestDB   float64
	EQAdjustmentsDB map[string]float64
	Compression     Compression
}

// GenerateTargets derives fixed mastering targets from a track's current
// crest factor and frequency balance. Targets are deterministic: the same
// inputs always produce the same targets, so they can be cached per track
// for the life of a processing run.
func GenerateTargets(currentCrestDB float64, balance FrequencyBalance) Targets {
	targetCrest := currentCrestDB * crestReductionFactor
	if targetCrest < minTargetCrestDB {
		targetCrest = minTargetCrestDB
	}

	eq := map[string]float64{
		"sub_bass":  eqAdjustment(balance.SubBassPct, idealBandPct["sub_bass"]),
		"bass":      eqAdjustment(balance.BassPct, idealBandPct["bass"]),
		"low_mid":   eqAdjustment(balance.LowMidPct, idealBandPct["low_mid"]),
		"mid":       eqAdjustment(balance.MidPct, idealBandPct["mid"]),
		"upper_mid": eqAdjustment(balance.UpperMidPct, idealBandPct["upper_mid"]),
		"presence":  eqAdjustment(balance.PresencePct, idealBandPct["presence"]),
		"air":       eqAdjustment(balance.AirPct, idealBandPct["air"]),
	}

	return Targets{
		TargetLUFS:      StreamingTargetLUFS,
		TargetCrestDB:   targetCrest,
		EQAdjustmentsDB: eq,
		Compression:     Compression{Ratio: compressionRatio, Amount: compressionAmount},
	}
}

func eqAdjustment(currentPct, ideal float64) float64 {
	adjustment := (ideal - currentPct) * eqAdjustmentGainPerPct

	if adjustment > maxEQAdjustmentDB {
		return maxEQAdjustmentDB
	}

	if adjustment < -maxEQAdjustmentDB {
		return -maxEQAdjustmentDB
	}

	return adjustment
}

// CacheKey builds a stable cache key for a track's targets, combining the
// track ID with a short hash of its file path so a renamed-but-reused
// track ID doesn't silently reuse stale targets.
func CacheKey(trackID int64, filePath string) string {
	sum := md5.Sum([]byte(filePath)) //nolint:gosec // short disambiguating hash, not a security boundary

	return fmt.Sprintf("fingerprint_%d_%s", trackID, hex.EncodeToString(sum[:])[:8])
}

// TargetCache is a simple in-memory cache of generated targets, keyed by
// CacheKey, so a long-running processing pipeline only derives each
// track's targets once.
type TargetCache struct {
	entries map[string]Targets
}

// NewTargetCache returns an empty cache.
func NewTargetCache() *TargetCache {
	return &TargetCache{entries: make(map[string]Targets)}
}

// Get returns a cached entry, if present.
func (c *TargetCache) Get(key string) (Targets, bool) {
	t, ok := c.entries[key]

	return t, ok
}

// Put stores targets under key.
func (c *TargetCache) Put(key string, targets Targets) {
	c.entries[key] = targets
}

// Clear empties the cache, returning the number of entries removed.
func (c *TargetCache) Clear() int {
	n := len(c.entries)
	c.entries = make(map[string]Targets)

	return n
}
