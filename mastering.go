package auralis

import (
	"context"
	"fmt"

	"github.com/matiaszanolli/auralis-fpcore/internal/mastering"
)

// MasteringTargets derives (and caches) mastering targets for a track from
// its stored fingerprint. Targets are deterministic given the fingerprint,
// so a cache hit never goes stale unless the fingerprint itself is
// recomputed under the same track ID and file path.
func (e *Engine) MasteringTargets(ctx context.Context, trackID int64) (mastering.Targets, error) {
	track, err := e.Tracks.Get(ctx, trackID)
	if err != nil {
		return mastering.Targets{}, fmt.Errorf("resolving track: %w", err)
	}

	key := mastering.CacheKey(trackID, track.FilePath)

	if cached, ok := e.masteringCache.Get(key); ok {
		return cached, nil
	}

	row, err := e.Fingerprints.GetByTrackID(ctx, trackID)
	if err != nil {
		return mastering.Targets{}, fmt.Errorf("resolving fingerprint: %w", err)
	}

	fp := &Fingerprint{TrackID: trackID, Version: row.Version}
	fp.FromVector(row.Vector)

	balance := mastering.FrequencyBalance{
		SubBassPct:  fp.SubBassPct,
		BassPct:     fp.BassPct,
		LowMidPct:   fp.LowMidPct,
		MidPct:      fp.MidPct,
		UpperMidPct: fp.UpperMidPct,
		PresencePct: fp.PresencePct,
		AirPct:      fp.AirPct,
	}

	targets := mastering.GenerateTargets(fp.CrestDB, balance)
	e.masteringCache.Put(key, targets)

	return targets, nil
}

// ClearMasteringCache empties the in-memory target cache, returning the
// number of entries removed.
func (e *Engine) ClearMasteringCache() int {
	return e.masteringCache.Clear()
}
