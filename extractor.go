package auralis

import (
	"context"
	"fmt"
	"time"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
	"github.com/matiaszanolli/auralis-fpcore/internal/descriptor"
	"github.com/matiaszanolli/auralis-fpcore/internal/sidecar"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

// Extractor resolves a track's fingerprint through three tiers, cheapest
// first: the database, then a sidecar file next to the audio, then a full
// decode-and-analyze pass. Each tier that succeeds backfills the cheaper
// tiers above it so the next lookup is fast.
type Extractor struct {
	tracks       *storage.TrackRepository
	fingerprints *storage.FingerprintRepository
	analyzer     *descriptor.Analyzer
	streamIndex  int
}

// NewExtractor builds an Extractor. streamIndex selects which audio stream
// ffprobe/ffmpeg decode when a file carries more than one (0 is the first).
func NewExtractor(tracks *storage.TrackRepository, fingerprints *storage.FingerprintRepository, analyzer *descriptor.Analyzer, streamIndex int) *Extractor {
	return &Extractor{
		tracks:       tracks,
		fingerprints: fingerprints,
		analyzer:     analyzer,
		streamIndex:  streamIndex,
	}
}

// ExtractByTrackID resolves trackID's file path from the track repository
// before running Extract, for callers that only have an ID. The worker
// pool uses ExtractClaimedByTrackID instead.
func (e *Extractor) ExtractByTrackID(ctx context.Context, trackID int64) (*Fingerprint, error) {
	track, err := e.tracks.Get(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("resolving path for track %d: %w", trackID, err)
	}

	return e.Extract(ctx, trackID, track.FilePath)
}

// Extract returns trackID's fingerprint, computing it if necessary.
// filePath is the audio file backing trackID, used for the sidecar and
// compute tiers.
func (e *Extractor) Extract(ctx context.Context, trackID int64, filePath string) (*Fingerprint, error) {
	if fp, err := e.fromDatabase(ctx, trackID); err == nil {
		return fp, nil
	}

	if fp, err := e.fromSidecar(ctx, trackID, filePath); err == nil {
		return fp, nil
	}

	return e.fromCompute(ctx, trackID, filePath)
}

// ExtractClaimedByTrackID fingerprints a track a claim has already
// reserved: it resolves the track's path, skips the database tier (the
// claim itself holds a placeholder row there), and tries the sidecar
// before falling back to a full compute pass. cached reports whether the
// sidecar tier served the result.
func (e *Extractor) ExtractClaimedByTrackID(ctx context.Context, trackID int64) (fp *Fingerprint, cached bool, err error) {
	track, err := e.tracks.Get(ctx, trackID)
	if err != nil {
		return nil, false, fmt.Errorf("resolving path for track %d: %w", trackID, err)
	}

	if fp, err := e.fromSidecar(ctx, trackID, track.FilePath); err == nil {
		return fp, true, nil
	}

	fp, err = e.fromCompute(ctx, trackID, track.FilePath)

	return fp, false, err
}

func (e *Extractor) fromDatabase(ctx context.Context, trackID int64) (*Fingerprint, error) {
	row, err := e.fingerprints.GetByTrackID(ctx, trackID)
	if err != nil {
		return nil, err
	}

	fp := &Fingerprint{TrackID: trackID, Version: row.Version}
	fp.FromVector(row.Vector)

	return fp, nil
}

func (e *Extractor) fromSidecar(ctx context.Context, trackID int64, filePath string) (*Fingerprint, error) {
	dims, err := sidecar.GetFingerprint(filePath)
	if err != nil {
		return nil, err
	}

	fp := &Fingerprint{TrackID: trackID, Version: FingerprintVersion}
	fp.FromVector(vectorFromDimensionMap(dims))

	if err := e.fingerprints.Upsert(ctx, storage.FingerprintRow{
		TrackID: trackID, Version: fp.Version, Vector: fp.ToVector(),
	}); err != nil {
		return nil, fmt.Errorf("caching sidecar fingerprint for track %d: %w", trackID, err)
	}

	return fp, nil
}

func (e *Extractor) fromCompute(ctx context.Context, trackID int64, filePath string) (*Fingerprint, error) {
	samples, err := audio.Load(ctx, filePath, e.streamIndex)
	if err != nil {
		return nil, fmt.Errorf("loading %s for fingerprinting: %w", filePath, err)
	}

	fp, err := e.analyzer.Analyze(trackID, samples)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", filePath, err)
	}

	if err := e.fingerprints.Upsert(ctx, storage.FingerprintRow{
		TrackID: trackID, Version: fp.Version, Vector: fp.ToVector(),
	}); err != nil {
		return nil, fmt.Errorf("storing fingerprint for track %d: %w", trackID, err)
	}

	if err := sidecar.Write(filePath, dimensionMapFromVector(fp.ToVector()), nil, nil, time.Now()); err != nil {
		return nil, fmt.Errorf("writing sidecar for %s: %w", filePath, err)
	}

	return fp, nil
}

func vectorFromDimensionMap(dims map[string]float64) [DimensionCount]float64 {
	var v [DimensionCount]float64
	for i, name := range DimensionNames {
		v[i] = dims[name]
	}

	return v
}

func dimensionMapFromVector(v [DimensionCount]float64) map[string]float64 {
	dims := make(map[string]float64, DimensionCount)
	for i, name := range DimensionNames {
		dims[name] = v[i]
	}

	return dims
}
