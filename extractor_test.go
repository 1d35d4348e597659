package auralis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/descriptor"
	"github.com/matiaszanolli/auralis-fpcore/internal/sidecar"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

func newTestExtractor(t *testing.T) (*Extractor, *storage.TrackRepository, *storage.FingerprintRepository) {
	t.Helper()

	db, err := storage.Open(t.TempDir() + "/extractor_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)
	analyzer := descriptor.New(descriptor.DefaultOptions())

	return NewExtractor(tracks, fingerprints, analyzer, 0), tracks, fingerprints
}

func sampleFingerprint() *Fingerprint {
	return &Fingerprint{
		LUFS: -14.0, CrestDB: 12.0, BassMidRatio: 1.0,
		TempoBPM: 120.0, RhythmStability: 0.8, TransientDensity: 2.0, SilenceRatio: 0.1,
		SpectralCentroid: 0.3, SpectralRolloff: 0.5, SpectralFlatness: 0.2,
		HarmonicRatio: 0.6, PitchStability: 0.7, ChromaEnergy: 0.4,
		DynamicRangeVariation: 2.0, LoudnessVariationStd: 1.0, PeakConsistency: 0.9,
		StereoWidth: 0.5, PhaseCorrelation: 0.8,
		SubBassPct: 5, BassPct: 15, LowMidPct: 18, MidPct: 22, UpperMidPct: 20, PresencePct: 13, AirPct: 7,
	}
}

func TestExtractReturnsFromDatabaseWithoutTouchingDisk(t *testing.T) {
	e, tracks, fingerprints := newTestExtractor(t)
	ctx := context.Background()

	trackID, err := tracks.Add(ctx, "/nonexistent/track.flac")
	require.NoError(t, err)

	fp := sampleFingerprint()
	require.NoError(t, fingerprints.Upsert(ctx, storage.FingerprintRow{
		TrackID: trackID, Version: FingerprintVersion, Vector: fp.ToVector(),
	}))

	got, err := e.Extract(ctx, trackID, "/nonexistent/track.flac")
	require.NoError(t, err)
	assert.InDelta(t, -14.0, got.LUFS, 1e-9)
	assert.InDelta(t, 120.0, got.TempoBPM, 1e-9)
}

func TestExtractFallsBackToSidecarAndBackfillsDatabase(t *testing.T) {
	e, tracks, fingerprints := newTestExtractor(t)
	ctx := context.Background()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "track.flac")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake audio bytes"), 0o644))

	fp := sampleFingerprint()
	require.NoError(t, sidecar.Write(audioPath, dimensionMapFromVector(fp.ToVector()), nil, nil, time.Now()))

	trackID, err := tracks.Add(ctx, audioPath)
	require.NoError(t, err)

	got, err := e.Extract(ctx, trackID, audioPath)
	require.NoError(t, err)
	assert.InDelta(t, -14.0, got.LUFS, 1e-9)

	row, err := fingerprints.GetByTrackID(ctx, trackID)
	require.NoError(t, err)
	assert.InDelta(t, -14.0, row.Vector[7], 1e-9) // lufs column index
}

func TestExtractByTrackIDResolvesPathFromRepository(t *testing.T) {
	e, tracks, fingerprints := newTestExtractor(t)
	ctx := context.Background()

	trackID, err := tracks.Add(ctx, "/library/song.flac")
	require.NoError(t, err)

	fp := sampleFingerprint()
	require.NoError(t, fingerprints.Upsert(ctx, storage.FingerprintRow{
		TrackID: trackID, Version: FingerprintVersion, Vector: fp.ToVector(),
	}))

	got, err := e.ExtractByTrackID(ctx, trackID)
	require.NoError(t, err)
	assert.Equal(t, trackID, got.TrackID)
}

func TestVectorAndDimensionMapRoundTrip(t *testing.T) {
	fp := sampleFingerprint()
	vector := fp.ToVector()

	dims := dimensionMapFromVector(vector)
	roundTripped := vectorFromDimensionMap(dims)

	assert.Equal(t, vector, roundTripped)
}
