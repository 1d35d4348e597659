package auralis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/distance"
	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

func newTestSimilarity(t *testing.T) (*Similarity, *storage.FingerprintRepository) {
	t.Helper()

	db, err := storage.Open(t.TempDir() + "/similarity_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)

	ctx := context.Background()

	for i := 0; i < 15; i++ {
		trackID, err := tracks.Add(ctx, "track-"+string(rune('a'+i))+".flac")
		require.NoError(t, err)

		fp := &Fingerprint{
			LUFS: -14.0 - float64(i)*0.1, CrestDB: 12.0, BassMidRatio: 1.0,
			TempoBPM: 120.0, RhythmStability: 0.8, TransientDensity: 2.0, SilenceRatio: 0.1,
			SpectralCentroid: 0.3, SpectralRolloff: 0.5, SpectralFlatness: 0.2,
			HarmonicRatio: 0.6, PitchStability: 0.7, ChromaEnergy: 0.4,
			DynamicRangeVariation: 2.0, LoudnessVariationStd: 1.0, PeakConsistency: 0.9,
			StereoWidth: 0.5, PhaseCorrelation: 0.8,
			SubBassPct: 5, BassPct: 15, LowMidPct: 18, MidPct: 22, UpperMidPct: 20, PresencePct: 13, AirPct: 7,
		}

		require.NoError(t, fingerprints.Upsert(ctx, storage.FingerprintRow{
			TrackID: trackID, Version: 1, Vector: fp.ToVector(),
		}))
	}

	return NewSimilarity(fingerprints, distance.DefaultWeights()), fingerprints
}

func TestFindSimilarRequiresFit(t *testing.T) {
	s, _ := newTestSimilarity(t)

	_, err := s.FindSimilar(context.Background(), 1, 5, true)
	assert.ErrorIs(t, err, errs.ErrNotFitted)
}

func TestFindSimilarReturnsNeighborsExcludingSelf(t *testing.T) {
	s, _ := newTestSimilarity(t)
	ctx := context.Background()

	require.NoError(t, s.Fit(ctx, 10))

	results, err := s.FindSimilar(ctx, 1, 5, false)
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, int64(1), r.TrackID)
	}
}

func TestFindSimilarPrefilterAgreesWithUnfilteredTop1(t *testing.T) {
	s, _ := newTestSimilarity(t)
	ctx := context.Background()

	require.NoError(t, s.Fit(ctx, 10))

	unfiltered, err := s.FindSimilar(ctx, 1, 1, false)
	require.NoError(t, err)
	require.NotEmpty(t, unfiltered)

	prefiltered, err := s.FindSimilar(ctx, 1, 1, true)
	require.NoError(t, err)
	require.NotEmpty(t, prefiltered)

	assert.Equal(t, unfiltered[0].TrackID, prefiltered[0].TrackID)
}

func TestCalculateSimilarityIsSymmetricInScore(t *testing.T) {
	s, _ := newTestSimilarity(t)
	ctx := context.Background()

	require.NoError(t, s.Fit(ctx, 10))

	ab, err := s.CalculateSimilarity(ctx, 1, 2)
	require.NoError(t, err)

	ba, err := s.CalculateSimilarity(ctx, 2, 1)
	require.NoError(t, err)

	assert.InDelta(t, ab.Distance, ba.Distance, 1e-9)
}

func TestExplainReturnsTopDifferences(t *testing.T) {
	s, _ := newTestSimilarity(t)
	ctx := context.Background()

	require.NoError(t, s.Fit(ctx, 10))

	explanation, err := s.Explain(ctx, 1, 2, 3)
	require.NoError(t, err)
	assert.Len(t, explanation.TopDifferences, 3)
	assert.Len(t, explanation.AllContributions, DimensionCount)
}
