package auralis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/distance"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

func newTestGraph(t *testing.T) (*Graph, *storage.GraphRepository) {
	t.Helper()

	similarity, _ := newTestSimilarity(t)

	db, err := storage.Open(t.TempDir() + "/graph_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	graphRepo := storage.NewGraphRepository(db)

	return NewGraph(graphRepo, similarity), graphRepo
}

func TestBuildGraphPopulatesNeighborsForEveryTrack(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.similarity.Fit(ctx, 10))

	stats, err := g.BuildGraph(ctx, 5, true)
	require.NoError(t, err)

	assert.Equal(t, 15, stats.TotalTracks)
	assert.Equal(t, 15*5, stats.TotalEdges)
}

func TestBuildGraphClearExistingReplacesPriorEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.similarity.Fit(ctx, 10))

	_, err := g.BuildGraph(ctx, 5, true)
	require.NoError(t, err)

	stats, err := g.BuildGraph(ctx, 3, true)
	require.NoError(t, err)

	assert.Equal(t, 15*3, stats.TotalEdges)
}

func TestGetNeighborsReturnsRankedEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.similarity.Fit(ctx, 10))
	_, err := g.BuildGraph(ctx, 5, true)
	require.NoError(t, err)

	neighbors, err := g.GetNeighbors(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, neighbors, 5)

	for i, e := range neighbors {
		assert.Equal(t, int64(1), e.TrackID)
		assert.Equal(t, i+1, e.Rank)
		assert.NotEqual(t, int64(1), e.SimilarTrackID)
	}
}

func TestUpdateGraphRewritesSingleTrackEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.similarity.Fit(ctx, 10))
	_, err := g.BuildGraph(ctx, 5, true)
	require.NoError(t, err)

	written, err := g.UpdateGraph(ctx, []int64{1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	neighbors, err := g.GetNeighbors(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, neighbors, 3)
}

func TestClearGraphRemovesAllEdges(t *testing.T) {
	g, _ := newTestGraph(t)
	ctx := context.Background()

	require.NoError(t, g.similarity.Fit(ctx, 10))
	_, err := g.BuildGraph(ctx, 5, true)
	require.NoError(t, err)

	removed, err := g.ClearGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15*5), removed)

	stats, err := g.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEdges)
}

func TestBuildGraphOnEmptyFingerprintsReturnsZeroStats(t *testing.T) {
	db, err := storage.Open(t.TempDir() + "/graph_empty_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	fingerprints := storage.NewFingerprintRepository(db)
	graphRepo := storage.NewGraphRepository(db)

	s := NewSimilarity(fingerprints, distance.DefaultWeights())
	g := NewGraph(graphRepo, s)

	stats, err := g.BuildGraph(context.Background(), 5, true)
	require.NoError(t, err)
	assert.Equal(t, storage.GraphStats{}, stats)
}
