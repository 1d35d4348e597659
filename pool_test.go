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

func TestPoolOnEmptyLibraryReturnsZeroStats(t *testing.T) {
	db, err := storage.Open(t.TempDir() + "/pool_empty_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)
	extractor := NewExtractor(tracks, fingerprints, descriptor.New(descriptor.DefaultOptions()), 0)

	pool := NewPool(extractor, fingerprints, 2, 2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats := pool.Run(ctx)
	assert.Equal(t, PoolStats{}, stats)
}

func TestPoolProcessesEverySidecarCachedTrack(t *testing.T) {
	db, err := storage.Open(t.TempDir() + "/pool_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)
	extractor := NewExtractor(tracks, fingerprints, descriptor.New(descriptor.DefaultOptions()), 0)

	dir := t.TempDir()

	const numTracks = 8

	trackIDs := make([]int64, numTracks)

	for i := 0; i < numTracks; i++ {
		path := filepath.Join(dir, "track-"+string(rune('a'+i))+".flac")
		require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))

		fp := sampleFingerprint()
		require.NoError(t, sidecar.Write(path, dimensionMapFromVector(fp.ToVector()), nil, nil, time.Now()))

		id, err := tracks.Add(context.Background(), path)
		require.NoError(t, err)

		trackIDs[i] = id
	}

	var events []ProgressEvent

	pool := NewPool(extractor, fingerprints, 3, 3, func(e ProgressEvent) {
		events = append(events, e)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := pool.Run(ctx)

	assert.Equal(t, numTracks, stats.Completed)
	assert.Equal(t, numTracks, stats.Cached)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Processing)
	assert.Len(t, events, numTracks)

	for _, id := range trackIDs {
		row, err := fingerprints.GetByTrackID(context.Background(), id)
		require.NoError(t, err)
		assert.InDelta(t, -14.0, row.Vector[7], 1e-9)
	}
}

func TestPoolStopsOnContextCancellation(t *testing.T) {
	db, err := storage.Open(t.TempDir() + "/pool_cancel_test.db")
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)
	extractor := NewExtractor(tracks, fingerprints, descriptor.New(descriptor.DefaultOptions()), 0)

	pool := NewPool(extractor, fingerprints, 2, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := pool.Run(ctx)
	assert.Equal(t, 0, stats.Completed)
}

func TestDefaultWorkerCountIsAtLeastFour(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkerCount(), 4)
}
