package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

func sampleVectors(n int) [][25]float64 {
	vectors := make([][25]float64, n)

	for i := range vectors {
		var v [25]float64
		for d := range v {
			v[d] = float64(i) + float64(d)*0.1
		}

		vectors[i] = v
	}

	return vectors
}

func TestNormalizeRequiresFit(t *testing.T) {
	n := New()

	_, err := n.Normalize([25]float64{})
	assert.ErrorIs(t, err, errs.ErrNotFitted)
}

func TestFitFailsBelowMinSamples(t *testing.T) {
	n := New()

	err := n.Fit(sampleVectors(3), 10)
	require.Error(t, err)
	assert.False(t, n.IsFitted())
}

func TestNormalizeClampsToUnitRange(t *testing.T) {
	n := New()
	require.NoError(t, n.Fit(sampleVectors(20), 10))

	normalized, err := n.Normalize([25]float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100})
	require.NoError(t, err)

	for _, v := range normalized {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalizeZeroVarianceFallsBackToMidpoint(t *testing.T) {
	n := New()

	vectors := make([][25]float64, 20)
	for i := range vectors {
		vectors[i] = [25]float64{} // identical across every sample
	}

	require.NoError(t, n.Fit(vectors, 10))

	normalized, err := n.Normalize([25]float64{})
	require.NoError(t, err)

	for _, v := range normalized {
		assert.Equal(t, 0.5, v)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n := New()
	require.NoError(t, n.Fit(sampleVectors(20), 10))

	path := filepath.Join(t.TempDir(), "normalizer.json")
	require.NoError(t, n.Save(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))
	assert.True(t, loaded.IsFitted())

	original, err := n.Normalize(sampleVectors(1)[0])
	require.NoError(t, err)

	restored, err := loaded.Normalize(sampleVectors(1)[0])
	require.NoError(t, err)

	assert.InDeltaSlice(t, original[:], restored[:], 1e-9)
}

func TestSaveWithoutFitReturnsError(t *testing.T) {
	n := New()
	err := n.Save(filepath.Join(os.TempDir(), "unused.json"))
	assert.ErrorIs(t, err, errs.ErrNotFitted)
}
