package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWeightsNormalizeToOne(t *testing.T) {
	arr := DefaultWeights().ToArray()

	var sum float64
	for _, v := range arr {
		sum += v
	}

	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCalculateIdenticalVectorsIsZero(t *testing.T) {
	c := NewCalculator(DefaultWeights())

	var v [25]float64
	for i := range v {
		v[i] = 0.5
	}

	assert.Equal(t, 0.0, c.Calculate(v, v))
}

func TestFindClosestNOrdersByDistance(t *testing.T) {
	c := NewCalculator(EqualWeights())

	var target [25]float64
	for i := range target {
		target[i] = 0.5
	}

	near := target
	near[0] = 0.51

	far := target
	far[0] = 0.9

	candidates := []Candidate{
		{TrackID: 1, Vector: far},
		{TrackID: 2, Vector: near},
	}

	results := c.FindClosestN(target, candidates, 10)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].TrackID)
	assert.Equal(t, int64(1), results[1].TrackID)
}

func TestFindClosestNRespectsLimit(t *testing.T) {
	c := NewCalculator(DefaultWeights())

	var target [25]float64

	candidates := make([]Candidate, 5)
	for i := range candidates {
		v := target
		v[0] = float64(i) * 0.1
		candidates[i] = Candidate{TrackID: int64(i), Vector: v}
	}

	results := c.FindClosestN(target, candidates, 2)
	assert.Len(t, results, 2)
	assert.Equal(t, int64(0), results[0].TrackID)
}

func TestSimilarityScoreBounds(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityScore(0, 1.0))
	assert.Equal(t, 0.0, SimilarityScore(1.0, 1.0))
	assert.Equal(t, 0.0, SimilarityScore(5.0, 1.0))
}
