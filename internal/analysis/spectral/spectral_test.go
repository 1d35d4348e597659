package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

func sineMono(sampleRate int, freq float64, seconds float64) *audio.Samples {
	n := int(float64(sampleRate) * seconds)
	buf := make([]float64, n)

	for i := range buf {
		buf[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: 1},
		Channels: [][]float64{buf},
	}
}

func TestAnalyzeShortTrackReturnsZeroResult(t *testing.T) {
	result := Analyze(sineMono(44100, 1000, 0.01))
	assert.Equal(t, Result{}, result)
}

func TestAnalyzeResultsAreWithinUnitRange(t *testing.T) {
	result := Analyze(sineMono(44100, 1000, 3.0))

	assert.GreaterOrEqual(t, result.Centroid, 0.0)
	assert.LessOrEqual(t, result.Centroid, 1.0)
	assert.GreaterOrEqual(t, result.Rolloff, 0.0)
	assert.LessOrEqual(t, result.Rolloff, 1.0)
	assert.GreaterOrEqual(t, result.Flatness, 0.0)
	assert.LessOrEqual(t, result.Flatness, 1.0)
}

func TestAnalyzePureToneHasLowFlatness(t *testing.T) {
	result := Analyze(sineMono(44100, 1000, 3.0))
	assert.Less(t, result.Flatness, 0.3)
}

func TestAnalyzeHigherFrequencyToneHasHigherCentroid(t *testing.T) {
	low := Analyze(sineMono(44100, 500, 3.0))
	high := Analyze(sineMono(44100, 5000, 3.0))

	assert.Greater(t, high.Centroid, low.Centroid)
}

func TestSanitizeRatioClampsAndHandlesNaN(t *testing.T) {
	assert.Equal(t, 0.0, sanitizeRatio(math.NaN()))
	assert.Equal(t, 0.0, sanitizeRatio(math.Inf(1)))
	assert.Equal(t, 1.0, sanitizeRatio(2.0))
	assert.Equal(t, 0.0, sanitizeRatio(-1.0))
}
