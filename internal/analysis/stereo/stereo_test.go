package stereo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

func makeSamples(left, right []float64) *audio.Samples {
	return &audio.Samples{
		Format:   audio.Format{SampleRate: 44100, BitDepth: audio.Depth32, Channels: 2},
		Channels: [][]float64{left, right},
	}
}

func TestAnalyzeMonoChannelsYieldsZeroWidthFullCorrelation(t *testing.T) {
	mono := []float64{0.1, 0.2, -0.1, 0.3}
	result := Analyze(makeSamples(mono, mono))

	assert.Equal(t, 0.0, result.StereoWidth)
	assert.InDelta(t, 1.0, result.PhaseCorrelation, 1e-9)
}

func TestAnalyzeSingleChannelInputIsTreatedAsMono(t *testing.T) {
	result := Analyze(&audio.Samples{
		Format:   audio.Format{SampleRate: 44100, BitDepth: audio.Depth32, Channels: 1},
		Channels: [][]float64{{0.1, 0.2, 0.3}},
	})

	assert.Equal(t, 0.0, result.StereoWidth)
	assert.Equal(t, 1.0, result.PhaseCorrelation)
}

func TestAnalyzeOutOfPhaseSignalYieldsNegativeCorrelation(t *testing.T) {
	left := []float64{0.5, -0.3, 0.2, -0.1}
	right := make([]float64, len(left))
	for i, v := range left {
		right[i] = -v
	}

	result := Analyze(makeSamples(left, right))

	assert.InDelta(t, -1.0, result.PhaseCorrelation, 1e-9)
	assert.InDelta(t, 1.0, result.StereoWidth, 1e-9)
}

func TestAnalyzeWidthIsClampedToUnitRange(t *testing.T) {
	result := Analyze(makeSamples([]float64{1, -1, 1, -1}, []float64{-1, 1, -1, 1}))
	assert.LessOrEqual(t, result.StereoWidth, 1.0)
	assert.GreaterOrEqual(t, result.StereoWidth, 0.0)
}

func TestAnalyzeEmptySamplesReturnsMonoDefault(t *testing.T) {
	result := Analyze(&audio.Samples{})
	assert.Equal(t, 0.0, result.StereoWidth)
	assert.Equal(t, 1.0, result.PhaseCorrelation)
}
