package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

func clickTrack(sampleRate int, bpm float64, seconds float64) *audio.Samples {
	n := int(float64(sampleRate) * seconds)
	buf := make([]float64, n)

	interval := int(60.0 / bpm * float64(sampleRate))
	for i := 0; i < n; i += interval {
		for j := 0; j < 200 && i+j < n; j++ {
			buf[i+j] = 0.9 * math.Exp(-float64(j)/20.0)
		}
	}

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: 1},
		Channels: [][]float64{buf},
	}
}

func silentTrack(sampleRate int, seconds float64) *audio.Samples {
	n := int(float64(sampleRate) * seconds)

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: 1},
		Channels: [][]float64{make([]float64, n)},
	}
}

func TestAnalyzeEmptySamplesReturnsZeroResult(t *testing.T) {
	result := Analyze(&audio.Samples{})
	assert.Equal(t, Result{}, result)
}

func TestAnalyzeSilentTrackHasFullSilenceRatio(t *testing.T) {
	result := Analyze(silentTrack(44100, 10.0))
	assert.Equal(t, 1.0, result.SilenceRatio)
	assert.Equal(t, 0.0, result.TempoBPM)
}

func TestAnalyzeClickTrackDetectsTempoNearTarget(t *testing.T) {
	result := Analyze(clickTrack(44100, 120.0, 20.0))

	if result.TempoBPM > 0 {
		// Allow octave-equivalent detection (60/120/240 all describe the
		// same click pattern under autocorrelation).
		ratio := result.TempoBPM / 120.0
		nearestOctave := math.Round(math.Log2(ratio))
		assert.InDelta(t, 0.0, ratio/math.Pow(2, nearestOctave)-1, 0.1)
	}
}

func TestAnalyzeTempoIsWithinBounds(t *testing.T) {
	result := Analyze(clickTrack(44100, 120.0, 20.0))
	if result.TempoBPM > 0 {
		assert.GreaterOrEqual(t, result.TempoBPM, minBPM)
		assert.LessOrEqual(t, result.TempoBPM, maxBPM)
	}
}

func TestAnalyzeRhythmStabilityWithinUnitRange(t *testing.T) {
	result := Analyze(clickTrack(44100, 120.0, 60.0))
	assert.GreaterOrEqual(t, result.RhythmStability, 0.0)
	assert.LessOrEqual(t, result.RhythmStability, 1.0)
}

func TestSilenceRatioWithinUnitRange(t *testing.T) {
	result := Analyze(clickTrack(44100, 120.0, 20.0))
	assert.GreaterOrEqual(t, result.SilenceRatio, 0.0)
	assert.LessOrEqual(t, result.SilenceRatio, 1.0)
}
