package descriptor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

func sineStereo(sampleRate int, freq float64, seconds float64) *audio.Samples {
	n := int(float64(sampleRate) * seconds)
	left := make([]float64, n)
	right := make([]float64, n)

	for i := range left {
		v := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		left[i] = v
		right[i] = v
	}

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: 2},
		Channels: [][]float64{left, right},
	}
}

func TestAnalyzeRejectsEmptySamples(t *testing.T) {
	a := New(DefaultOptions())
	_, err := a.Analyze(1, &audio.Samples{})
	assert.Error(t, err)
}

func TestAnalyzeShortTrackUsesFullTrackStrategy(t *testing.T) {
	a := New(DefaultOptions())
	samples := sineStereo(44100, 440, 10.0)

	fp, err := a.Analyze(42, samples)
	require.NoError(t, err)
	assert.Equal(t, int64(42), fp.TrackID)

	vector := fp.ToVector()
	for _, v := range vector {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestAnalyzeLongTrackUsesSamplingStrategy(t *testing.T) {
	a := New(DefaultOptions())
	samples := sineStereo(44100, 440, 90.0)

	fp, err := a.Analyze(7, samples)
	require.NoError(t, err)

	vector := fp.ToVector()
	for _, v := range vector {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestAnalyzeFrequencyPercentagesSumNearHundred(t *testing.T) {
	a := New(DefaultOptions())
	samples := sineStereo(44100, 1000, 10.0)

	fp, err := a.Analyze(1, samples)
	require.NoError(t, err)

	sum := fp.SubBassPct + fp.BassPct + fp.LowMidPct + fp.MidPct +
		fp.UpperMidPct + fp.PresencePct + fp.AirPct

	assert.InDelta(t, 100.0, sum, 1.0)
}

func TestAnalyzeStampsFingerprintVersion(t *testing.T) {
	a := New(DefaultOptions())
	fp, err := a.Analyze(1, sineStereo(44100, 440, 5.0))
	require.NoError(t, err)

	assert.Equal(t, 1, fp.Version)
}
