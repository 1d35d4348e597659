package loudness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
)

func sineSamples(sampleRate int, freq, amplitude float64, seconds float64, channels int) *audio.Samples {
	numFrames := int(float64(sampleRate) * seconds)
	chans := make([][]float64, channels)

	for ch := range chans {
		buf := make([]float64, numFrames)
		for i := range buf {
			buf[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		}

		chans[ch] = buf
	}

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: channels},
		Channels: chans,
	}
}

func TestAnalyzeRejectsEmptySamples(t *testing.T) {
	_, _, err := Analyze(&audio.Samples{})
	assert.Error(t, err)
}

func TestAnalyzeLouderSignalYieldsHigherLUFS(t *testing.T) {
	quiet := sineSamples(44100, 1000, 0.05, 2.0, 2)
	loud := sineSamples(44100, 1000, 0.5, 2.0, 2)

	quietLUFS, _, err := Analyze(quiet)
	require.NoError(t, err)

	loudLUFS, _, err := Analyze(loud)
	require.NoError(t, err)

	assert.Greater(t, loudLUFS, quietLUFS)
}

func TestAnalyzeSilenceHitsFloor(t *testing.T) {
	silence := sineSamples(44100, 1000, 0.0, 1.0, 2)

	lufs, _, err := Analyze(silence)
	require.NoError(t, err)
	assert.Equal(t, silentFloorLUFS, lufs)
}

func TestAnalyzeCrestFactorOfPureSineIsStable(t *testing.T) {
	samples := sineSamples(44100, 1000, 0.5, 2.0, 2)

	_, crestDB, err := Analyze(samples)
	require.NoError(t, err)

	// A pure sine's peak/rms ratio is sqrt(2), i.e. ~3.01dB crest.
	assert.InDelta(t, 3.01, crestDB, 0.5)
}

func TestCrestFactorZeroRMSReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, crestFactor(1.0, 0))
}
