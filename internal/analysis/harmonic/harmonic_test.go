package harmonic

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

func noiseMono(sampleRate int, seconds float64, seed uint64) *audio.Samples {
	n := int(float64(sampleRate) * seconds)
	buf := make([]float64, n)

	state := seed

	for i := range buf {
		state = state*6364136223846793005 + 1442695040888963407
		buf[i] = (float64(state>>11) / float64(1<<53))*2 - 1
	}

	return &audio.Samples{
		Format:   audio.Format{SampleRate: sampleRate, BitDepth: audio.Depth32, Channels: 1},
		Channels: [][]float64{buf},
	}
}

func TestAnalyzeEmptySamplesReturnsZeroResult(t *testing.T) {
	result := Analyze(&audio.Samples{})
	assert.Equal(t, Result{}, result)
}

func TestAnalyzePureToneHasHighHarmonicRatio(t *testing.T) {
	result := Analyze(sineMono(44100, 440, 2.0))
	assert.Greater(t, result.HarmonicRatio, 0.8)
}

func TestAnalyzeNoiseHasLowerHarmonicRatioThanPureTone(t *testing.T) {
	tone := Analyze(sineMono(44100, 440, 2.0))
	noise := Analyze(noiseMono(44100, 2.0, 42))

	assert.Greater(t, tone.HarmonicRatio, noise.HarmonicRatio)
}

func TestAnalyzeSteadyPitchHasHighStability(t *testing.T) {
	result := Analyze(sineMono(44100, 440, 5.0))
	assert.Greater(t, result.PitchStability, 0.9)
	assert.LessOrEqual(t, result.PitchStability, 1.0)
}

func TestChromaConcentrationIsHigherForPureToneThanNoise(t *testing.T) {
	tone := Analyze(sineMono(44100, 440, 3.0))
	noise := Analyze(noiseMono(44100, 3.0, 7))

	assert.Greater(t, tone.ChromaEnergy, noise.ChromaEnergy)
}

func TestFreqToChromaIsWithinBinRange(t *testing.T) {
	for _, f := range []float64{55, 110, 220, 440, 880, 1760} {
		bin := freqToChroma(f)
		assert.GreaterOrEqual(t, bin, 0)
		assert.Less(t, bin, numChromaBins)
	}
}
