// Package loudness derives a track's integrated loudness (LUFS) and crest
// factor from decoded PCM samples, using the same ITU-R BS.1770 K-weighting
// and two-stage gating as a full loudness meter, but reporting just the two
// scalars the fingerprint needs rather than a full momentary/short-term
// loudness report.
package loudness

import (
	"math"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio"
	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// biquadState holds the running delay line for a single biquad stage.
type biquadState struct {
	x1, x2 float64
	y1, y2 float64
}

// biquad is a direct-form-I biquad filter.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

func (f biquad) process(x float64, s *biquadState) float64 {
	y := f.b0*x + f.b1*s.x1 + f.b2*s.x2 - f.a1*s.y1 - f.a2*s.y2

	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y

	return y
}

// getKWeightingFilters returns the ITU-R BS.1770-4 pre-filter (high shelf)
// and RLB weighting (high pass) biquads for the given sample rate. The
// center frequency, gain and Q values are the standard's fixed constants,
// carried over unchanged regardless of sample rate.
func getKWeightingFilters(sampleRate int) (preFilter, rlb biquad) {
	preFilter = shelfBiquad(sampleRate, 1681.974450955533, 3.999843853973347, 0.7071752369554196)
	rlb = highPassBiquad(sampleRate, 38.13547087602444, 0.5003270373238773)

	return preFilter, rlb
}

func shelfBiquad(sampleRate int, centerFreq, gainDB, q float64) biquad {
	fs := float64(sampleRate)
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * centerFreq / fs
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	sqrtA := math.Sqrt(a)

	b0 := a * ((a + 1) + (a-1)*cosW0 + 2*sqrtA*alpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW0)
	b2 := a * ((a + 1) + (a-1)*cosW0 - 2*sqrtA*alpha)
	a0 := (a + 1) - (a-1)*cosW0 + 2*sqrtA*alpha
	a1 := 2 * ((a - 1) - (a+1)*cosW0)
	a2 := (a + 1) - (a-1)*cosW0 - 2*sqrtA*alpha

	return biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

func highPassBiquad(sampleRate int, centerFreq, q float64) biquad {
	fs := float64(sampleRate)
	w0 := 2 * math.Pi * centerFreq / fs
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	b0 := (1 + cosW0) / 2
	b1 := -(1 + cosW0)
	b2 := (1 + cosW0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW0
	a2 := 1 - alpha

	return biquad{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

// absoluteGateLUFS and relativeGateLU are the ITU-R BS.1770-4 two-stage
// gating constants: blocks quieter than -70 LUFS are discarded outright,
// then blocks more than 10 LU below the ungated mean are discarded too.
const (
	absoluteGateLUFS = -70.0
	relativeGateLU   = 10.0
	silentFloorLUFS  = -120.0
)

// blockFrames is the gating block length in seconds (400ms, the momentary
// loudness window BS.1770 defines); Analyze converts it to a frame count at
// the track's own sample rate.
const blockFrames = 0.4 // seconds

// Analyze computes integrated LUFS and crest factor (dB) for the given
// samples. Channel data is averaged per BS.1770's equal-weight stereo
// convention (no surround weighting, since the fingerprint domain is
// stereo/mono only).
func Analyze(samples *audio.Samples) (lufs, crestDB float64, err error) {
	if samples == nil || len(samples.Channels) == 0 {
		return 0, 0, errs.ErrInvalidSamples
	}

	numChannels := len(samples.Channels)
	numFrames := len(samples.Channels[0])

	if numFrames == 0 {
		return 0, 0, errs.ErrInvalidSamples
	}

	preFilter, rlb := getKWeightingFilters(samples.Format.SampleRate)

	preStates := make([]biquadState, numChannels)
	rlbStates := make([]biquadState, numChannels)

	blockSize := int(blockFrames * float64(samples.Format.SampleRate))
	if blockSize < 1 {
		blockSize = 1
	}

	var blockPower float64

	var blockCount int

	powers := make([]float64, 0, numFrames/blockSize+1)

	var peak float64

	var sumSquares float64

	for frame := 0; frame < numFrames; frame++ {
		var framePower float64

		for ch := 0; ch < numChannels; ch++ {
			x := samples.Channels[ch][frame]

			if math.Abs(x) > peak {
				peak = math.Abs(x)
			}

			sumSquares += x * x

			weighted := preFilter.process(x, &preStates[ch])
			weighted = rlb.process(weighted, &rlbStates[ch])
			framePower += weighted * weighted
		}

		blockPower += framePower
		blockCount++

		if blockCount == blockSize {
			powers = append(powers, blockPower/float64(blockCount*numChannels))
			blockPower = 0
			blockCount = 0
		}
	}

	if blockCount > 0 {
		powers = append(powers, blockPower/float64(blockCount*numChannels))
	}

	lufs = calculateIntegratedLoudness(powers)

	rmsOverall := math.Sqrt(sumSquares / float64(numFrames*numChannels))
	crestDB = crestFactor(peak, rmsOverall)

	return lufs, crestDB, nil
}

// calculateIntegratedLoudness applies BS.1770-4's two-stage gating:
// absolute gate at -70 LUFS, then a relative gate 10 LU below the
// resulting ungated mean.
func calculateIntegratedLoudness(powers []float64) float64 {
	if len(powers) == 0 {
		return silentFloorLUFS
	}

	var ungatedSum float64

	var ungatedCount int

	for _, p := range powers {
		if p <= 0 {
			continue
		}

		l := -0.691 + 10*math.Log10(p)
		if l > absoluteGateLUFS {
			ungatedSum += p
			ungatedCount++
		}
	}

	if ungatedCount == 0 {
		return silentFloorLUFS
	}

	ungatedMeanLUFS := -0.691 + 10*math.Log10(ungatedSum/float64(ungatedCount))
	relativeThreshold := ungatedMeanLUFS - relativeGateLU

	var gatedSum float64

	var gatedCount int

	for _, p := range powers {
		if p <= 0 {
			continue
		}

		l := -0.691 + 10*math.Log10(p)
		if l > relativeThreshold {
			gatedSum += p
			gatedCount++
		}
	}

	if gatedCount == 0 {
		return silentFloorLUFS
	}

	return -0.691 + 10*math.Log10(gatedSum/float64(gatedCount))
}

// crestFactor is the ratio of peak to RMS amplitude, in dB.
func crestFactor(peak, rms float64) float64 {
	if rms <= 0 {
		return 0
	}

	return 20 * math.Log10(peak/rms)
}
