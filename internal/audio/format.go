// Package audio loads audio files into decoded PCM buffers.
package audio

// BitDepth is the sample bit depth of a decoded PCM stream.
type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// Format describes a decoded PCM stream: sample rate, bit depth, and
// channel count. The core only ever consumes interleaved little-endian
// PCM in this shape, regardless of the original container.
type Format struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}
