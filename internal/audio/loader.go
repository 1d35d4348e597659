package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/matiaszanolli/auralis-fpcore/internal/audio/ffmpeg"
	"github.com/matiaszanolli/auralis-fpcore/internal/audio/ffprobe"
	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// Samples holds decoded audio scaled to [-1, 1], de-interleaved per channel.
type Samples struct {
	Format   Format
	Channels [][]float64
}

// Mono mixes all channels down to a single slice (equal-weight average).
func (s *Samples) Mono() []float64 {
	if len(s.Channels) == 1 {
		return s.Channels[0]
	}

	n := 0
	if len(s.Channels) > 0 {
		n = len(s.Channels[0])
	}

	out := make([]float64, n)

	for _, ch := range s.Channels {
		for i, v := range ch {
			out[i] += v
		}
	}

	inv := 1.0 / float64(len(s.Channels))
	for i := range out {
		out[i] *= inv
	}

	return out
}

// Load probes filePath, extracts the requested audio stream to 32-bit PCM
// via ffmpeg, and decodes it into per-channel float64 samples in [-1, 1].
func Load(ctx context.Context, filePath string, streamIndex int) (*Samples, error) {
	probeResult, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", filePath, err)
	}

	stream, err := findAudioStream(probeResult, streamIndex)
	if err != nil {
		return nil, err
	}

	format, err := buildFormat(stream)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath) //nolint:gosec // caller-provided library path
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer file.Close()

	var pcmBuf bytes.Buffer

	extractFormat := &Format{BitDepth: Depth32}

	if err := ffmpeg.ExtractStream(ctx, file, &pcmBuf, streamIndex, extractFormat); err != nil {
		return nil, fmt.Errorf("extracting PCM from %s: %w", filePath, err)
	}

	return decode(pcmBuf.Bytes(), format)
}

func findAudioStream(result *ffprobe.Result, streamIndex int) (*ffprobe.Stream, error) {
	audioCount := 0

	for i := range result.Streams {
		if result.Streams[i].CodecType == "audio" {
			if audioCount == streamIndex {
				return &result.Streams[i], nil
			}

			audioCount++
		}
	}

	return nil, fmt.Errorf("%w: audio stream index %d (file has %d audio streams)", errs.ErrNotFound, streamIndex, audioCount)
}

func buildFormat(stream *ffprobe.Stream) (Format, error) {
	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return Format{}, fmt.Errorf("%w: invalid sample rate %q", errs.ErrUnsupportedFormat, stream.SampleRate)
	}

	if stream.Channels <= 0 {
		return Format{}, fmt.Errorf("%w: invalid channel count %d", errs.ErrUnsupportedFormat, stream.Channels)
	}

	return Format{
		SampleRate: sampleRate,
		BitDepth:   Depth32,
		Channels:   uint(stream.Channels), //nolint:gosec // validated positive above
	}, nil
}

// decode turns little-endian signed PCM bytes into per-channel float64
// samples scaled to [-1, 1]. Mirrors the teacher's audit/loudness and
// audit/stereo decode loops, generalized across bit depths and channel
// counts instead of hardcoded to mono/stereo.
func decode(raw []byte, format Format) (*Samples, error) {
	bytesPerSample := int(format.BitDepth) / 8
	if bytesPerSample <= 0 || format.Channels == 0 {
		return nil, fmt.Errorf("%w: bit depth %d channels %d", errs.ErrUnsupportedFormat, format.BitDepth, format.Channels)
	}

	frameSize := bytesPerSample * int(format.Channels)
	if frameSize == 0 || len(raw)%frameSize != 0 {
		if len(raw) < frameSize {
			return nil, fmt.Errorf("%w: %d bytes shorter than one frame (%d bytes)", errs.ErrTruncated, len(raw), frameSize)
		}
		// Trailing partial frame: drop it, matching ffmpeg's own tolerance
		// for a short final block rather than failing the whole extraction.
		raw = raw[:len(raw)-len(raw)%frameSize]
	}

	frameCount := len(raw) / frameSize
	channels := make([][]float64, format.Channels)

	for c := range channels {
		channels[c] = make([]float64, frameCount)
	}

	maxVal := float64(int64(1) << (format.BitDepth - 1))

	for frame := 0; frame < frameCount; frame++ {
		base := frame * frameSize

		for c := 0; c < int(format.Channels); c++ {
			off := base + c*bytesPerSample

			sample, err := decodeSample(raw[off:off+bytesPerSample], format.BitDepth)
			if err != nil {
				return nil, err
			}

			v := float64(sample) / maxVal
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: frame %d channel %d", errs.ErrInvalidSamples, frame, c)
			}

			channels[c][frame] = v
		}
	}

	return &Samples{Format: format, Channels: channels}, nil
}

func decodeSample(b []byte, depth BitDepth) (int64, error) {
	switch depth {
	case Depth16:
		return int64(int16(uint16(b[0]) | uint16(b[1])<<8)), nil
	case Depth24:
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
		if v&0x800000 != 0 {
			v |= -1 << 24 //nolint:staticcheck // sign-extend 24-bit into int32
		}

		return int64(v), nil
	case Depth32:
		return int64(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)), nil
	default:
		return 0, fmt.Errorf("%w: bit depth %d", errs.ErrUnsupportedFormat, depth)
	}
}

// ValidateRIFFSize checks a WAV/AIFF-style RIFF container's declared chunk
// size against the actual file size, rejecting a file shorter than its
// header declares. A file longer than its declared size is accepted.
func ValidateRIFFSize(r io.ReaderAt, fileSize int64) error {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: file shorter than RIFF header", errs.ErrTruncated)
		}

		return fmt.Errorf("%w: %w", errs.ErrReadFailure, err)
	}

	if string(header[0:4]) != "RIFF" {
		return nil // not a RIFF container; nothing to validate
	}

	declared := int64(uint32(header[4]) | uint32(header[5])<<8 | uint32(header[6])<<16 | uint32(header[7])<<24)

	actual := fileSize - 8
	if declared > actual {
		return fmt.Errorf("%w: RIFF declares %d bytes, file has %d", errs.ErrTruncated, declared, actual)
	}

	return nil
}
