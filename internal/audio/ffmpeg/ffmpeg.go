package ffmpeg

import "time"

const (
	name = "ffmpeg"

	// codec is the PCM output codec requested from the decoder. The loader
	// always extracts at 32-bit signed little-endian regardless of the
	// source's native bit depth, matching the bit depth the repository
	// standardizes on for analysis.
	codec = "pcm_s32le"

	// timeout bounds a single extraction. The external decoder is a
	// subprocess outside Go's control; a stuck or oversized input must not
	// hang a worker forever.
	timeout = 5 * time.Minute
)
