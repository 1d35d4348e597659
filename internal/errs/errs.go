// Package errs collects the sentinel errors shared across the core's
// internal packages, so callers can use errors.Is against a stable set
// instead of matching strings.
package errs

import "errors"

var (
	ErrMissingRequirements = errors.New("required external binary not found")
	ErrTimeout             = errors.New("operation timed out")
	ErrCommandFailure      = errors.New("external command failed")
	ErrInvalidJSON         = errors.New("invalid JSON payload")
	ErrReadFailure         = errors.New("read failure")

	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrTruncated         = errors.New("audio data truncated")
	ErrDecode            = errors.New("audio decode failure")
	ErrInvalidSamples    = errors.New("non-finite samples detected")

	ErrNotFitted        = errors.New("normalizer not fitted")
	ErrWrongDimension   = errors.New("wrong vector dimension")
	ErrInsufficientData = errors.New("insufficient samples to fit")
	ErrClaimConflict    = errors.New("track already claimed by another worker")
	ErrSidecarInvalid   = errors.New("sidecar not valid")
)
