// Package sidecar reads and writes ".25d" JSON files that travel alongside
// an audio file, caching its fingerprint and processing data so a library
// scan can skip expensive re-analysis of unchanged files.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
	"github.com/matiaszanolli/auralis-fpcore/internal/version"
)

// Extension is appended to an audio file's own name: "track.flac" ->
// "track.flac.25d".
const Extension = ".25d"

// FormatVersion identifies the sidecar envelope's own shape, independent of
// FingerprintVersion (the descriptor's semantic version).
const FormatVersion = "1.0"

// AudioFileMeta records the audio file's identity at write time, used to
// detect staleness without re-reading the whole file.
type AudioFileMeta struct {
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at"`
}

// Envelope is the full on-disk JSON structure of a .25d file.
type Envelope struct {
	FormatVersion   string             `json:"format_version"`
	AuralisVersion  string             `json:"auralis_version"`
	GeneratedAt     string             `json:"generated_at"`
	AudioFile       AudioFileMeta      `json:"audio_file"`
	Fingerprint     map[string]float64 `json:"fingerprint"`
	ProcessingCache map[string]any     `json:"processing_cache"`
	Metadata        map[string]any     `json:"metadata"`
}

// Path returns the sidecar path for an audio file.
func Path(audioPath string) string {
	return audioPath + Extension
}

// IsValid reports whether audioPath has a sidecar whose recorded size and
// modification time still match the file on disk, and which carries a
// fingerprint. A mismatch on either dimension means the audio file changed
// since the sidecar was written, and it must be treated as stale.
func IsValid(audioPath string) bool {
	audioInfo, err := os.Stat(audioPath)
	if err != nil {
		return false
	}

	env, err := Read(audioPath)
	if err != nil {
		return false
	}

	if env.FormatVersion != FormatVersion {
		return false
	}

	if env.AudioFile.SizeBytes != audioInfo.Size() {
		return false
	}

	if env.AudioFile.ModifiedAt != audioInfo.ModTime().Format(time.RFC3339Nano) {
		return false
	}

	return env.Fingerprint != nil
}

// Read loads and parses the sidecar for audioPath.
func Read(audioPath string) (*Envelope, error) {
	blob, err := os.ReadFile(Path(audioPath)) //nolint:gosec // library-managed sidecar path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrReadFailure, err)
	}

	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidJSON, err)
	}

	return &env, nil
}

// Write creates or overwrites the sidecar for audioPath with the given
// fingerprint dimensions, processing cache, and metadata. GeneratedAt is
// always stamped fresh; AudioFile metadata is recomputed from the current
// file so later IsValid calls detect any further change.
func Write(audioPath string, fingerprint map[string]float64, processingCache, metadata map[string]any, now time.Time) error {
	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrReadFailure, err)
	}

	env := Envelope{
		FormatVersion:  FormatVersion,
		AuralisVersion: version.Version,
		GeneratedAt:    now.UTC().Format(time.RFC3339Nano),
		AudioFile: AudioFileMeta{
			Path:       info.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().Format(time.RFC3339Nano),
		},
		Fingerprint:     fingerprint,
		ProcessingCache: processingCache,
		Metadata:        metadata,
	}

	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sidecar: %w", err)
	}

	if err := os.WriteFile(Path(audioPath), blob, 0o644); err != nil { //nolint:gosec // sidecar travels alongside the audio file, same perms expectation
		return fmt.Errorf("writing sidecar: %w", err)
	}

	return nil
}

// Delete removes the sidecar for audioPath, if present. Deleting a
// nonexistent sidecar is not an error.
func Delete(audioPath string) error {
	if err := os.Remove(Path(audioPath)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("deleting sidecar: %w", err)
	}

	return nil
}

// GetFingerprint reads just the fingerprint dimensions from a sidecar,
// returning errs.ErrSidecarInvalid if the audio file has since changed.
func GetFingerprint(audioPath string) (map[string]float64, error) {
	if !IsValid(audioPath) {
		return nil, errs.ErrSidecarInvalid
	}

	env, err := Read(audioPath)
	if err != nil {
		return nil, err
	}

	return env.Fingerprint, nil
}

// UpdateProcessingCache performs a read-modify-write of just the processing
// cache section, leaving the fingerprint and metadata untouched.
func UpdateProcessingCache(audioPath string, cache map[string]any, now time.Time) error {
	env, err := Read(audioPath)
	if err != nil {
		return err
	}

	return Write(audioPath, env.Fingerprint, cache, env.Metadata, now)
}

// BulkDelete removes sidecars for every path in audioPaths, collecting
// (rather than stopping at) the first error. deleted counts only sidecars
// that existed; a path with no sidecar is skipped without an error.
func BulkDelete(audioPaths []string) (deleted int, errsOut []error) {
	for _, p := range audioPaths {
		if _, err := os.Stat(Path(p)); os.IsNotExist(err) {
			continue
		}

		if err := Delete(p); err != nil {
			errsOut = append(errsOut, fmt.Errorf("%s: %w", p, err))

			continue
		}

		deleted++
	}

	return deleted, errsOut
}
