package sidecar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeAudio(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "track.flac")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))

	return path
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	audioPath := writeFakeAudio(t, t.TempDir())

	fp := map[string]float64{"lufs": -14.0, "tempo_bpm": 120.0}

	require.NoError(t, Write(audioPath, fp, nil, nil, time.Now()))
	assert.True(t, IsValid(audioPath))

	env, err := Read(audioPath)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, env.FormatVersion)
	assert.Equal(t, -14.0, env.Fingerprint["lufs"])
}

func TestIsValidDetectsModifiedAudioFile(t *testing.T) {
	audioPath := writeFakeAudio(t, t.TempDir())

	require.NoError(t, Write(audioPath, map[string]float64{"lufs": -14.0}, nil, nil, time.Now()))
	assert.True(t, IsValid(audioPath))

	// Simulate the audio file changing after the sidecar was written.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(audioPath, []byte("different content, different size"), 0o644))

	assert.False(t, IsValid(audioPath))
}

func TestIsValidFalseWithoutSidecar(t *testing.T) {
	audioPath := writeFakeAudio(t, t.TempDir())
	assert.False(t, IsValid(audioPath))
}

func TestGetFingerprintErrorsWithoutSidecar(t *testing.T) {
	audioPath := writeFakeAudio(t, t.TempDir())

	_, err := GetFingerprint(audioPath)
	assert.Error(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	audioPath := writeFakeAudio(t, t.TempDir())

	require.NoError(t, Write(audioPath, map[string]float64{"lufs": -14.0}, nil, nil, time.Now()))
	require.NoError(t, Delete(audioPath))
	require.NoError(t, Delete(audioPath)) // already gone, still not an error
	assert.NoFileExists(t, Path(audioPath))
}

func TestBulkDeleteSkipsMissingSidecars(t *testing.T) {
	dir := t.TempDir()
	a := writeFakeAudio(t, dir)

	require.NoError(t, Write(a, map[string]float64{"lufs": -14.0}, nil, nil, time.Now()))

	deleted, errs := BulkDelete([]string{a, filepath.Join(dir, "missing.flac")})
	assert.Equal(t, 1, deleted)
	assert.Empty(t, errs) // deleting a nonexistent sidecar is not an error
}
