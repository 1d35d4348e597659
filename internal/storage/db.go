// Package storage is the embedded SQLite persistence layer for tracks,
// fingerprints, and the similarity graph. It runs entirely in-process via
// the pure-Go modernc.org/sqlite driver, so the core never needs cgo or a
// separately running database server.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path  TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS track_fingerprints (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id                 INTEGER NOT NULL UNIQUE REFERENCES tracks(id),
	fingerprint_version      INTEGER NOT NULL DEFAULT 1,
	sub_bass_pct             REAL NOT NULL,
	bass_pct                 REAL NOT NULL,
	low_mid_pct              REAL NOT NULL,
	mid_pct                  REAL NOT NULL,
	upper_mid_pct            REAL NOT NULL,
	presence_pct             REAL NOT NULL,
	air_pct                  REAL NOT NULL,
	lufs                     REAL NOT NULL,
	crest_db                 REAL NOT NULL,
	bass_mid_ratio           REAL NOT NULL,
	tempo_bpm                REAL NOT NULL,
	rhythm_stability         REAL NOT NULL,
	transient_density        REAL NOT NULL,
	silence_ratio            REAL NOT NULL,
	spectral_centroid        REAL NOT NULL,
	spectral_rolloff         REAL NOT NULL,
	spectral_flatness        REAL NOT NULL,
	harmonic_ratio           REAL NOT NULL,
	pitch_stability          REAL NOT NULL,
	chroma_energy            REAL NOT NULL,
	dynamic_range_variation  REAL NOT NULL,
	loudness_variation_std   REAL NOT NULL,
	peak_consistency         REAL NOT NULL,
	stereo_width             REAL NOT NULL,
	phase_correlation        REAL NOT NULL,
	created_at               TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at               TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);

CREATE TABLE IF NOT EXISTS similarity_graph (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id          INTEGER NOT NULL,
	similar_track_id  INTEGER NOT NULL,
	distance          REAL NOT NULL,
	similarity_score  REAL NOT NULL,
	rank              INTEGER NOT NULL,
	UNIQUE(track_id, similar_track_id)
);

CREATE INDEX IF NOT EXISTS idx_similarity_graph_track ON similarity_graph(track_id, rank);
CREATE INDEX IF NOT EXISTS idx_fingerprints_lufs ON track_fingerprints(lufs);
CREATE INDEX IF NOT EXISTS idx_fingerprints_tempo ON track_fingerprints(tempo_bpm);
`

// Open opens (creating if necessary) a SQLite database at path and applies
// the schema. SQLite only allows one writer at a time; WAL mode lets
// concurrent worker goroutines read while a commit is in flight.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()

		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()

		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return db, nil
}
