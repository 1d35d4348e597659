package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// Track is a single library entry: a path on disk and its assigned ID.
type Track struct {
	ID       int64
	FilePath string
}

// TrackRepository manages the tracks table.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository wraps an open database handle.
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Add inserts a new track, returning its assigned ID. Re-adding an existing
// path returns its existing ID rather than erroring.
func (r *TrackRepository) Add(ctx context.Context, filePath string) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tracks (file_path) VALUES (?) ON CONFLICT(file_path) DO UPDATE SET file_path = excluded.file_path`,
		filePath,
	)
	if err != nil {
		return 0, fmt.Errorf("adding track %s: %w", filePath, err)
	}

	// LastInsertId is not updated when the upsert takes its UPDATE branch,
	// so the ID is always resolved by path.
	return r.GetIDByPath(ctx, filePath)
}

// GetIDByPath resolves a track's ID from its file path.
func (r *TrackRepository) GetIDByPath(ctx context.Context, filePath string) (int64, error) {
	var id int64

	err := r.db.QueryRowContext(ctx, `SELECT id FROM tracks WHERE file_path = ?`, filePath).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrNotFound
		}

		return 0, fmt.Errorf("resolving track id for %s: %w", filePath, err)
	}

	return id, nil
}

// Get fetches a track by ID.
func (r *TrackRepository) Get(ctx context.Context, id int64) (*Track, error) {
	t := &Track{ID: id}

	err := r.db.QueryRowContext(ctx, `SELECT file_path FROM tracks WHERE id = ?`, id).Scan(&t.FilePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}

		return nil, fmt.Errorf("fetching track %d: %w", id, err)
	}

	return t, nil
}

// GetMissingFingerprints returns tracks with no corresponding
// track_fingerprints row, for batch extraction scheduling.
func (r *TrackRepository) GetMissingFingerprints(ctx context.Context, limit int) ([]Track, error) {
	query := `
		SELECT tracks.id, tracks.file_path FROM tracks
		LEFT JOIN track_fingerprints ON tracks.id = track_fingerprints.track_id
		WHERE track_fingerprints.id IS NULL
		ORDER BY tracks.id
	`

	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing unfingerprinted tracks: %w", err)
	}
	defer rows.Close()

	var out []Track

	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.FilePath); err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}

		out = append(out, t)
	}

	return out, rows.Err()
}
