package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
)

// fingerprintColumns is the canonical 25-dimension column order, matching
// the fingerprint vector's dimension order everywhere else in the core.
var fingerprintColumns = [25]string{
	"sub_bass_pct", "bass_pct", "low_mid_pct", "mid_pct",
	"upper_mid_pct", "presence_pct", "air_pct",
	"lufs", "crest_db", "bass_mid_ratio",
	"tempo_bpm", "rhythm_stability", "transient_density", "silence_ratio",
	"spectral_centroid", "spectral_rolloff", "spectral_flatness",
	"harmonic_ratio", "pitch_stability", "chroma_energy",
	"dynamic_range_variation", "loudness_variation_std", "peak_consistency",
	"stereo_width", "phase_correlation",
}

// claimSentinelLUFS marks a placeholder row inserted to atomically claim a
// track for processing, before its real fingerprint has been computed.
const claimSentinelLUFS = -100.0

// FingerprintRow is a fingerprint as stored: a track identifier, schema
// version, and its 25-element vector.
type FingerprintRow struct {
	TrackID int64
	Version int
	Vector  [25]float64
}

// FingerprintRepository provides CRUD and claim operations over
// track_fingerprints.
type FingerprintRepository struct {
	db *sql.DB
}

// NewFingerprintRepository wraps an open database handle.
func NewFingerprintRepository(db *sql.DB) *FingerprintRepository {
	return &FingerprintRepository{db: db}
}

func insertColumnList() string {
	cols := "track_id, fingerprint_version"
	for _, c := range fingerprintColumns {
		cols += ", " + c
	}

	return cols
}

func placeholderList(n int) string {
	out := "?"
	for i := 1; i < n; i++ {
		out += ", ?"
	}

	return out
}

// Upsert inserts or updates the fingerprint for trackID: it runs an UPDATE
// and, when no row matched, an INSERT. The two statements do not share a
// transaction.
func (r *FingerprintRepository) Upsert(ctx context.Context, row FingerprintRow) error {
	setClause := ""
	for i, c := range fingerprintColumns {
		if i > 0 {
			setClause += ", "
		}

		setClause += c + " = ?"
	}

	args := make([]any, 0, 27)
	for _, v := range row.Vector {
		args = append(args, v)
	}

	args = append(args, row.Version, row.TrackID)

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE track_fingerprints SET %s, fingerprint_version = ?, updated_at = strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ','now') WHERE track_id = ?`, setClause),
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating fingerprint for track %d: %w", row.TrackID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result for track %d: %w", row.TrackID, err)
	}

	if affected > 0 {
		return nil
	}

	insertArgs := make([]any, 0, 27)
	insertArgs = append(insertArgs, row.TrackID, row.Version)

	for _, v := range row.Vector {
		insertArgs = append(insertArgs, v)
	}

	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO track_fingerprints (%s) VALUES (%s)`, insertColumnList(), placeholderList(27)),
		insertArgs...,
	)
	if err != nil {
		return fmt.Errorf("inserting fingerprint for track %d: %w", row.TrackID, err)
	}

	return nil
}

// GetByTrackID fetches the fingerprint for a single track.
func (r *FingerprintRepository) GetByTrackID(ctx context.Context, trackID int64) (*FingerprintRow, error) {
	cols := "fingerprint_version"
	for _, c := range fingerprintColumns {
		cols += ", " + c
	}

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM track_fingerprints WHERE track_id = ?`, cols), trackID)

	fp, err := scanFingerprint(row, trackID)
	if err != nil {
		return nil, err
	}

	return fp, nil
}

func scanFingerprint(row *sql.Row, trackID int64) (*FingerprintRow, error) {
	var fp FingerprintRow
	fp.TrackID = trackID

	dest := make([]any, 0, 26)
	dest = append(dest, &fp.Version)

	for i := range fp.Vector {
		dest = append(dest, &fp.Vector[i])
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}

		return nil, fmt.Errorf("scanning fingerprint row: %w", err)
	}

	return &fp, nil
}

// Delete removes the fingerprint for trackID, if present.
func (r *FingerprintRepository) Delete(ctx context.Context, trackID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM track_fingerprints WHERE track_id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("deleting fingerprint for track %d: %w", trackID, err)
	}

	return nil
}

// Exists reports whether a fingerprint has been stored for trackID.
func (r *FingerprintRepository) Exists(ctx context.Context, trackID int64) (bool, error) {
	var count int

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_fingerprints WHERE track_id = ?`, trackID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking fingerprint existence for track %d: %w", trackID, err)
	}

	return count > 0, nil
}

// GetAll returns all stored fingerprints, most recently created first.
// limit <= 0 means unbounded.
func (r *FingerprintRepository) GetAll(ctx context.Context, limit, offset int) ([]FingerprintRow, error) {
	cols := "track_id, fingerprint_version"
	for _, c := range fingerprintColumns {
		cols += ", " + c
	}

	query := fmt.Sprintf(`SELECT %s FROM track_fingerprints ORDER BY created_at DESC`, cols)

	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	defer rows.Close()

	var out []FingerprintRow

	for rows.Next() {
		var fp FingerprintRow

		dest := make([]any, 0, 27)
		dest = append(dest, &fp.TrackID, &fp.Version)

		for i := range fp.Vector {
			dest = append(dest, &fp.Vector[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}

		out = append(out, fp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fingerprints: %w", err)
	}

	return out, nil
}

// Count returns the total number of stored fingerprints.
func (r *FingerprintRepository) Count(ctx context.Context) (int, error) {
	var count int

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM track_fingerprints`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting fingerprints: %w", err)
	}

	return count, nil
}

// DimensionRange is an inclusive [Min, Max] bound on one named dimension,
// used to pre-filter candidates before an expensive distance calculation.
type DimensionRange struct {
	Dimension string
	Min       float64
	Max       float64
}

// GetByMultiDimensionRange returns fingerprints satisfying every supplied
// range, excluding excludeTrackID (typically the query track itself).
// Unknown dimension names are skipped with no error, matching the
// permissive behavior of the repository this is grounded on.
func (r *FingerprintRepository) GetByMultiDimensionRange(
	ctx context.Context, ranges []DimensionRange, excludeTrackID int64, limit int,
) ([]FingerprintRow, error) {
	valid := map[string]bool{}
	for _, c := range fingerprintColumns {
		valid[c] = true
	}

	cols := "track_id, fingerprint_version"
	for _, c := range fingerprintColumns {
		cols += ", " + c
	}

	where := "track_id != ?"
	args := []any{excludeTrackID}

	for _, rg := range ranges {
		if !valid[rg.Dimension] {
			continue
		}

		where += fmt.Sprintf(" AND %s >= ? AND %s <= ?", rg.Dimension, rg.Dimension)
		args = append(args, rg.Min, rg.Max)
	}

	query := fmt.Sprintf(`SELECT %s FROM track_fingerprints WHERE %s`, cols, where)

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints by dimension range: %w", err)
	}
	defer rows.Close()

	var out []FingerprintRow

	for rows.Next() {
		var fp FingerprintRow

		dest := make([]any, 0, 27)
		dest = append(dest, &fp.TrackID, &fp.Version)

		for i := range fp.Vector {
			dest = append(dest, &fp.Vector[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}

		out = append(out, fp)
	}

	return out, rows.Err()
}

// ClaimNextUnfingerprintedTrack atomically claims the next track with no
// fingerprint row, so that N concurrent workers never process the same
// track twice. It inserts an all-zero placeholder row (LUFS set to the
// claim sentinel, distinguishing an in-flight claim from a real silent
// track) guarded by the UNIQUE constraint on track_id; if another worker
// wins the race, the INSERT's conflict is reported back as
// errs.ErrClaimConflict and the caller should retry with the next track.
func (r *FingerprintRepository) ClaimNextUnfingerprintedTrack(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after a successful commit

	var trackID int64

	err = tx.QueryRowContext(ctx, `
		SELECT tracks.id FROM tracks
		LEFT JOIN track_fingerprints ON tracks.id = track_fingerprints.track_id
		WHERE track_fingerprints.id IS NULL
		ORDER BY tracks.id
		LIMIT 1
	`).Scan(&trackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrNotFound
		}

		return 0, fmt.Errorf("finding unfingerprinted track: %w", err)
	}

	insertArgs := make([]any, 0, 27)
	insertArgs = append(insertArgs, trackID, FingerprintVersion)

	for _, col := range fingerprintColumns {
		if col == "lufs" {
			insertArgs = append(insertArgs, claimSentinelLUFS)
		} else {
			insertArgs = append(insertArgs, 0.0)
		}
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO track_fingerprints (%s) VALUES (%s)`, insertColumnList(), placeholderList(27)),
		insertArgs...,
	)
	if err != nil {
		// UNIQUE constraint violation means another worker claimed first.
		return 0, errs.ErrClaimConflict
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing claim for track %d: %w", trackID, err)
	}

	return trackID, nil
}

// FingerprintVersion is the schema version stamped on new rows, including
// claim placeholders.
const FingerprintVersion = 1
