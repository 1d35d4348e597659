package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Edge is a single directed K-NN similarity edge: track_id is similar to
// similar_track_id at the given rank (1 = closest).
type Edge struct {
	TrackID         int64
	SimilarTrackID  int64
	Distance        float64
	SimilarityScore float64
	Rank            int
}

// GraphStats summarizes the similarity graph's current shape.
type GraphStats struct {
	TotalTracks int
	TotalEdges  int
	AvgDistance float64
	MinDistance float64
	MaxDistance float64
}

// GraphRepository manages the similarity_graph table.
type GraphRepository struct {
	db *sql.DB
}

// NewGraphRepository wraps an open database handle.
func NewGraphRepository(db *sql.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

// ReplaceEdges deletes a track's existing outgoing edges and inserts the
// given replacement set in one transaction, matching update_graph's
// delete-then-rebuild semantics.
func (r *GraphRepository) ReplaceEdges(ctx context.Context, trackID int64, edges []Edge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning graph update transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after a successful commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM similarity_graph WHERE track_id = ?`, trackID); err != nil {
		return fmt.Errorf("clearing edges for track %d: %w", trackID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO similarity_graph (track_id, similar_track_id, distance, similarity_score, rank)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.TrackID, e.SimilarTrackID, e.Distance, e.SimilarityScore, e.Rank); err != nil {
			return fmt.Errorf("inserting edge %d->%d: %w", e.TrackID, e.SimilarTrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing graph update for track %d: %w", trackID, err)
	}

	return nil
}

// InsertBatch inserts a full batch of edges within one transaction, for the
// full-rebuild path (build_graph).
func (r *GraphRepository) InsertBatch(ctx context.Context, edges []Edge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after a successful commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO similarity_graph (track_id, similar_track_id, distance, similarity_score, rank)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.TrackID, e.SimilarTrackID, e.Distance, e.SimilarityScore, e.Rank); err != nil {
			return fmt.Errorf("inserting edge %d->%d: %w", e.TrackID, e.SimilarTrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch insert: %w", err)
	}

	return nil
}

// ClearAll deletes every edge in the graph, returning the number removed.
func (r *GraphRepository) ClearAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM similarity_graph`)
	if err != nil {
		return 0, fmt.Errorf("clearing similarity graph: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared edges: %w", err)
	}

	return n, nil
}

// GetNeighbors returns a track's neighbors ordered by rank, up to limit
// (limit <= 0 means unbounded).
func (r *GraphRepository) GetNeighbors(ctx context.Context, trackID int64, limit int) ([]Edge, error) {
	query := `
		SELECT track_id, similar_track_id, distance, similarity_score, rank
		FROM similarity_graph WHERE track_id = ? ORDER BY rank
	`

	args := []any{trackID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching neighbors for track %d: %w", trackID, err)
	}
	defer rows.Close()

	var out []Edge

	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.TrackID, &e.SimilarTrackID, &e.Distance, &e.SimilarityScore, &e.Rank); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

// Stats computes aggregate statistics over the current graph.
func (r *GraphRepository) Stats(ctx context.Context) (GraphStats, error) {
	var stats GraphStats

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT track_id) FROM similarity_graph`).Scan(&stats.TotalTracks)
	if err != nil {
		return GraphStats{}, fmt.Errorf("counting graph tracks: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(distance), 0), COALESCE(MIN(distance), 0), COALESCE(MAX(distance), 0)
		FROM similarity_graph
	`)

	if err := row.Scan(&stats.TotalEdges, &stats.AvgDistance, &stats.MinDistance, &stats.MaxDistance); err != nil {
		return GraphStats{}, fmt.Errorf("aggregating graph stats: %w", err)
	}

	return stats, nil
}
