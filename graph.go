package auralis

import (
	"context"
	"fmt"

	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

// Graph builds and maintains the library-wide K-NN similarity graph: for
// every track, the k closest other tracks, ranked and persisted so lookups
// don't need a fresh nearest-neighbor search.
type Graph struct {
	repo       *storage.GraphRepository
	similarity *Similarity
}

// NewGraph wraps a graph repository and a fitted Similarity search.
func NewGraph(repo *storage.GraphRepository, similarity *Similarity) *Graph {
	return &Graph{repo: repo, similarity: similarity}
}

// BuildGraph rebuilds the K-NN graph for every fingerprinted track. When
// clearExisting is true the graph is emptied first, matching build_graph's
// default full-rebuild behavior.
func (g *Graph) BuildGraph(ctx context.Context, k int, clearExisting bool) (storage.GraphStats, error) {
	if clearExisting {
		if _, err := g.repo.ClearAll(ctx); err != nil {
			return storage.GraphStats{}, fmt.Errorf("clearing graph before rebuild: %w", err)
		}
	}

	rows, err := g.similarity.fingerprints.GetAll(ctx, 0, 0)
	if err != nil {
		return storage.GraphStats{}, fmt.Errorf("fetching fingerprints for graph build: %w", err)
	}

	if len(rows) == 0 {
		return storage.GraphStats{}, nil
	}

	for _, row := range rows {
		edges, err := g.neighborEdges(ctx, row.TrackID, k)
		if err != nil {
			return storage.GraphStats{}, err
		}

		if len(edges) == 0 {
			continue
		}

		if err := g.repo.InsertBatch(ctx, edges); err != nil {
			return storage.GraphStats{}, fmt.Errorf("inserting graph edges for track %d: %w", row.TrackID, err)
		}
	}

	return g.repo.Stats(ctx)
}

// UpdateGraph recomputes neighbors for the given tracks only, deleting and
// rewriting each track's outgoing edges. Returns the total number of edges
// written.
func (g *Graph) UpdateGraph(ctx context.Context, trackIDs []int64, k int) (int, error) {
	var total int

	for _, trackID := range trackIDs {
		edges, err := g.neighborEdges(ctx, trackID, k)
		if err != nil {
			return total, err
		}

		if err := g.repo.ReplaceEdges(ctx, trackID, edges); err != nil {
			return total, fmt.Errorf("replacing graph edges for track %d: %w", trackID, err)
		}

		total += len(edges)
	}

	return total, nil
}

// GetNeighbors returns trackID's stored neighbors ordered by rank, up to
// limit (limit <= 0 means unbounded).
func (g *Graph) GetNeighbors(ctx context.Context, trackID int64, limit int) ([]storage.Edge, error) {
	return g.repo.GetNeighbors(ctx, trackID, limit)
}

// GetStats summarizes the current graph's shape.
func (g *Graph) GetStats(ctx context.Context) (storage.GraphStats, error) {
	return g.repo.Stats(ctx)
}

// ClearGraph deletes every edge, returning the number removed.
func (g *Graph) ClearGraph(ctx context.Context) (int64, error) {
	return g.repo.ClearAll(ctx)
}

// neighborEdges finds trackID's k nearest neighbors via the prefiltered
// similarity search and converts them into ranked graph edges (rank 1 =
// closest).
func (g *Graph) neighborEdges(ctx context.Context, trackID int64, k int) ([]storage.Edge, error) {
	matches, err := g.similarity.FindSimilar(ctx, trackID, k, true)
	if err != nil {
		return nil, fmt.Errorf("finding neighbors for track %d: %w", trackID, err)
	}

	edges := make([]storage.Edge, len(matches))
	for i, m := range matches {
		edges[i] = storage.Edge{
			TrackID:         trackID,
			SimilarTrackID:  m.TrackID,
			Distance:        m.Distance,
			SimilarityScore: m.SimilarityScore,
			Rank:            i + 1,
		}
	}

	return edges, nil
}
