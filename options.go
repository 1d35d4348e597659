package auralis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matiaszanolli/auralis-fpcore/internal/descriptor"
	"github.com/matiaszanolli/auralis-fpcore/internal/distance"
	"github.com/matiaszanolli/auralis-fpcore/internal/mastering"
	"github.com/matiaszanolli/auralis-fpcore/internal/resource"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

// Options configures a full Engine: the analyzer's strategy, the distance
// weights fed to similarity search, the K used for graph edges, the worker
// pool's concurrency, and the resource monitor's scaling limits. The zero
// value is not usable; start from DefaultOptions.
type Options struct {
	Analyzer       descriptor.Options
	Weights        distance.Weights
	GraphK         int
	NumWorkers     int
	SemaphoreSize  int
	StreamIndex    int
	ResourceLimits resource.Limits
}

// DefaultOptions returns the reference configuration: auto sampling
// strategy, the reference distance weights, k=10 graph neighbors, and
// auto-detected worker/semaphore sizing.
func DefaultOptions() Options {
	return Options{
		Analyzer:       descriptor.DefaultOptions(),
		Weights:        distance.DefaultWeights(),
		GraphK:         10,
		NumWorkers:     0, // 0 means DefaultWorkerCount()
		SemaphoreSize:  0, // 0 means match NumWorkers
		StreamIndex:    0,
		ResourceLimits: resource.DefaultLimits(),
	}
}

// Engine wires every fingerprinting subsystem over one open database:
// extraction, similarity search, the K-NN graph, and the worker pool.
// It's the single entry point most callers need; Extractor/Similarity/
// Graph/Pool remain directly usable for callers that want to assemble a
// different combination.
type Engine struct {
	Tracks       *storage.TrackRepository
	Fingerprints *storage.FingerprintRepository
	GraphRepo    *storage.GraphRepository

	Extractor  *Extractor
	Similarity *Similarity
	Graph      *Graph

	opts           Options
	masteringCache *mastering.TargetCache
}

// Open opens the database at dbPath and assembles a fully wired Engine.
func Open(dbPath string, opts Options) (*Engine, error) {
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening engine database: %w", err)
	}

	return newEngine(db, opts), nil
}

// OpenWithDB assembles an Engine over an already-open database handle,
// useful for tests and for callers that manage connection pooling
// themselves.
func OpenWithDB(db *sql.DB, opts Options) *Engine {
	return newEngine(db, opts)
}

func newEngine(db *sql.DB, opts Options) *Engine {
	tracks := storage.NewTrackRepository(db)
	fingerprints := storage.NewFingerprintRepository(db)
	graphRepo := storage.NewGraphRepository(db)

	analyzer := descriptor.New(opts.Analyzer)
	extractor := NewExtractor(tracks, fingerprints, analyzer, opts.StreamIndex)
	similarity := NewSimilarity(fingerprints, opts.Weights)
	graph := NewGraph(graphRepo, similarity)

	return &Engine{
		Tracks:         tracks,
		Fingerprints:   fingerprints,
		GraphRepo:      graphRepo,
		Extractor:      extractor,
		Similarity:     similarity,
		Graph:          graph,
		opts:           opts,
		masteringCache: mastering.NewTargetCache(),
	}
}

// NewPool builds a worker pool over this Engine's extractor and
// fingerprint repository, using the Engine's configured worker/semaphore
// sizing unless overridden by onProgress's caller constructing a Pool
// directly.
func (e *Engine) NewPool(onProgress func(ProgressEvent)) *Pool {
	return NewPool(e.Extractor, e.Fingerprints, e.opts.NumWorkers, e.opts.SemaphoreSize, onProgress)
}

// FitSimilarity fits the similarity engine's normalizer from every stored
// fingerprint, required before FindSimilar, CalculateSimilarity, Explain,
// or BuildGraph/UpdateGraph can run.
func (e *Engine) FitSimilarity(ctx context.Context, minSamples int) error {
	return e.Similarity.Fit(ctx, minSamples)
}

// BuildGraph rebuilds the K-NN similarity graph using this Engine's
// configured GraphK.
func (e *Engine) BuildGraph(ctx context.Context, clearExisting bool) (storage.GraphStats, error) {
	return e.Graph.BuildGraph(ctx, e.opts.GraphK, clearExisting)
}
