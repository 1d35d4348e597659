package auralis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/matiaszanolli/auralis-fpcore/internal/errs"
	"github.com/matiaszanolli/auralis-fpcore/internal/storage"
)

// retryBackoff is how long a worker waits before retrying after a claim
// fails for a reason other than a conflict, to avoid busy-looping. Claim
// conflicts retry immediately; a failed extraction does not wait.
const retryBackoff = 100 * time.Millisecond

// PoolStats tracks a fingerprinting run's outcome counts, mirroring the
// reference worker pool's processing/completed/failed/cached counters.
type PoolStats struct {
	Processing int
	Completed  int
	Failed     int
	Cached     int
	TotalTime  time.Duration
}

// ProgressEvent reports one track's processing outcome to an optional
// caller-supplied callback.
type ProgressEvent struct {
	TrackID  int64
	Cached   bool
	Err      error
	Duration time.Duration
}

// Pool fingerprints every unfingerprinted track in the library using a
// fixed number of worker goroutines, each looping its own atomic claim
// against the database rather than pulling from a shared in-memory queue.
// A bounded semaphore caps how many workers decode audio concurrently,
// independent of the worker count, so memory stays bounded even with many
// workers waiting on the database.
type Pool struct {
	extractor    *Extractor
	fingerprints *storage.FingerprintRepository
	numWorkers   int
	semaphore    chan struct{}
	onProgress   func(ProgressEvent)

	mu    sync.Mutex
	stats PoolStats
}

// DefaultWorkerCount auto-detects a worker count from the machine's CPU
// count: 75% of cores on 16+-core machines, 4 workers otherwise.
func DefaultWorkerCount() int {
	cpu := runtime.NumCPU()
	if cpu >= 16 {
		workers := int(float64(cpu) * 0.75)
		if workers < 4 {
			return 4
		}

		return workers
	}

	return 4
}

// NewPool builds a Pool. semaphoreSize bounds concurrent audio decodes
// regardless of numWorkers; onProgress may be nil. A caller wanting
// memory-adaptive sizing should size numWorkers/semaphoreSize from an
// internal/resource.Monitor's CurrentWorkerCount/CurrentSemaphoreSize
// before calling NewPool, since goroutines started by Run aren't resized
// mid-flight.
func NewPool(extractor *Extractor, fingerprints *storage.FingerprintRepository, numWorkers, semaphoreSize int, onProgress func(ProgressEvent)) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkerCount()
	}

	if semaphoreSize <= 0 {
		semaphoreSize = numWorkers
	}

	return &Pool{
		extractor:    extractor,
		fingerprints: fingerprints,
		numWorkers:   numWorkers,
		semaphore:    make(chan struct{}, semaphoreSize),
		onProgress:   onProgress,
	}
}

// Run claims and fingerprints every unfingerprinted track, blocking until
// the queue is drained or ctx is canceled. It returns the final stats.
func (p *Pool) Run(ctx context.Context) PoolStats {
	var wg sync.WaitGroup

	wg.Add(p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		go func(workerID int) {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}(i)
	}

	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		trackID, err := p.fingerprints.ClaimNextUnfingerprintedTrack(ctx)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return
			}

			if errors.Is(err, errs.ErrClaimConflict) {
				continue
			}

			slog.Error("worker claim failed", "worker", workerID, "error", err)
			time.Sleep(retryBackoff)

			continue
		}

		p.processClaimedTrack(ctx, trackID)
	}
}

func (p *Pool) processClaimedTrack(ctx context.Context, trackID int64) {
	select {
	case <-ctx.Done():
		return
	case p.semaphore <- struct{}{}:
	}

	defer func() { <-p.semaphore }()

	p.mu.Lock()
	p.stats.Processing++
	p.mu.Unlock()

	start := time.Now()

	_, cached, err := p.extractor.ExtractClaimedByTrackID(ctx, trackID)

	duration := time.Since(start)

	p.mu.Lock()
	p.stats.Processing--

	if err != nil {
		p.stats.Failed++
	} else {
		p.stats.Completed++
		p.stats.TotalTime += duration

		if cached {
			p.stats.Cached++
		}
	}

	p.mu.Unlock()

	p.reportProgress(ProgressEvent{TrackID: trackID, Cached: cached, Err: err, Duration: duration})
}

func (p *Pool) reportProgress(event ProgressEvent) {
	if p.onProgress == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("progress callback panicked", "recovered", fmt.Sprint(r))
		}
	}()

	p.onProgress(event)
}

// GetStats returns a snapshot of the pool's running statistics.
func (p *Pool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}
