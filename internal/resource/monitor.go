// Package resource monitors system RAM usage and adaptively scales worker
// parallelism so the fingerprinting pipeline uses as much of the machine as
// it safely can without pushing memory into swap.
package resource

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// Limits bounds how far the monitor is allowed to scale workers and the
// audio-decode semaphore.
type Limits struct {
	MaxMemoryPercent   float64
	MinWorkers         int
	MaxWorkers         int
	MaxSemaphore       int
	CheckInterval      time.Duration
	ScaleUpThreshold   float64
	ScaleDownThreshold float64
}

// DefaultLimits matches the reference scaling policy: start scaling up
// below 50% RAM, start scaling down above 80%, bounded to [4, 32] workers
// and a semaphore of at most 16.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryPercent:   75.0,
		MinWorkers:         4,
		MaxWorkers:         32,
		MaxSemaphore:       16,
		CheckInterval:      2 * time.Second,
		ScaleUpThreshold:   50.0,
		ScaleDownThreshold: 80.0,
	}
}

// Stats reports the monitor's running observations.
type Stats struct {
	SamplesCollected int
	AvgMemoryPercent float64
	MaxMemoryPercent float64
	ScaleUps         int
	ScaleDowns       int
}

// sampler abstracts the RAM reading so tests can inject synthetic load
// instead of depending on the real machine's memory pressure.
type sampler func() (float64, error)

// Monitor periodically samples RAM usage and adjusts a recommended worker
// count and semaphore size, invoking callbacks on every change.
type Monitor struct {
	limits              Limits
	onWorkerCountChange func(int)
	onSemaphoreChange   func(int)
	sample              sampler

	mu                   sync.Mutex
	currentWorkerCount   int
	currentSemaphoreSize int
	stats                Stats

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Monitor with the given limits and change callbacks. Either
// callback may be nil.
func New(limits Limits, onWorkerCountChange, onSemaphoreChange func(int)) *Monitor {
	return &Monitor{
		limits:               limits,
		onWorkerCountChange:  onWorkerCountChange,
		onSemaphoreChange:    onSemaphoreChange,
		sample:               sampleSystemMemory,
		currentWorkerCount:   limits.MinWorkers,
		currentSemaphoreSize: 4,
	}
}

func sampleSystemMemory() (float64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err //nolint:wrapcheck // caller wraps with context
	}

	return v.UsedPercent, nil
}

// Start launches the background sampling loop. Calling Start twice is a
// no-op until Stop has been called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()

		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(loopCtx)

	slog.Info("resource monitor started")
}

// Stop halts the background loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	slog.Info("resource monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.limits.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndAdjust()
		}
	}
}

// checkAndAdjust samples RAM and adjusts the worker count and semaphore
// size toward the optimal value for current memory pressure, one step at a
// time. This is exported via Tick for deterministic unit testing.
func (m *Monitor) checkAndAdjust() {
	percent, err := m.sample()
	if err != nil {
		slog.Error("resource monitor sample failed", "error", err)

		return
	}

	m.Tick(percent)
}

// Tick applies one adjustment step for an observed memory percentage,
// invoking callbacks synchronously. Exposed directly so tests can drive
// the scaling logic without depending on real memory pressure or timers.
func (m *Monitor) Tick(memoryPercent float64) {
	m.mu.Lock()

	m.stats.SamplesCollected++
	n := float64(m.stats.SamplesCollected)
	m.stats.AvgMemoryPercent = (m.stats.AvgMemoryPercent*(n-1) + memoryPercent) / n

	if memoryPercent > m.stats.MaxMemoryPercent {
		m.stats.MaxMemoryPercent = memoryPercent
	}

	oldWorkers := m.currentWorkerCount
	newWorkers := m.stepWorkers(memoryPercent)

	if newWorkers != oldWorkers {
		m.currentWorkerCount = newWorkers
		if newWorkers > oldWorkers {
			m.stats.ScaleUps++
		} else {
			m.stats.ScaleDowns++
		}
	}

	oldSemaphore := m.currentSemaphoreSize
	newSemaphore := m.stepSemaphore(memoryPercent)
	m.currentSemaphoreSize = newSemaphore

	m.mu.Unlock()

	if newWorkers != oldWorkers && m.onWorkerCountChange != nil {
		m.onWorkerCountChange(newWorkers)
	}

	if newSemaphore != oldSemaphore && m.onSemaphoreChange != nil {
		m.onSemaphoreChange(newSemaphore)
	}
}

func (m *Monitor) stepWorkers(memoryPercent float64) int {
	switch {
	case memoryPercent < m.limits.ScaleUpThreshold:
		return minInt(m.currentWorkerCount+1, m.limits.MaxWorkers)
	case memoryPercent > m.limits.ScaleDownThreshold:
		return maxInt(m.currentWorkerCount-1, m.limits.MinWorkers)
	default:
		return m.currentWorkerCount
	}
}

// minSemaphoreFloor is the semaphore's hard lower bound, independent of
// MinWorkers: the decode semaphore always allows at least 2 concurrent
// extractions even when worker count is scaled to its floor.
const minSemaphoreFloor = 2

func (m *Monitor) stepSemaphore(memoryPercent float64) int {
	switch {
	case memoryPercent < m.limits.ScaleUpThreshold:
		return minInt(m.currentSemaphoreSize+1, m.limits.MaxSemaphore)
	case memoryPercent > m.limits.ScaleDownThreshold:
		return maxInt(m.currentSemaphoreSize-1, minSemaphoreFloor)
	default:
		return m.currentSemaphoreSize
	}
}

// CurrentWorkerCount returns the monitor's current recommendation.
func (m *Monitor) CurrentWorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.currentWorkerCount
}

// CurrentSemaphoreSize returns the monitor's current recommendation.
func (m *Monitor) CurrentSemaphoreSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.currentSemaphoreSize
}

// GetStats returns a snapshot of the monitor's running statistics.
func (m *Monitor) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stats
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
