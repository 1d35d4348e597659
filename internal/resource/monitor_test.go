package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickScalesUpUnderLowMemory(t *testing.T) {
	m := New(DefaultLimits(), nil, nil)

	start := m.CurrentWorkerCount()
	m.Tick(30.0) // below scale-up threshold

	assert.Equal(t, start+1, m.CurrentWorkerCount())
}

func TestTickScalesDownUnderHighMemory(t *testing.T) {
	limits := DefaultLimits()
	m := New(limits, nil, nil)

	// Push worker count up first so there's room to scale down.
	for i := 0; i < 5; i++ {
		m.Tick(10.0)
	}

	before := m.CurrentWorkerCount()
	m.Tick(90.0) // above scale-down threshold

	assert.Equal(t, before-1, m.CurrentWorkerCount())
}

func TestTickHoldsSteadyInSafeZone(t *testing.T) {
	m := New(DefaultLimits(), nil, nil)

	before := m.CurrentWorkerCount()
	m.Tick(65.0) // between thresholds

	assert.Equal(t, before, m.CurrentWorkerCount())
}

func TestWorkerCountNeverExceedsMax(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxWorkers = 5
	m := New(limits, nil, nil)

	for i := 0; i < 20; i++ {
		m.Tick(10.0)
	}

	assert.Equal(t, 5, m.CurrentWorkerCount())
}

func TestWorkerCountNeverBelowMin(t *testing.T) {
	limits := DefaultLimits()
	limits.MinWorkers = 4
	m := New(limits, nil, nil)

	for i := 0; i < 20; i++ {
		m.Tick(95.0)
	}

	assert.Equal(t, 4, m.CurrentWorkerCount())
}

func TestCallbacksFireOnlyOnChange(t *testing.T) {
	calls := 0
	m := New(DefaultLimits(), func(int) { calls++ }, nil)

	m.Tick(65.0) // safe zone, no change
	assert.Equal(t, 0, calls)

	m.Tick(30.0) // scale up, should fire once
	assert.Equal(t, 1, calls)
}

func TestStatsTrackScaleDirectionCounts(t *testing.T) {
	m := New(DefaultLimits(), nil, nil)

	m.Tick(30.0)
	m.Tick(30.0)
	m.Tick(90.0)

	stats := m.GetStats()
	assert.Equal(t, 3, stats.SamplesCollected)
	assert.Equal(t, 2, stats.ScaleUps)
	assert.Equal(t, 1, stats.ScaleDowns)
}
