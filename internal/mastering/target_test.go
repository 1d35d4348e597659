package mastering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTargetsIsDeterministic(t *testing.T) {
	balance := FrequencyBalance{
		SubBassPct: 6.0, BassPct: 12.0, LowMidPct: 20.0, MidPct: 24.0,
		UpperMidPct: 18.0, PresencePct: 14.0, AirPct: 6.0,
	}

	a := GenerateTargets(14.0, balance)
	b := GenerateTargets(14.0, balance)

	assert.Equal(t, a, b)
}

func TestGenerateTargetsFixedLUFS(t *testing.T) {
	targets := GenerateTargets(10.0, FrequencyBalance{})
	assert.Equal(t, StreamingTargetLUFS, targets.TargetLUFS)
}

func TestGenerateTargetsCrestFloor(t *testing.T) {
	targets := GenerateTargets(5.0, FrequencyBalance{}) // 5.0*0.85 = 4.25, below floor
	assert.Equal(t, minTargetCrestDB, targets.TargetCrestDB)
}

func TestGenerateTargetsCrestReduction(t *testing.T) {
	targets := GenerateTargets(20.0, FrequencyBalance{})
	assert.InDelta(t, 17.0, targets.TargetCrestDB, 1e-9)
}

func TestEQAdjustmentClampsToSixDB(t *testing.T) {
	targets := GenerateTargets(14.0, FrequencyBalance{SubBassPct: -100.0})
	assert.Equal(t, maxEQAdjustmentDB, targets.EQAdjustmentsDB["sub_bass"])

	targets = GenerateTargets(14.0, FrequencyBalance{SubBassPct: 200.0})
	assert.Equal(t, -maxEQAdjustmentDB, targets.EQAdjustmentsDB["sub_bass"])
}

func TestEQAdjustmentAtIdealIsZero(t *testing.T) {
	balance := FrequencyBalance{
		SubBassPct: 5.0, BassPct: 15.0, LowMidPct: 18.0, MidPct: 22.0,
		UpperMidPct: 20.0, PresencePct: 13.0, AirPct: 7.0,
	}

	targets := GenerateTargets(14.0, balance)

	for band, adj := range targets.EQAdjustmentsDB {
		assert.InDeltaf(t, 0.0, adj, 1e-9, "band %s", band)
	}
}

func TestCacheKeyDiffersByFilePath(t *testing.T) {
	k1 := CacheKey(1, "/music/a.flac")
	k2 := CacheKey(1, "/music/b.flac")

	assert.NotEqual(t, k1, k2)
}

func TestTargetCacheRoundTrip(t *testing.T) {
	cache := NewTargetCache()
	targets := GenerateTargets(14.0, FrequencyBalance{})
	key := CacheKey(1, "/music/a.flac")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, targets)

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, targets, got)

	assert.Equal(t, 1, cache.Clear())
}
