// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package aggregate_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlayer-dev/memlayer/internal/aggregate"
	"github.com/memlayer-dev/memlayer/internal/store"
	"github.com/memlayer-dev/memlayer/internal/store/sqlite"
)

func newMemory(id, accountID string, platform store.Platform, convType store.ConversationType, admittedAt time.Time) *store.Memory {
	return &store.Memory{
		ID:                 id,
		AccountID:          accountID,
		Platform:           platform,
		ConversationType:   convType,
		ContentFingerprint: "fp-" + id,
		Content:            "content " + id,
		AdmittedAt:         admittedAt,
		Status:             store.MemoryStatusActive,
	}
}

func TestEngineApplyAndDistributions(t *testing.T) {
	e := aggregate.NewEngine()
	day := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	e.Apply(newMemory("m1", "acct-1", store.PlatformSlack, store.TypeFact, day), +1)
	e.Apply(newMemory("m2", "acct-1", store.PlatformSlack, store.TypeQuestion, day), +1)
	e.Apply(newMemory("m3", "acct-1", store.PlatformChatGPT, store.TypeFact, day.AddDate(0, 0, 1)), +1)

	assert.Equal(t, int64(3), e.Total("acct-1"))
	assert.Equal(t, map[string]int64{"fact": 2, "question": 1}, e.Distribution("acct-1", aggregate.ByType))
	assert.Equal(t, map[string]int64{"slack": 2, "chatgpt": 1}, e.Distribution("acct-1", aggregate.ByPlatform))
	assert.Equal(t, map[string]int64{"2026-08-30": 2, "2026-08-31": 1}, e.Distribution("acct-1", aggregate.ByDay))

	// Unknown account reads as empty, not nil panic.
	assert.Equal(t, int64(0), e.Total("acct-none"))
	assert.Empty(t, e.Distribution("acct-none", aggregate.ByType))
}

func TestEngineApplyNegativeDeltaRemovesEmptyBuckets(t *testing.T) {
	e := aggregate.NewEngine()
	day := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	mem := newMemory("m1", "acct-1", store.PlatformSlack, store.TypeFact, day)

	e.Apply(mem, +1)
	e.Apply(mem, -1)

	assert.Equal(t, int64(0), e.Total("acct-1"))
	assert.Empty(t, e.Distribution("acct-1", aggregate.ByType))
	assert.Empty(t, e.Distribution("acct-1", aggregate.ByPlatform))
	assert.Empty(t, e.Distribution("acct-1", aggregate.ByDay))
}

func TestEngineSumDays(t *testing.T) {
	e := aggregate.NewEngine()
	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e.Apply(newMemory(fmt.Sprintf("m%d", i), "acct-1", store.PlatformWeb, store.TypeFact, day.AddDate(0, 0, i)), +1)
	}

	// Half-open [from, to).
	assert.Equal(t, int64(2), e.SumDays("acct-1", day.AddDate(0, 0, 1), day.AddDate(0, 0, 3)))
	assert.Equal(t, int64(5), e.SumDays("acct-1", day, day.AddDate(0, 0, 5)))
	assert.Equal(t, int64(0), e.SumDays("acct-1", day.AddDate(0, 0, 5), day.AddDate(0, 0, 10)))
}

func TestEngineRebuildMatchesIncremental(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "agg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	incremental := aggregate.NewEngine()
	day := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	mems := []*store.Memory{
		newMemory("m1", "acct-1", store.PlatformSlack, store.TypeFact, day),
		newMemory("m2", "acct-1", store.PlatformChatGPT, store.TypeCode, day.Add(time.Hour)),
		newMemory("m3", "acct-2", store.PlatformDiscord, store.TypeQuestion, day.Add(2*time.Hour)),
	}
	for _, mem := range mems {
		require.NoError(t, st.Insert(ctx, mem))
		incremental.Apply(mem, +1)
	}

	// A deletion flows through both paths.
	_, err = st.SoftDelete(ctx, "acct-1", "m2")
	require.NoError(t, err)
	incremental.Apply(mems[1], -1)

	rebuilt := aggregate.NewEngine()
	require.NoError(t, rebuilt.Rebuild(ctx, st))

	for _, accountID := range []string{"acct-1", "acct-2"} {
		assert.Equal(t, incremental.Total(accountID), rebuilt.Total(accountID), accountID)
		for _, kind := range []aggregate.BucketKind{aggregate.ByType, aggregate.ByPlatform, aggregate.ByDay} {
			assert.Equal(t,
				incremental.Distribution(accountID, kind),
				rebuilt.Distribution(accountID, kind),
				"%s/%s", accountID, kind)
		}
	}
}
