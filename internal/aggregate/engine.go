// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

// Package aggregate maintains the rollup buckets the dashboard reads:
// per-account counts by conversation type, by platform, and by UTC day.
// Buckets are a cache derived from the record store's active memories and
// can always be rebuilt from it.
package aggregate

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// BucketKind names one of the three rollup dimensions.
type BucketKind string

const (
	ByType     BucketKind = "type"
	ByPlatform BucketKind = "platform"
	ByDay      BucketKind = "day"
)

// Engine holds the in-memory bucket state. A single write lock covers all
// three dimensions of an apply, so a concurrent reader never observes a
// partially applied delta.
type Engine struct {
	mu       sync.RWMutex
	accounts map[string]*accountBuckets
}

type accountBuckets struct {
	byType     map[string]int64
	byPlatform map[string]int64
	byDay      map[string]int64
}

func newAccountBuckets() *accountBuckets {
	return &accountBuckets{
		byType:     make(map[string]int64),
		byPlatform: make(map[string]int64),
		byDay:      make(map[string]int64),
	}
}

func NewEngine() *Engine {
	return &Engine{accounts: make(map[string]*accountBuckets)}
}

// Apply updates the memory's three buckets by delta (+1 on admission, -1 on
// soft delete). Buckets that reach zero are removed so the state stays
// comparable with a fresh rebuild.
func (e *Engine) Apply(mem *store.Memory, delta int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.accounts[mem.AccountID]
	if !ok {
		b = newAccountBuckets()
		e.accounts[mem.AccountID] = b
	}

	bump(b.byType, string(mem.ConversationType), delta)
	bump(b.byPlatform, string(mem.Platform), delta)
	bump(b.byDay, store.DayKey(mem.AdmittedAt), delta)

	if len(b.byType) == 0 && len(b.byPlatform) == 0 && len(b.byDay) == 0 {
		delete(e.accounts, mem.AccountID)
	}
}

func bump(buckets map[string]int64, key string, delta int64) {
	next := buckets[key] + delta
	if next <= 0 {
		delete(buckets, key)
		return
	}
	buckets[key] = next
}

// Distribution returns a copy of the account's buckets for one dimension.
func (e *Engine) Distribution(accountID string, kind BucketKind) map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.accounts[accountID]
	if !ok {
		return map[string]int64{}
	}

	switch kind {
	case ByType:
		return maps.Clone(b.byType)
	case ByPlatform:
		return maps.Clone(b.byPlatform)
	case ByDay:
		return maps.Clone(b.byDay)
	default:
		return map[string]int64{}
	}
}

// Total returns the account's active memory count, summed over by-day buckets.
func (e *Engine) Total(accountID string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.accounts[accountID]
	if !ok {
		return 0
	}

	var total int64
	for _, n := range b.byDay {
		total += n
	}
	return total
}

// SumDays sums the account's by-day buckets for days in [from, to).
func (e *Engine) SumDays(accountID string, from, to time.Time) int64 {
	fromKey := store.DayKey(from)
	toKey := store.DayKey(to)

	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.accounts[accountID]
	if !ok {
		return 0
	}

	var total int64
	for day, n := range b.byDay {
		if day >= fromKey && day < toKey {
			total += n
		}
	}
	return total
}

// Rebuild recomputes every account's buckets from the store's active
// memories and atomically swaps them in. Given the same set of active
// memories it produces exactly the state incremental Apply calls maintain.
func (e *Engine) Rebuild(ctx context.Context, st store.MemoryStore) error {
	fresh, err := buildFrom(ctx, st)
	if err != nil {
		return memerr.Wrap(err, memerr.CodeAggregateRebuildFailure, "rebuilding aggregate buckets")
	}

	e.mu.Lock()
	e.accounts = fresh
	e.mu.Unlock()
	return nil
}

// buildFrom computes bucket state for every account from scratch.
func buildFrom(ctx context.Context, st store.MemoryStore) (map[string]*accountBuckets, error) {
	accounts, err := st.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	fresh := make(map[string]*accountBuckets, len(accounts))
	for _, accountID := range accounts {
		b := newAccountBuckets()
		err := st.ScanActive(ctx, accountID, func(mem *store.Memory) error {
			bump(b.byType, string(mem.ConversationType), 1)
			bump(b.byPlatform, string(mem.Platform), 1)
			bump(b.byDay, store.DayKey(mem.AdmittedAt), 1)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(b.byDay) > 0 {
			fresh[accountID] = b
		}
	}
	return fresh, nil
}

// snapshot deep-copies the current state for divergence comparison.
func (e *Engine) snapshot() map[string]*accountBuckets {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]*accountBuckets, len(e.accounts))
	for id, b := range e.accounts {
		out[id] = &accountBuckets{
			byType:     maps.Clone(b.byType),
			byPlatform: maps.Clone(b.byPlatform),
			byDay:      maps.Clone(b.byDay),
		}
	}
	return out
}

// swap replaces the current state wholesale.
func (e *Engine) swap(state map[string]*accountBuckets) {
	e.mu.Lock()
	e.accounts = state
	e.mu.Unlock()
}

func statesEqual(a, b map[string]*accountBuckets) bool {
	if len(a) != len(b) {
		return false
	}
	for id, ab := range a {
		bb, ok := b[id]
		if !ok {
			return false
		}
		if !maps.Equal(ab.byType, bb.byType) ||
			!maps.Equal(ab.byPlatform, bb.byPlatform) ||
			!maps.Equal(ab.byDay, bb.byDay) {
			return false
		}
	}
	return true
}
