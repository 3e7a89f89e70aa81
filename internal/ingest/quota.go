// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/memlayer-dev/memlayer/internal/store"
)

// WindowSource seeds in-memory quota windows from persisted counts, so a
// restarted process resumes the day where it left off.
type WindowSource interface {
	QuotaWindow(ctx context.Context, accountID, date string) (*store.QuotaWindow, error)
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Tracker gates admissions against a per-account, per-UTC-day limit.
// Windows are created lazily on first touch of a day and seeded from the
// store; day rollover supersedes the previous window. Callers must
// serialize TryConsume/Release per account.
type Tracker struct {
	limit  int
	source WindowSource

	mu      sync.Mutex
	windows map[string]*quotaWindow
}

type quotaWindow struct {
	date  string
	count int
}

func NewTracker(limit int, source WindowSource) *Tracker {
	return &Tracker{
		limit:   limit,
		source:  source,
		windows: make(map[string]*quotaWindow),
	}
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit() int { return t.limit }

// TryConsume reserves one admission slot in the account's window for asOf's
// UTC day. When the window is full it reports denial with the start of the
// next UTC day as the reset time. The reservation must be released if a
// later pipeline stage rejects the admission.
func (t *Tracker) TryConsume(ctx context.Context, accountID string, asOf time.Time) (Decision, error) {
	w, err := t.window(ctx, accountID, asOf)
	if err != nil {
		return Decision{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	d := Decision{Limit: t.limit, ResetAt: nextUTCMidnight(asOf)}
	if w.count >= t.limit {
		return d, nil
	}
	w.count++
	d.Allowed = true
	d.Remaining = t.limit - w.count
	return d, nil
}

// Release returns a previously consumed slot for asOf's UTC day: rollback of
// a failed admission, or a same-day soft delete freeing its slot.
func (t *Tracker) Release(accountID string, asOf time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[accountID]
	if !ok || w.date != store.DayKey(asOf) {
		return
	}
	if w.count > 0 {
		w.count--
	}
}

// Status reports the account's current usage for asOf's UTC day.
func (t *Tracker) Status(ctx context.Context, accountID string, asOf time.Time) (used, limit int, resetAt time.Time, err error) {
	w, err := t.window(ctx, accountID, asOf)
	if err != nil {
		return 0, 0, time.Time{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return w.count, t.limit, nextUTCMidnight(asOf), nil
}

// window returns the account's window for asOf's day, creating it (seeded
// from the store) on first touch or day rollover.
func (t *Tracker) window(ctx context.Context, accountID string, asOf time.Time) (*quotaWindow, error) {
	date := store.DayKey(asOf)

	t.mu.Lock()
	w, ok := t.windows[accountID]
	if ok && w.date == date {
		t.mu.Unlock()
		return w, nil
	}
	t.mu.Unlock()

	persisted, err := t.source.QuotaWindow(ctx, accountID, date)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check: the caller serializes per account, but another account's
	// seed may have run concurrently and the map write must stay exclusive.
	if w, ok := t.windows[accountID]; ok && w.date == date {
		return w, nil
	}
	w = &quotaWindow{date: date, count: persisted.Count}
	t.windows[accountID] = w
	return w, nil
}

// nextUTCMidnight returns the start of the UTC day after t.
func nextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
