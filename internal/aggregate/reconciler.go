// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/memlayer-dev/memlayer/pkg/health"
)

// Reconciler periodically compares the engine's incrementally maintained
// buckets against a fresh rebuild from the record store. A divergence is not
// fatal to ingestion: it is logged and the rebuilt state replaces the
// drifted one.
type Reconciler struct {
	engine   *Engine
	store    store.MemoryStore
	interval time.Duration

	mu      sync.Mutex
	metrics health.Metrics
}

// NewReconciler creates a reconciler running every interval. An interval of
// zero disables the loop (Run returns immediately).
func NewReconciler(engine *Engine, st store.MemoryStore, interval time.Duration) *Reconciler {
	return &Reconciler{
		engine:   engine,
		store:    st,
		interval: interval,
		metrics:  health.Metrics{Healthy: true},
	}
}

// Run blocks until ctx is cancelled, reconciling on each tick.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				slog.Error("aggregate reconciliation failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ReconcileOnce runs a single comparison pass, swapping in the rebuilt state
// when the incremental buckets have drifted.
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	fresh, err := buildFrom(ctx, r.store)
	if err != nil {
		r.record(false, false)
		return memerr.Wrap(err, memerr.CodeAggregateRebuildFailure, "reconciling aggregate buckets")
	}

	current := r.engine.snapshot()
	diverged := !statesEqual(current, fresh)
	if diverged {
		slog.Warn("aggregate buckets diverged from record store, rebuilt",
			"code", string(memerr.CodeAggregateInconsistent),
			"accounts_incremental", len(current),
			"accounts_rebuilt", len(fresh),
		)
		r.engine.swap(fresh)
	}

	r.record(true, diverged)
	return nil
}

// Metrics returns a point-in-time snapshot of reconciler health.
func (r *Reconciler) Metrics() health.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

func (r *Reconciler) record(ok, diverged bool) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.RunCount++
	r.metrics.LastRunAt = &now
	r.metrics.Healthy = ok
	if diverged {
		r.metrics.DivergenceCount++
		r.metrics.LastDivergenceAt = &now
	}
}
