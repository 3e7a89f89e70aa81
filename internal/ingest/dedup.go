// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package ingest

import (
	"context"
	"sync"
)

// FingerprintSource is the store-side half of deduplication: the set of
// fingerprints already committed as active memories.
type FingerprintSource interface {
	HasActiveFingerprint(ctx context.Context, accountID, fingerprint string) (bool, error)
}

// Deduplicator guards the (account, fingerprint) uniqueness invariant during
// the window between reservation and durable commit. Committed fingerprints
// live in the store's partial unique index; the in-flight set here only
// covers admissions whose write has not landed yet.
type Deduplicator struct {
	source FingerprintSource

	mu       sync.Mutex
	inflight map[string]map[string]struct{}
}

func NewDeduplicator(source FingerprintSource) *Deduplicator {
	return &Deduplicator{
		source:   source,
		inflight: make(map[string]map[string]struct{}),
	}
}

// CheckAndReserve reports whether the fingerprint is free for the account
// and, if so, reserves it. Callers must serialize calls per account; under
// that serialization exactly one of several identical submissions wins.
// A reservation must be resolved with Commit or Release.
func (d *Deduplicator) CheckAndReserve(ctx context.Context, accountID, fingerprint string) (bool, error) {
	d.mu.Lock()
	if _, held := d.inflight[accountID][fingerprint]; held {
		d.mu.Unlock()
		return false, nil
	}
	d.mu.Unlock()

	exists, err := d.source.HasActiveFingerprint(ctx, accountID, fingerprint)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.inflight[accountID]
	if !ok {
		set = make(map[string]struct{})
		d.inflight[accountID] = set
	}
	set[fingerprint] = struct{}{}
	return true, nil
}

// Commit drops the in-flight reservation after the memory's durable write
// succeeded; from here the store's unique index holds the invariant.
func (d *Deduplicator) Commit(accountID, fingerprint string) {
	d.remove(accountID, fingerprint)
}

// Release frees a reservation whose admission was rejected downstream, so
// the fingerprint becomes available for a retried submission.
func (d *Deduplicator) Release(accountID, fingerprint string) {
	d.remove(accountID, fingerprint)
}

func (d *Deduplicator) remove(accountID, fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.inflight[accountID]
	if !ok {
		return
	}
	delete(set, fingerprint)
	if len(set) == 0 {
		delete(d.inflight, accountID)
	}
}
