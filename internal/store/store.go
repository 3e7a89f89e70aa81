// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package store

import (
	"context"
	"time"
)

// MemoryStore is the durable, append-only record store for captured memories.
// The store is the source of truth; aggregate buckets are a cache derived
// from its active records.
type MemoryStore interface {
	// Insert persists a new memory and bumps the account's quota window for
	// the memory's admission day in the same transaction. Returns ErrConflict
	// when an active memory with the same (AccountID, ContentFingerprint)
	// already exists.
	Insert(ctx context.Context, mem *Memory) error

	// Get returns a memory by id regardless of status.
	Get(ctx context.Context, accountID, id string) (*Memory, error)

	// SoftDelete flips an active memory to deleted and decrements the quota
	// window of its admission day in the same transaction. The record is
	// retained for audit. Returns ErrNotFound when no active memory matches.
	SoftDelete(ctx context.Context, accountID, id string) (*Memory, error)

	// HasActiveFingerprint reports whether an active memory with the given
	// fingerprint exists for the account.
	HasActiveFingerprint(ctx context.Context, accountID, fingerprint string) (bool, error)

	// CountAdmitted counts active memories admitted in [from, to).
	// A zero from or to leaves that bound open.
	CountAdmitted(ctx context.Context, accountID string, from, to time.Time) (int64, error)

	// QuotaWindow returns the persisted window for the account and day,
	// or a zero-count window when none exists yet.
	QuotaWindow(ctx context.Context, accountID, date string) (*QuotaWindow, error)

	// ListRecent returns active memories newest-first by (AdmittedAt, ID),
	// starting after opts.Cursor when set.
	ListRecent(ctx context.Context, accountID string, opts ListOpts) ([]*Memory, error)

	// ScanActive streams every active memory for the account to fn in
	// admission order. fn returning an error stops the scan.
	ScanActive(ctx context.Context, accountID string, fn func(*Memory) error) error

	// Accounts returns every account id that owns at least one memory row.
	Accounts(ctx context.Context) ([]string, error)

	Close() error
}

// AuditStore records terminal ingest outcomes, append-only.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}
