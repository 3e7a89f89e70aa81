// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

// Package ingest implements the memory ingestion pipeline: dedup check,
// quota check, classification, durable write, aggregate update. Each capture
// event runs to a terminal state; rejections leave no partial state behind.
package ingest

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/memlayer-dev/memlayer/internal/aggregate"
	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// CaptureEvent is one raw capture submitted by the capture collaborator.
// AccountID arrives already authenticated.
type CaptureEvent struct {
	AccountID  string
	Source     string
	Content    string
	CapturedAt time.Time
}

// Config tunes pipeline behavior.
type Config struct {
	// RetryAttempts bounds how many times a failed durable write is retried
	// before the admission is rolled back.
	RetryAttempts int
	// RetryBackoff is the base delay between retries, doubled per attempt.
	RetryBackoff time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
}

// Pipeline orchestrates admissions and deletions. Events for different
// accounts run fully in parallel; per-account state (dedup reservations,
// quota window, admission ordering) is serialized by a per-account lock held
// only across the check-and-reserve step, never across the durable write.
type Pipeline struct {
	store      store.MemoryStore
	audit      store.AuditStore
	aggregates *aggregate.Engine
	dedup      *Deduplicator
	quota      *Tracker
	classifier *Classifier
	locks      *keyedMutex
	cfg        Config

	now func() time.Time

	// entropy feeds monotonic ULIDs so ids generated within the same
	// millisecond still sort in generation order.
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy

	// lastAdmit keeps AdmittedAt strictly increasing per account.
	admitMu   sync.Mutex
	lastAdmit map[string]time.Time
}

// New creates a Pipeline over the given collaborators.
func New(st store.MemoryStore, audit store.AuditStore, agg *aggregate.Engine, quota *Tracker, classifier *Classifier, cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		store:      st,
		audit:      audit,
		aggregates: agg,
		dedup:      NewDeduplicator(st),
		quota:      quota,
		classifier: classifier,
		locks:      newKeyedMutex(),
		cfg:        cfg,
		now:        time.Now,
		entropy:    ulid.Monotonic(rand.Reader, 0),
		lastAdmit:  make(map[string]time.Time),
	}
}

// Quota exposes the tracker for quota status queries.
func (p *Pipeline) Quota() *Tracker { return p.quota }

// Ingest runs one capture event through the pipeline and returns the
// admitted memory, or an error carrying the rejection reason:
// ingest.memory.duplicate, ingest.quota.exceeded, or ingest.pipeline.failure.
func (p *Pipeline) Ingest(ctx context.Context, ev CaptureEvent) (*store.Memory, error) {
	if ev.AccountID == "" {
		return nil, memerr.New(memerr.CodeIngestInputInvalid, "capture event: account id is required")
	}
	if ev.Content == "" {
		return nil, memerr.New(memerr.CodeIngestInputInvalid, "capture event: content is required")
	}

	// Fingerprinting and classification are pure and need no serialization.
	fingerprint := Fingerprint(ev.Content)
	platform, convType := p.classifier.Classify(CaptureMeta{Source: ev.Source, Content: ev.Content})

	mem, err := p.reserve(ctx, ev, fingerprint, platform, convType)
	if err != nil {
		return nil, err
	}

	// Durable write happens outside the account lock; a failure rolls back
	// both reservations so nothing leaks.
	if err := p.persist(ctx, mem); err != nil {
		unlock := p.locks.Lock(ev.AccountID)
		p.dedup.Release(ev.AccountID, fingerprint)
		p.quota.Release(ev.AccountID, mem.AdmittedAt)
		unlock()

		if errors.Is(err, store.ErrConflict) {
			p.recordAudit(ctx, mem, store.AuditDuplicate, "fingerprint committed by concurrent admission")
			return nil, memerr.New(memerr.CodeIngestMemoryDuplicate, "memory already captured",
				memerr.FieldAccountID(ev.AccountID), memerr.FieldFingerprint(fingerprint))
		}

		p.recordAudit(ctx, mem, store.AuditStorageError, err.Error())
		return nil, memerr.Wrap(err, memerr.CodeIngestFailed, "persisting memory",
			memerr.FieldAccountID(ev.AccountID), memerr.FieldMemoryID(mem.ID))
	}

	p.dedup.Commit(ev.AccountID, fingerprint)
	p.aggregates.Apply(mem, +1)
	p.recordAudit(ctx, mem, store.AuditAdmitted, "")

	return mem, nil
}

// reserve runs the locked check-and-reserve step: dedup check, quota check,
// and admission stamp. On rejection it releases whatever was reserved.
func (p *Pipeline) reserve(ctx context.Context, ev CaptureEvent, fingerprint string, platform store.Platform, convType store.ConversationType) (*store.Memory, error) {
	unlock := p.locks.Lock(ev.AccountID)
	defer unlock()

	free, err := p.dedup.CheckAndReserve(ctx, ev.AccountID, fingerprint)
	if err != nil {
		return nil, memerr.Wrap(err, memerr.CodeIngestStorageFailure, "checking fingerprint",
			memerr.FieldAccountID(ev.AccountID))
	}
	if !free {
		p.recordAudit(ctx, &store.Memory{
			AccountID:          ev.AccountID,
			Platform:           platform,
			ContentFingerprint: fingerprint,
		}, store.AuditDuplicate, "")
		return nil, memerr.New(memerr.CodeIngestMemoryDuplicate, "memory already captured",
			memerr.FieldAccountID(ev.AccountID), memerr.FieldFingerprint(fingerprint))
	}

	admittedAt := p.stampAdmission(ev.AccountID)

	decision, err := p.quota.TryConsume(ctx, ev.AccountID, admittedAt)
	if err != nil {
		p.dedup.Release(ev.AccountID, fingerprint)
		return nil, memerr.Wrap(err, memerr.CodeIngestStorageFailure, "checking quota",
			memerr.FieldAccountID(ev.AccountID))
	}
	if !decision.Allowed {
		p.dedup.Release(ev.AccountID, fingerprint)
		p.recordAudit(ctx, &store.Memory{
			AccountID:          ev.AccountID,
			Platform:           platform,
			ContentFingerprint: fingerprint,
		}, store.AuditQuotaExceeded, "")
		return nil, memerr.New(memerr.CodeIngestQuotaExceeded, "daily memory quota exceeded",
			memerr.FieldAccountID(ev.AccountID),
			memerr.Field("limit", decision.Limit),
			memerr.Field("reset_at", decision.ResetAt.Format(time.RFC3339)))
	}

	return &store.Memory{
		ID:                 p.newID(admittedAt),
		AccountID:          ev.AccountID,
		Platform:           platform,
		ConversationType:   convType,
		ContentFingerprint: fingerprint,
		Content:            ev.Content,
		CapturedAt:         ev.CapturedAt,
		AdmittedAt:         admittedAt,
		Status:             store.MemoryStatusActive,
	}, nil
}

// persist writes the memory with bounded retry and exponential backoff.
// Conflicts are permanent and surface immediately; other failures retry.
func (p *Pipeline) persist(ctx context.Context, mem *store.Memory) error {
	backoff := p.cfg.RetryBackoff

	var err error
	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		err = p.store.Insert(ctx, mem)
		if err == nil || errors.Is(err, store.ErrConflict) {
			return err
		}

		slog.Warn("memory write failed, retrying",
			"account_id", mem.AccountID, "memory_id", mem.ID,
			"attempt", attempt, "error", err)

		if attempt == p.cfg.RetryAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

// Delete soft-deletes an active memory: the record is retained, its
// aggregate buckets receive the compensating -1 delta, and a same-day
// deletion returns the admission's quota slot.
func (p *Pipeline) Delete(ctx context.Context, accountID, memoryID string) error {
	mem, err := p.store.SoftDelete(ctx, accountID, memoryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return memerr.Wrap(err, memerr.CodeStoreMemoryNotFound, "deleting memory",
				memerr.FieldAccountID(accountID), memerr.FieldMemoryID(memoryID))
		}
		return memerr.Wrap(err, memerr.CodeIngestStorageFailure, "deleting memory",
			memerr.FieldAccountID(accountID), memerr.FieldMemoryID(memoryID))
	}

	if store.DayKey(mem.AdmittedAt) == store.DayKey(p.now().UTC()) {
		unlock := p.locks.Lock(accountID)
		p.quota.Release(accountID, mem.AdmittedAt)
		unlock()
	}

	p.aggregates.Apply(mem, -1)
	p.recordAudit(ctx, mem, store.AuditDeleted, "")
	return nil
}

// stampAdmission returns a UTC admission timestamp strictly greater than the
// account's previous one. Called under the account lock.
func (p *Pipeline) stampAdmission(accountID string) time.Time {
	now := p.now().UTC()

	p.admitMu.Lock()
	defer p.admitMu.Unlock()
	if last, ok := p.lastAdmit[accountID]; ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	p.lastAdmit[accountID] = now
	return now
}

// newID mints a ULID stamped with the admission time.
func (p *Pipeline) newID(t time.Time) string {
	p.entropyMu.Lock()
	defer p.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// recordAudit appends a terminal-state audit entry. Audit failures are
// logged, never surfaced: the pipeline outcome already happened.
func (p *Pipeline) recordAudit(ctx context.Context, mem *store.Memory, outcome store.AuditOutcome, reason string) {
	if p.audit == nil {
		return
	}

	entry := &store.AuditEntry{
		ID:          uuid.NewString(),
		Timestamp:   p.now().UTC(),
		AccountID:   mem.AccountID,
		MemoryID:    mem.ID,
		Fingerprint: mem.ContentFingerprint,
		Platform:    mem.Platform,
		Outcome:     outcome,
		Reason:      reason,
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		slog.Warn("appending ingest audit entry failed",
			"account_id", mem.AccountID, "outcome", string(outcome), "error", err)
	}
}
