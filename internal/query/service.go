// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

// Package query is the read-only interface the dashboard consumes: totals,
// dimension distributions, recent-memory pages, and quota status. It reads
// from the record store and the aggregate engine and never writes.
package query

import (
	"context"
	"time"

	"github.com/memlayer-dev/memlayer/internal/aggregate"
	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// Scope selects the time range of a totals query.
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeWeek  Scope = "week"
	ScopeToday Scope = "today"
)

// Dimension selects which distribution a query returns.
type Dimension string

const (
	DimensionType     Dimension = "type"
	DimensionPlatform Dimension = "platform"
)

// QuotaSource reports current quota usage; implemented by the ingest tracker.
type QuotaSource interface {
	Status(ctx context.Context, accountID string, asOf time.Time) (used, limit int, resetAt time.Time, err error)
}

// QuotaStatus is the dashboard's quota card payload.
type QuotaStatus struct {
	Used    int
	Limit   int
	ResetAt time.Time
}

// RecentPage is one page of the newest-first memory feed. NextCursor is
// empty when the feed is exhausted.
type RecentPage struct {
	Memories   []*store.Memory
	NextCursor string
}

// Service answers dashboard reads.
type Service struct {
	store      store.MemoryStore
	aggregates *aggregate.Engine
	quota      QuotaSource
	now        func() time.Time
}

func NewService(st store.MemoryStore, agg *aggregate.Engine, quota QuotaSource) *Service {
	return &Service{
		store:      st,
		aggregates: agg,
		quota:      quota,
		now:        time.Now,
	}
}

// Totals returns the account's active memory count for the scope. Counts
// come from the by-day aggregate buckets and agree with filtering the record
// store directly by admission time.
func (s *Service) Totals(ctx context.Context, accountID string, scope Scope) (int64, error) {
	now := s.now().UTC()
	today := startOfUTCDay(now)

	switch scope {
	case ScopeAll:
		return s.aggregates.Total(accountID), nil
	case ScopeToday:
		return s.aggregates.SumDays(accountID, today, today.AddDate(0, 0, 1)), nil
	case ScopeWeek:
		return s.aggregates.SumDays(accountID, today.AddDate(0, 0, -6), today.AddDate(0, 0, 1)), nil
	default:
		return 0, memerr.Errorf(memerr.CodeQueryScopeInvalid, "unknown totals scope %q", scope)
	}
}

// Distribution returns the dimension's bucket counts for the account.
func (s *Service) Distribution(_ context.Context, accountID string, dim Dimension) (map[string]int64, error) {
	switch dim {
	case DimensionType:
		return s.aggregates.Distribution(accountID, aggregate.ByType), nil
	case DimensionPlatform:
		return s.aggregates.Distribution(accountID, aggregate.ByPlatform), nil
	default:
		return nil, memerr.Errorf(memerr.CodeQueryScopeInvalid, "unknown distribution dimension %q", dim)
	}
}

// Recent returns one newest-first page of active memories, restartable via
// the returned cursor.
func (s *Service) Recent(ctx context.Context, accountID string, limit int, cursor string) (*RecentPage, error) {
	pos, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	mems, err := s.store.ListRecent(ctx, accountID, store.ListOpts{Limit: limit, Cursor: pos})
	if err != nil {
		return nil, memerr.Wrap(err, memerr.CodeQueryReadFailure, "listing recent memories",
			memerr.FieldAccountID(accountID))
	}

	page := &RecentPage{Memories: mems}
	if len(mems) == limit {
		last := mems[len(mems)-1]
		page.NextCursor = encodeCursor(store.RecentCursor{AdmittedAt: last.AdmittedAt, ID: last.ID})
	}
	return page, nil
}

// QuotaStatus returns the account's current daily usage.
func (s *Service) QuotaStatus(ctx context.Context, accountID string) (*QuotaStatus, error) {
	used, limit, resetAt, err := s.quota.Status(ctx, accountID, s.now().UTC())
	if err != nil {
		return nil, memerr.Wrap(err, memerr.CodeQueryReadFailure, "reading quota status",
			memerr.FieldAccountID(accountID))
	}
	return &QuotaStatus{Used: used, Limit: limit, ResetAt: resetAt}, nil
}

func startOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
