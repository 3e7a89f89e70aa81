// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package server

import (
	"context"
	"time"

	"github.com/memlayer-dev/memlayer/internal/ingest"
	"github.com/memlayer-dev/memlayer/internal/query"
	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/memlayer-dev/memlayer/pkg/health"
)

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	ingest     IngestService
	queries    QueryService
	reconciler ReconcilerService // optional; nil = reconciler health omitted from status
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
// The optional reconcilers variadic parameter sets the reconciler health service.
func NewServices(ing IngestService, queries QueryService, reconcilers ...ReconcilerService) (*Services, error) {
	if ing == nil {
		return nil, memerr.New(memerr.CodeServerConfigInvalid, "ingest service is required")
	}
	if queries == nil {
		return nil, memerr.New(memerr.CodeServerConfigInvalid, "query service is required")
	}
	if len(reconcilers) > 1 {
		return nil, memerr.New(memerr.CodeServerConfigInvalid, "at most one reconciler service may be supplied")
	}
	s := &Services{
		ingest:  ing,
		queries: queries,
	}
	if len(reconcilers) > 0 && reconcilers[0] != nil {
		s.reconciler = reconcilers[0]
	}
	return s, nil
}

// IngestService accepts capture events and soft deletions.
type IngestService interface {
	Ingest(ctx context.Context, ev ingest.CaptureEvent) (*store.Memory, error)
	Delete(ctx context.Context, accountID, memoryID string) error
}

// QueryService provides the read-only dashboard operations.
type QueryService interface {
	Totals(ctx context.Context, accountID string, scope query.Scope) (int64, error)
	Distribution(ctx context.Context, accountID string, dim query.Dimension) (map[string]int64, error)
	Recent(ctx context.Context, accountID string, limit int, cursor string) (*query.RecentPage, error)
	QuotaStatus(ctx context.Context, accountID string) (*query.QuotaStatus, error)
}

// ReconcilerService exposes aggregate reconciler health for the status
// endpoint. Optional — when nil, status omits reconciler metrics.
type ReconcilerService interface {
	Metrics() health.Metrics
}

// MemorySummary is the REST representation of an admitted memory.
type MemorySummary struct {
	ID               string    `json:"id" doc:"Memory identifier"`
	Platform         string    `json:"platform" doc:"Capture platform"`
	ConversationType string    `json:"conversation_type" doc:"Conversation category"`
	Content          string    `json:"content" doc:"Captured snippet"`
	CapturedAt       time.Time `json:"captured_at,omitzero" doc:"Client capture time"`
	AdmittedAt       time.Time `json:"admitted_at" doc:"Server admission time"`
}

func memorySummary(mem *store.Memory) MemorySummary {
	return MemorySummary{
		ID:               mem.ID,
		Platform:         string(mem.Platform),
		ConversationType: string(mem.ConversationType),
		Content:          mem.Content,
		CapturedAt:       mem.CapturedAt,
		AdmittedAt:       mem.AdmittedAt,
	}
}
