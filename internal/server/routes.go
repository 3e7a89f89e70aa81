// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memlayer-dev/memlayer/internal/ingest"
	"github.com/memlayer-dev/memlayer/internal/query"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/memlayer-dev/memlayer/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Ingestion endpoints
	huma.Register(s.api, huma.Operation{
		OperationID:   "capture-memory",
		Method:        http.MethodPost,
		Path:          "/api/v1/accounts/{accountId}/memories",
		Summary:       "Submit a capture event",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"memories"},
	}, s.handleCapture)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-memory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/accounts/{accountId}/memories/{id}",
		Summary:     "Soft-delete a memory",
		Tags:        []string{"memories"},
	}, s.handleDelete)

	// Dashboard query endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-recent-memories",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{accountId}/memories",
		Summary:     "List recent memories, newest first",
		Tags:        []string{"memories"},
	}, s.handleRecent)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-totals",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{accountId}/totals",
		Summary:     "Get memory totals for a time scope",
		Tags:        []string{"analytics"},
	}, s.handleTotals)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-distribution",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{accountId}/distribution",
		Summary:     "Get memory distribution by type or platform",
		Tags:        []string{"analytics"},
	}, s.handleDistribution)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{accountId}/quota",
		Summary:     "Get daily quota status",
		Tags:        []string{"analytics"},
	}, s.handleQuota)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "service-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Service status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type captureInput struct {
	AccountID string `path:"accountId"`
	Body      struct {
		Source     string    `json:"source" doc:"Capture source tag (e.g. chatgpt, slack)"`
		Content    string    `json:"content" minLength:"1" doc:"Captured snippet text"`
		CapturedAt time.Time `json:"captured_at,omitzero" doc:"Client-side capture time"`
	}
}
type captureOutput struct {
	Body struct {
		Memory MemorySummary `json:"memory"`
	}
}

type deleteMemoryInput struct {
	AccountID string `path:"accountId"`
	ID        string `path:"id"`
}
type deleteMemoryOutput struct {
	Body struct {
		Status string `json:"status" example:"deleted"`
	}
}

type recentInput struct {
	AccountID string `path:"accountId"`
	Limit     int    `query:"limit" minimum:"1" maximum:"200" doc:"Page size"`
	Cursor    string `query:"cursor" doc:"Opaque continuation token"`
}
type recentOutput struct {
	Body struct {
		Memories   []MemorySummary `json:"memories"`
		NextCursor string          `json:"next_cursor,omitempty" doc:"Token for the next page"`
	}
}

type totalsInput struct {
	AccountID string `path:"accountId"`
	Scope     string `query:"scope" enum:"all,week,today" doc:"Time scope"`
}
type totalsOutput struct {
	Body struct {
		Scope string `json:"scope"`
		Count int64  `json:"count"`
	}
}

type distributionInput struct {
	AccountID string `path:"accountId"`
	Dimension string `query:"dimension" enum:"type,platform" doc:"Distribution dimension"`
}
type distributionOutput struct {
	Body struct {
		Dimension string           `json:"dimension"`
		Counts    map[string]int64 `json:"counts"`
	}
}

type quotaInput struct {
	AccountID string `path:"accountId"`
}
type quotaOutput struct {
	Body struct {
		Used    int       `json:"used"`
		Limit   int       `json:"limit"`
		ResetAt time.Time `json:"reset_at"`
	}
}

type statusOutput struct {
	Body struct {
		Status     string          `json:"status" example:"ok" doc:"Service status"`
		Reconciler *health.Metrics `json:"reconciler,omitempty" doc:"Aggregate reconciler health"`
	}
}

// --- Handlers ---

func (s *Server) handleCapture(ctx context.Context, input *captureInput) (*captureOutput, error) {
	mem, err := s.services.ingest.Ingest(ctx, ingest.CaptureEvent{
		AccountID:  input.AccountID,
		Source:     input.Body.Source,
		Content:    input.Body.Content,
		CapturedAt: input.Body.CapturedAt,
	})
	if err != nil {
		return nil, apiError(err)
	}

	out := &captureOutput{}
	out.Body.Memory = memorySummary(mem)
	return out, nil
}

func (s *Server) handleDelete(ctx context.Context, input *deleteMemoryInput) (*deleteMemoryOutput, error) {
	if err := s.services.ingest.Delete(ctx, input.AccountID, input.ID); err != nil {
		return nil, apiError(err)
	}
	out := &deleteMemoryOutput{}
	out.Body.Status = "deleted"
	return out, nil
}

func (s *Server) handleRecent(ctx context.Context, input *recentInput) (*recentOutput, error) {
	page, err := s.services.queries.Recent(ctx, input.AccountID, input.Limit, input.Cursor)
	if err != nil {
		return nil, apiError(err)
	}

	out := &recentOutput{}
	out.Body.Memories = make([]MemorySummary, 0, len(page.Memories))
	for _, mem := range page.Memories {
		out.Body.Memories = append(out.Body.Memories, memorySummary(mem))
	}
	out.Body.NextCursor = page.NextCursor
	return out, nil
}

func (s *Server) handleTotals(ctx context.Context, input *totalsInput) (*totalsOutput, error) {
	scope := query.Scope(input.Scope)
	if input.Scope == "" {
		scope = query.ScopeAll
	}

	count, err := s.services.queries.Totals(ctx, input.AccountID, scope)
	if err != nil {
		return nil, apiError(err)
	}

	out := &totalsOutput{}
	out.Body.Scope = string(scope)
	out.Body.Count = count
	return out, nil
}

func (s *Server) handleDistribution(ctx context.Context, input *distributionInput) (*distributionOutput, error) {
	dim := query.Dimension(input.Dimension)
	if input.Dimension == "" {
		dim = query.DimensionType
	}

	counts, err := s.services.queries.Distribution(ctx, input.AccountID, dim)
	if err != nil {
		return nil, apiError(err)
	}

	out := &distributionOutput{}
	out.Body.Dimension = string(dim)
	out.Body.Counts = counts
	return out, nil
}

func (s *Server) handleQuota(ctx context.Context, input *quotaInput) (*quotaOutput, error) {
	status, err := s.services.queries.QuotaStatus(ctx, input.AccountID)
	if err != nil {
		return nil, apiError(err)
	}

	out := &quotaOutput{}
	out.Body.Used = status.Used
	out.Body.Limit = status.Limit
	out.Body.ResetAt = status.ResetAt
	return out, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	if s.services != nil && s.services.reconciler != nil {
		m := s.services.reconciler.Metrics()
		out.Body.Reconciler = &m
	}
	return out, nil
}

// apiError maps a pipeline or query error to the matching huma status error.
// Quota rejections carry a Retry-After header with the window reset time.
func apiError(err error) error {
	status := memerr.HTTPStatus(err)

	if status == http.StatusTooManyRequests {
		humaErr := huma.NewError(status, err.Error())
		headers := http.Header{}
		if resetAt, ok := memerr.FieldsOf(err)["reset_at"].(string); ok {
			if t, parseErr := time.Parse(time.RFC3339, resetAt); parseErr == nil {
				headers.Set("Retry-After", fmt.Sprintf("%d", int(time.Until(t).Seconds())+1))
			}
		}
		return huma.ErrorWithHeaders(humaErr, headers)
	}

	return huma.NewError(status, err.Error())
}
