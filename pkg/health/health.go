// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package health

import "time"

// Metrics exposes the current health state of the aggregate reconciler for
// monitoring and operator visibility. All fields are point-in-time snapshots
// safe to serialize to JSON.
type Metrics struct {
	RunCount         int64      `json:"run_count"`
	DivergenceCount  int64      `json:"divergence_count"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastDivergenceAt *time.Time `json:"last_divergence_at,omitempty"`
	Healthy          bool       `json:"healthy"`
}
