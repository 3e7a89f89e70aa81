// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memlayer-dev/memlayer/internal/store"
)

func TestEnumValidity(t *testing.T) {
	for _, p := range store.Platforms() {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, store.Platform("myspace").Valid())

	for _, ct := range store.ConversationTypes() {
		assert.True(t, ct.Valid(), ct)
	}
	assert.False(t, store.ConversationType("rant").Valid())

	assert.True(t, store.MemoryStatusActive.Valid())
	assert.True(t, store.MemoryStatusDeleted.Valid())
	assert.False(t, store.MemoryStatus("archived").Valid())
}

func TestMemoryValidate(t *testing.T) {
	valid := store.Memory{
		ID:                 "mem-1",
		AccountID:          "acct-1",
		Platform:           store.PlatformSlack,
		ConversationType:   store.TypeFact,
		ContentFingerprint: "fp",
		AdmittedAt:         time.Now().UTC(),
		Status:             store.MemoryStatusActive,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*store.Memory)
	}{
		{"missing id", func(m *store.Memory) { m.ID = "" }},
		{"missing account", func(m *store.Memory) { m.AccountID = "" }},
		{"bad platform", func(m *store.Memory) { m.Platform = "myspace" }},
		{"bad type", func(m *store.Memory) { m.ConversationType = "rant" }},
		{"missing fingerprint", func(m *store.Memory) { m.ContentFingerprint = "" }},
		{"bad status", func(m *store.Memory) { m.Status = "archived" }},
		{"zero admitted_at", func(m *store.Memory) { m.AdmittedAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestDayKey(t *testing.T) {
	// Keyed by the UTC day regardless of input zone.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2026-08-31", store.DayKey(time.Date(2026, 8, 30, 23, 0, 0, 0, est)))
	assert.Equal(t, "2026-08-30", store.DayKey(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))
}
