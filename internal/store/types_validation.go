// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package store

import (
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// Valid reports whether the platform is a known capture source.
func (p Platform) Valid() bool {
	switch p {
	case PlatformChatGPT, PlatformClaude, PlatformGemini,
		PlatformSlack, PlatformDiscord, PlatformWeb, PlatformOther:
		return true
	default:
		return false
	}
}

// Valid reports whether the conversation type is a known category.
func (t ConversationType) Valid() bool {
	switch t {
	case TypeQuestion, TypeDecision, TypeFact, TypeCode, TypeOther:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is a known memory lifecycle state.
func (s MemoryStatus) Valid() bool {
	switch s {
	case MemoryStatusActive, MemoryStatusDeleted:
		return true
	default:
		return false
	}
}

// Validate checks that the Memory has all required fields set correctly.
func (m Memory) Validate() error {
	if m.ID == "" {
		return memerr.New(memerr.CodeStoreInvalidInput, "memory: ID is required")
	}
	if m.AccountID == "" {
		return memerr.New(memerr.CodeStoreInvalidInput, "memory: AccountID is required")
	}
	if !m.Platform.Valid() {
		return memerr.Errorf(memerr.CodeStoreInvalidInput, "memory: invalid platform %q", m.Platform)
	}
	if !m.ConversationType.Valid() {
		return memerr.Errorf(memerr.CodeStoreInvalidInput, "memory: invalid conversation type %q", m.ConversationType)
	}
	if m.ContentFingerprint == "" {
		return memerr.New(memerr.CodeStoreInvalidInput, "memory: ContentFingerprint is required")
	}
	if !m.Status.Valid() {
		return memerr.Errorf(memerr.CodeStoreInvalidInput, "memory: invalid status %q", m.Status)
	}
	if m.AdmittedAt.IsZero() {
		return memerr.New(memerr.CodeStoreInvalidInput, "memory: AdmittedAt is required")
	}
	return nil
}
