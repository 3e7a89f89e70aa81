// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package store

import "time"

// --- Memory types ---

// Platform identifies the chat platform a memory was captured from.
type Platform string

const (
	PlatformChatGPT Platform = "chatgpt"
	PlatformClaude  Platform = "claude"
	PlatformGemini  Platform = "gemini"
	PlatformSlack   Platform = "slack"
	PlatformDiscord Platform = "discord"
	PlatformWeb     Platform = "web"
	PlatformOther   Platform = "other"
)

// Platforms lists every known platform in stable order.
func Platforms() []Platform {
	return []Platform{
		PlatformChatGPT, PlatformClaude, PlatformGemini,
		PlatformSlack, PlatformDiscord, PlatformWeb, PlatformOther,
	}
}

// ConversationType categorizes the captured snippet.
type ConversationType string

const (
	TypeQuestion ConversationType = "question"
	TypeDecision ConversationType = "decision"
	TypeFact     ConversationType = "fact"
	TypeCode     ConversationType = "code"
	TypeOther    ConversationType = "other"
)

// ConversationTypes lists every known conversation type in stable order.
func ConversationTypes() []ConversationType {
	return []ConversationType{TypeQuestion, TypeDecision, TypeFact, TypeCode, TypeOther}
}

// MemoryStatus represents the lifecycle state of a memory record.
type MemoryStatus string

const (
	MemoryStatusActive  MemoryStatus = "active"
	MemoryStatusDeleted MemoryStatus = "deleted"
)

// Memory is one captured conversation snippet. Records are append-only:
// after admission only Status may change, and only from active to deleted.
type Memory struct {
	ID                 string
	AccountID          string
	Platform           Platform
	ConversationType   ConversationType
	ContentFingerprint string
	Content            string
	CapturedAt         time.Time
	AdmittedAt         time.Time
	Status             MemoryStatus
}

// --- Quota types ---

// QuotaWindow is the per-account admission counter for one UTC calendar day.
// Date is the day formatted as 2006-01-02.
type QuotaWindow struct {
	AccountID string
	Date      string
	Count     int
}

// DayKey formats t's UTC calendar day the way quota windows and by-day
// aggregate buckets key it.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// --- Audit types ---

// AuditOutcome is the terminal state an ingest event reached.
type AuditOutcome string

const (
	AuditAdmitted      AuditOutcome = "admitted"
	AuditDuplicate     AuditOutcome = "duplicate"
	AuditQuotaExceeded AuditOutcome = "quota_exceeded"
	AuditStorageError  AuditOutcome = "storage_error"
	AuditDeleted       AuditOutcome = "deleted"
)

// AuditEntry records one terminal ingest outcome for operational visibility.
type AuditEntry struct {
	ID          string
	Timestamp   time.Time
	AccountID   string
	MemoryID    string
	Fingerprint string
	Platform    Platform
	Outcome     AuditOutcome
	Reason      string
}

// AuditFilter narrows an audit log query. Zero values match everything.
type AuditFilter struct {
	AccountID string
	Outcome   AuditOutcome
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// --- Listing types ---

// RecentCursor is the keyset position of the last row already returned,
// newest-first by (AdmittedAt, ID).
type RecentCursor struct {
	AdmittedAt time.Time
	ID         string
}

// ListOpts bounds a recent-memories page.
type ListOpts struct {
	Limit  int
	Cursor *RecentCursor
}
