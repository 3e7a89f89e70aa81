// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/memlayer-dev/memlayer/internal/store"
)

type auditStore struct {
	db *sql.DB
}

func (s *auditStore) Append(ctx context.Context, entry *store.AuditEntry) error {
	const q = `INSERT INTO ingest_audit (id, timestamp, account_id, memory_id, fingerprint, platform, outcome, reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		entry.ID, formatTime(entry.Timestamp), entry.AccountID, entry.MemoryID,
		entry.Fingerprint, string(entry.Platform), string(entry.Outcome), entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *auditStore) Query(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT id, timestamp, account_id, memory_id, fingerprint, platform, outcome, reason FROM ingest_audit`)

	var conditions []string
	var args []any

	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, formatTime(filter.To))
	}

	if len(conditions) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conditions, " AND "))
	}

	qb.WriteString(" ORDER BY timestamp ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying ingest audit: %w", err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var entries []*store.AuditEntry
	for rows.Next() {
		var e store.AuditEntry
		var ts, platform, outcome string
		if err := rows.Scan(
			&e.ID, &ts, &e.AccountID, &e.MemoryID,
			&e.Fingerprint, &platform, &outcome, &e.Reason,
		); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.Platform = store.Platform(platform)
		e.Outcome = store.AuditOutcome(outcome)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
