// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/memlayer-dev/memlayer/internal/store"
)

// Compile-time interface checks.
var (
	_ store.MemoryStore = (*Store)(nil)
	_ store.AuditStore  = (*auditStore)(nil)
)

// Store implements store.MemoryStore backed by a single SQLite database
// holding the memories, quota_windows, and ingest_audit tables.
type Store struct {
	db    *sql.DB
	audit *auditStore
}

// Open opens (or creates) a SQLite database at dbPath and initialises the
// memories, quota_windows, and ingest_audit tables.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening memlayer db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging memlayer db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating memlayer db: %w", err)
	}

	return &Store{db: db, audit: &auditStore{db: db}}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS memories (
	id                  TEXT PRIMARY KEY,
	account_id          TEXT NOT NULL,
	platform            TEXT NOT NULL,
	conversation_type   TEXT NOT NULL,
	content_fingerprint TEXT NOT NULL,
	content             TEXT NOT NULL DEFAULT '',
	captured_at         TEXT NOT NULL DEFAULT '',
	admitted_at         TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'active'
);

CREATE INDEX IF NOT EXISTS idx_memories_account_admitted
	ON memories(account_id, admitted_at DESC, id DESC);

-- Dedup invariant: at most one active memory per (account, fingerprint).
-- Deleted rows fall out of the index, so their fingerprint becomes
-- available again.
CREATE UNIQUE INDEX IF NOT EXISTS ux_memories_active_fingerprint
	ON memories(account_id, content_fingerprint) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS quota_windows (
	account_id TEXT NOT NULL,
	date       TEXT NOT NULL,
	count      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, date)
);

CREATE TABLE IF NOT EXISTS ingest_audit (
	id          TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	memory_id   TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	platform    TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ingest_audit_account   ON ingest_audit(account_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_ingest_audit_outcome   ON ingest_audit(outcome);
`
	_, err := db.Exec(ddl)
	return err
}

// Audit returns the ingest audit sub-store.
func (s *Store) Audit() store.AuditStore { return s.audit }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Insert persists a memory and bumps its admission day's quota window in one
// transaction, so the window count never drifts from the durable rows.
func (s *Store) Insert(ctx context.Context, mem *store.Memory) error {
	if err := mem.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx for memory %s: %w", mem.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertMemory = `INSERT INTO memories
	(id, account_id, platform, conversation_type, content_fingerprint, content, captured_at, admitted_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertMemory,
		mem.ID, mem.AccountID,
		string(mem.Platform), string(mem.ConversationType),
		mem.ContentFingerprint, mem.Content,
		formatTime(mem.CapturedAt), formatTime(mem.AdmittedAt),
		string(mem.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("memory %s fingerprint %s: %w", mem.ID, mem.ContentFingerprint, store.ErrConflict)
		}
		return fmt.Errorf("inserting memory %s: %w", mem.ID, err)
	}

	const bumpWindow = `INSERT INTO quota_windows (account_id, date, count)
VALUES (?, ?, 1)
ON CONFLICT(account_id, date) DO UPDATE SET count = count + 1`

	if _, err := tx.ExecContext(ctx, bumpWindow, mem.AccountID, store.DayKey(mem.AdmittedAt)); err != nil {
		return fmt.Errorf("bumping quota window for %s: %w", mem.AccountID, err)
	}

	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, accountID, id string) (*store.Memory, error) {
	const q = `SELECT id, account_id, platform, conversation_type, content_fingerprint, content, captured_at, admitted_at, status
FROM memories WHERE account_id = ? AND id = ?`

	mem, err := scanMemory(s.db.QueryRowContext(ctx, q, accountID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("memory %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting memory %s: %w", id, err)
	}
	return mem, nil
}

// SoftDelete flips an active memory to deleted and releases its slot in the
// admission day's quota window, in one transaction.
func (s *Store) SoftDelete(ctx context.Context, accountID, id string) (*store.Memory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning tx for delete %s: %w", id, err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE memories SET status = ? WHERE account_id = ? AND id = ? AND status = ?`,
		string(store.MemoryStatusDeleted), accountID, id, string(store.MemoryStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("deleting memory %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows for memory %s: %w", id, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("active memory %s: %w", id, store.ErrNotFound)
	}

	const q = `SELECT id, account_id, platform, conversation_type, content_fingerprint, content, captured_at, admitted_at, status
FROM memories WHERE account_id = ? AND id = ?`

	mem, err := scanMemory(tx.QueryRowContext(ctx, q, accountID, id))
	if err != nil {
		return nil, fmt.Errorf("reading back memory %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE quota_windows SET count = count - 1 WHERE account_id = ? AND date = ? AND count > 0`,
		accountID, store.DayKey(mem.AdmittedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("releasing quota window for %s: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete %s: %w", id, err)
	}
	return mem, nil
}

func (s *Store) HasActiveFingerprint(ctx context.Context, accountID, fingerprint string) (bool, error) {
	const q = `SELECT EXISTS (
	SELECT 1 FROM memories WHERE account_id = ? AND content_fingerprint = ? AND status = ?
)`

	var exists bool
	err := s.db.QueryRowContext(ctx, q, accountID, fingerprint, string(store.MemoryStatusActive)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking fingerprint for %s: %w", accountID, err)
	}
	return exists, nil
}

func (s *Store) CountAdmitted(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	q := `SELECT COUNT(*) FROM memories WHERE account_id = ? AND status = ?`
	args := []any{accountID, string(store.MemoryStatusActive)}

	if !from.IsZero() {
		q += ` AND admitted_at >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		q += ` AND admitted_at < ?`
		args = append(args, formatTime(to))
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting memories for %s: %w", accountID, err)
	}
	return count, nil
}

func (s *Store) QuotaWindow(ctx context.Context, accountID, date string) (*store.QuotaWindow, error) {
	const q = `SELECT count FROM quota_windows WHERE account_id = ? AND date = ?`

	w := &store.QuotaWindow{AccountID: accountID, Date: date}
	err := s.db.QueryRowContext(ctx, q, accountID, date).Scan(&w.Count)
	if err == sql.ErrNoRows {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting quota window %s/%s: %w", accountID, date, err)
	}
	return w, nil
}

func (s *Store) ListRecent(ctx context.Context, accountID string, opts store.ListOpts) ([]*store.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT id, account_id, platform, conversation_type, content_fingerprint, content, captured_at, admitted_at, status
FROM memories WHERE account_id = ? AND status = ?`
	args := []any{accountID, string(store.MemoryStatusActive)}

	if opts.Cursor != nil {
		q += ` AND (admitted_at < ? OR (admitted_at = ? AND id < ?))`
		ts := formatTime(opts.Cursor.AdmittedAt)
		args = append(args, ts, ts, opts.Cursor.ID)
	}

	q += ` ORDER BY admitted_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recent memories for %s: %w", accountID, err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	return scanMemories(rows)
}

func (s *Store) ScanActive(ctx context.Context, accountID string, fn func(*store.Memory) error) error {
	const q = `SELECT id, account_id, platform, conversation_type, content_fingerprint, content, captured_at, admitted_at, status
FROM memories WHERE account_id = ? AND status = ?
ORDER BY admitted_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, accountID, string(store.MemoryStatusActive))
	if err != nil {
		return fmt.Errorf("scanning active memories for %s: %w", accountID, err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return fmt.Errorf("scanning memory row: %w", err)
		}
		if err := fn(mem); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM memories ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close() //nolint:errcheck // error on read-path close is not actionable

	var accounts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, id)
	}
	return accounts, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for memory scans.
type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*store.Memory, error) {
	var mem store.Memory
	var platform, convType, capturedAt, admittedAt, status string

	if err := row.Scan(
		&mem.ID, &mem.AccountID, &platform, &convType,
		&mem.ContentFingerprint, &mem.Content,
		&capturedAt, &admittedAt, &status,
	); err != nil {
		return nil, err
	}

	mem.Platform = store.Platform(platform)
	mem.ConversationType = store.ConversationType(convType)
	mem.Status = store.MemoryStatus(status)
	mem.CapturedAt = parseTime(capturedAt)
	mem.AdmittedAt = parseTime(admittedAt)
	return &mem, nil
}

func scanMemories(rows *sql.Rows) ([]*store.Memory, error) {
	var mems []*store.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		mems = append(mems, mem)
	}
	return mems, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// timeLayout is RFC3339 UTC with fixed nanosecond width so that string
// comparison in SQL matches chronological order. RFC3339Nano trims trailing
// zeros, which breaks keyset pagination on the admitted_at column.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime serialises a time.Time for storage.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
