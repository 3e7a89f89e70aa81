// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memlayer-dev/memlayer/internal/store"
)

// testDir creates a temp directory for a test and returns cleanup func.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "memlayer-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// testMemory builds a valid active memory admitted at the given time.
func testMemory(id, accountID, fingerprint string, admittedAt time.Time) *store.Memory {
	return &store.Memory{
		ID:                 id,
		AccountID:          accountID,
		Platform:           store.PlatformSlack,
		ConversationType:   store.TypeFact,
		ContentFingerprint: fingerprint,
		Content:            "content for " + id,
		CapturedAt:         admittedAt.Add(-time.Second),
		AdmittedAt:         admittedAt,
		Status:             store.MemoryStatusActive,
	}
}
