// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalises captured content before fingerprinting: Unicode
// lowercase with all whitespace runs collapsed to single spaces and leading
// and trailing whitespace removed. Two captures of the same snippet that
// differ only in casing or spacing produce the same fingerprint.
func Normalize(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

// Fingerprint returns the stable content fingerprint: hex SHA-256 of the
// normalized content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}
