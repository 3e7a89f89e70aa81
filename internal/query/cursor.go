// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package query

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// encodeCursor packs the last-seen (AdmittedAt, ID) pair into an opaque
// token. Clients must treat the token as a black box.
func encodeCursor(c store.RecentCursor) string {
	raw := fmt.Sprintf("%s|%s", c.AdmittedAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor unpacks a cursor token. A malformed token is an invalid-input
// error, not a server failure.
func decodeCursor(token string) (*store.RecentCursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, memerr.Wrap(err, memerr.CodeQueryCursorInvalid, "decoding cursor")
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, memerr.New(memerr.CodeQueryCursorInvalid, "malformed cursor")
	}

	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, memerr.Wrap(err, memerr.CodeQueryCursorInvalid, "parsing cursor timestamp")
	}

	return &store.RecentCursor{AdmittedAt: ts, ID: parts[1]}, nil
}
