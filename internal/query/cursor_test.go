// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package query

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 10, 15, 30, 123456789, time.UTC)
	token := encodeCursor(store.RecentCursor{AdmittedAt: at, ID: "01J6XYZ"})

	pos, err := decodeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.AdmittedAt.Equal(at))
	assert.Equal(t, "01J6XYZ", pos.ID)
}

func TestDecodeCursorEmptyMeansStart(t *testing.T) {
	pos, err := decodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"no separator", base64.RawURLEncoding.EncodeToString([]byte("justtext"))},
		{"empty id", base64.RawURLEncoding.EncodeToString([]byte("2026-08-30T10:00:00Z|"))},
		{"bad timestamp", base64.RawURLEncoding.EncodeToString([]byte("yesterday|mem-1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCursor(tt.token)
			require.Error(t, err)
			assert.True(t, memerr.HasCode(err, memerr.CodeQueryCursorInvalid))
		})
	}
}
