// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := memerr.New(
		memerr.CodeIngestMemoryDuplicate,
		"memory already captured",
		memerr.FieldAccountID("acct-123"),
		memerr.Field("fingerprint", "abc"),
	)

	require.Error(t, err)
	assert.Equal(t, memerr.CodeIngestMemoryDuplicate, memerr.CodeOf(err))
	assert.True(t, memerr.HasCode(err, memerr.CodeIngestMemoryDuplicate))

	fields := memerr.FieldsOf(err)
	assert.Equal(t, "acct-123", fields["account_id"])
	assert.Equal(t, "abc", fields["fingerprint"])
}

func TestNewWithNoFields(t *testing.T) {
	err := memerr.New(memerr.CodeStoreDatabaseFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, memerr.CodeStoreDatabaseFailure, memerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := memerr.Errorf(memerr.CodeQueryScopeInvalid, "unknown totals scope %q", "fortnight")
	require.Error(t, err)
	assert.Equal(t, memerr.CodeQueryScopeInvalid, memerr.CodeOf(err))
	assert.Contains(t, err.Error(), `unknown totals scope "fortnight"`)
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := memerr.Errorf(memerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, memerr.CodeStoreDatabaseFailure, memerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := memerr.Wrap(
		root,
		memerr.CodeStoreMemoryNotFound,
		"loading memory",
		memerr.FieldMemoryID("mem-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, memerr.CodeStoreMemoryNotFound, memerr.CodeOf(err))
	assert.True(t, memerr.IsNotFound(err))
	assert.Equal(t, "mem-42", memerr.FieldsOf(err)["memory_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, memerr.Wrap(nil, memerr.CodeStoreDatabaseFailure, "no-op"))
	assert.NoError(t, memerr.Wrapf(nil, memerr.CodeStoreDatabaseFailure, "no-op %d", 1))
}

func TestWithAddsFieldsAndKeepsCode(t *testing.T) {
	base := memerr.New(memerr.CodeIngestQuotaExceeded, "daily memory quota exceeded")
	enriched := memerr.With(base, memerr.FieldAccountID("acct-9"))

	require.Error(t, enriched)
	assert.Equal(t, memerr.CodeIngestQuotaExceeded, memerr.CodeOf(enriched))
	assert.Equal(t, "acct-9", memerr.FieldsOf(enriched)["account_id"])
}

// ---------------------------------------------------------------------------
// Classification predicates
// ---------------------------------------------------------------------------

func TestClassificationPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"duplicate", memerr.New(memerr.CodeIngestMemoryDuplicate, "dup"), memerr.IsDuplicate},
		{"quota", memerr.New(memerr.CodeIngestQuotaExceeded, "full"), memerr.IsQuotaExceeded},
		{"not found", memerr.New(memerr.CodeStoreMemoryNotFound, "gone"), memerr.IsNotFound},
		{"conflict", memerr.New(memerr.CodeStoreFingerprintConflict, "raced"), memerr.IsConflict},
		{"invalid input", memerr.New(memerr.CodeIngestInputInvalid, "empty"), memerr.IsInvalidInput},
		{"storage failure", memerr.New(memerr.CodeIngestStorageFailure, "io"), memerr.IsStorageFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestPredicatesRejectOtherCodes(t *testing.T) {
	err := memerr.New(memerr.CodeServerInternalFailure, "boom")
	assert.False(t, memerr.IsDuplicate(err))
	assert.False(t, memerr.IsQuotaExceeded(err))
	assert.False(t, memerr.IsNotFound(err))
	assert.False(t, memerr.IsStorageFailure(err))
}

// ---------------------------------------------------------------------------
// HTTPStatus
// ---------------------------------------------------------------------------

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code memerr.Code
		want int
	}{
		{memerr.CodeStoreMemoryNotFound, http.StatusNotFound},
		{memerr.CodeIngestMemoryDuplicate, http.StatusConflict},
		{memerr.CodeStoreFingerprintConflict, http.StatusConflict},
		{memerr.CodeIngestInputInvalid, http.StatusBadRequest},
		{memerr.CodeConfigValidateInvalidValue, http.StatusBadRequest},
		{memerr.CodeIngestQuotaExceeded, http.StatusTooManyRequests},
		{memerr.CodeIngestStorageFailure, http.StatusBadGateway},
		{memerr.CodeIngestFailed, http.StatusBadGateway},
		{memerr.CodeServerInternalFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := memerr.New(tt.code, "test")
			assert.Equal(t, tt.want, memerr.HTTPStatus(err))
		})
	}
}

func TestCodeOfNonOopsError(t *testing.T) {
	assert.Equal(t, memerr.Code(""), memerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, memerr.Code(""), memerr.CodeOf(nil))
	assert.False(t, memerr.HasCode(nil, memerr.CodeIngestMemoryDuplicate))
}
