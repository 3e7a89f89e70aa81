// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIngestMemoryDuplicate Code = "ingest.memory.duplicate"
	CodeIngestQuotaExceeded   Code = "ingest.quota.exceeded"
	CodeIngestStorageFailure  Code = "ingest.storage.failure"
	CodeIngestFailed          Code = "ingest.pipeline.failure"
	CodeIngestInputInvalid    Code = "ingest.input.invalid"

	CodeStoreMemoryNotFound      Code = "store.memory.get.not_found"
	CodeStoreFingerprintConflict Code = "store.memory.fingerprint.conflict"
	CodeStoreDatabaseFailure     Code = "store.database.failure"
	CodeStoreInvalidInput        Code = "store.invalid_input"

	CodeAggregateInconsistent   Code = "aggregate.buckets.inconsistent"
	CodeAggregateRebuildFailure Code = "aggregate.rebuild.failure"

	CodeQueryCursorInvalid Code = "query.cursor.invalid"
	CodeQueryScopeInvalid  Code = "query.scope.invalid"
	CodeQueryReadFailure   Code = "query.read.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldAccountID(value string) Attr {
	return Field("account_id", value)
}

func FieldMemoryID(value string) Attr {
	return Field("memory_id", value)
}

func FieldFingerprint(value string) Attr {
	return Field("fingerprint", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsDuplicate reports whether err marks a capture whose content is already
// recorded as an active memory for the account.
func IsDuplicate(err error) bool {
	return reason(CodeOf(err)) == "duplicate"
}

// IsQuotaExceeded reports whether err marks an admission rejected because the
// account's daily quota window is full.
func IsQuotaExceeded(err error) bool {
	return reason(CodeOf(err)) == "exceeded"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsStorageFailure reports whether err marks a transient persistence failure
// that the ingestion pipeline may retry.
func IsStorageFailure(err error) bool {
	code := CodeOf(err)
	return reason(code) == "failure" && strings.Contains(string(code), "storage")
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDuplicate(err) || IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsQuotaExceeded(err):
		return http.StatusTooManyRequests
	case IsStorageFailure(err), HasCode(err, CodeIngestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
