package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesClassificationFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
	}{
		{"config invalid", ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{"store failure", ErrCodeStoreFailure, CategoryStore, SeverityError},
		{"index unavailable", ErrCodeIndexUnavailable, CategoryIndex, SeverityWarning},
		{"lock held", ErrCodeIndexLockHeld, CategoryIndex, SeverityError},
		{"index corrupt", ErrCodeIndexCorrupt, CategoryIndex, SeverityFatal},
		{"query rejected", ErrCodeQueryRejected, CategoryQuery, SeverityError},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestMatchError_ErrorFormat(t *testing.T) {
	err := New(ErrCodeStoreFailure, "query exploded", nil)
	assert.Equal(t, "[ERR_201_STORE_FAILURE] query exploded", err.Error())
}

func TestMatchError_UnwrapChain(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := New(ErrCodeIndexRebuild, "rebuild failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestMatchError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeIndexLockHeld, "field customer.first locked", nil)
	b := New(ErrCodeIndexLockHeld, "different message", nil)
	c := New(ErrCodeIndexRebuild, "rebuild failed", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStoreFailure, nil))
}

func TestWithDetail_Chaining(t *testing.T) {
	err := New(ErrCodeIndexUnavailable, "corpus missing", nil).
		WithDetail("table", "customer").
		WithDetail("column", "last")

	assert.Equal(t, "customer", err.Details["table"])
	assert.Equal(t, "last", err.Details["column"])
}

func TestLockError_NotRetryable(t *testing.T) {
	err := LockError("field customer.first locked")

	assert.False(t, IsRetryable(err))
	assert.NotEmpty(t, err.Suggestion)
	assert.Equal(t, ErrCodeIndexLockHeld, err.Code)
}

func TestStoreError_Retryable(t *testing.T) {
	err := StoreError("busy", nil)
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable_PlainError(t *testing.T) {
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeIndexCorrupt, "bad corpus", nil)))
	assert.False(t, IsFatal(New(ErrCodeQueryRejected, "nope", nil)))
	assert.False(t, IsFatal(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeQueryEmpty, GetCode(New(ErrCodeQueryEmpty, "empty", nil)))
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
}

func TestFormatForCLI(t *testing.T) {
	err := LockError("field customer.first locked")
	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: field customer.first locked")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, ErrCodeIndexLockHeld)
}

func TestFormatForLog_IncludesDetails(t *testing.T) {
	err := New(ErrCodeStoreFailure, "boom", fmt.Errorf("root")).
		WithDetail("strategy", "phone")
	attrs := FormatForLog(err)

	assert.Equal(t, ErrCodeStoreFailure, attrs["error_code"])
	assert.Equal(t, "root", attrs["cause"])
	assert.Equal(t, "phone", attrs["detail_strategy"])
}
