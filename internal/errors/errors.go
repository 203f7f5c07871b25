package errors

import (
	"fmt"
)

// MatchError is the structured error type for custmatch.
// It provides rich context for error handling, logging, and user presentation.
type MatchError struct {
	// Code is the unique error code (e.g., "ERR_302_INDEX_LOCK_HELD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Index, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MatchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with MatchError.
func (e *MatchError) Is(target error) bool {
	if t, ok := target.(*MatchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *MatchError) WithDetail(key, value string) *MatchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *MatchError) WithSuggestion(suggestion string) *MatchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MatchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *MatchError {
	return &MatchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a MatchError from an existing error.
// The error's message becomes the MatchError message.
func Wrap(code string, err error) *MatchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *MatchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates a record-store error.
// One strategy's store failure must not abort sibling strategies; callers
// collect these per strategy rather than returning early.
func StoreError(message string, cause error) *MatchError {
	return New(ErrCodeStoreFailure, message, cause)
}

// IndexError creates a fuzzy-index error.
func IndexError(message string, cause error) *MatchError {
	return New(ErrCodeIndexUnavailable, message, cause)
}

// LockError creates a lock-contention error for a rebuild or append that
// could not acquire its per-field exclusive lock.
func LockError(message string) *MatchError {
	return New(ErrCodeIndexLockHeld, message, nil).
		WithSuggestion("another process is rebuilding this field; wait for it to finish")
}

// QueryError creates a query validation error.
func QueryError(message string, cause error) *MatchError {
	return New(ErrCodeQueryRejected, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *MatchError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a MatchError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if me, ok := err.(*MatchError); ok {
		return me.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if me, ok := err.(*MatchError); ok {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a MatchError.
// Returns empty string if not a MatchError.
func GetCode(err error) string {
	if me, ok := err.(*MatchError); ok {
		return me.Code
	}
	return ""
}

// GetCategory extracts the category from a MatchError.
// Returns empty string if not a MatchError.
func GetCategory(err error) Category {
	if me, ok := err.(*MatchError); ok {
		return me.Category
	}
	return ""
}
