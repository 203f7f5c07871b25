// Package errors provides structured error handling for custmatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Record store errors
//   - 3XX: Fuzzy index errors
//   - 4XX: Query validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates record store errors.
	CategoryStore Category = "STORE"
	// CategoryIndex indicates fuzzy index errors.
	CategoryIndex Category = "INDEX"
	// CategoryQuery indicates query validation errors.
	CategoryQuery Category = "QUERY"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreFailure = "ERR_201_STORE_FAILURE"
	ErrCodeStoreClosed  = "ERR_202_STORE_CLOSED"
	ErrCodeStoreCorrupt = "ERR_203_STORE_CORRUPT"

	// Index errors (300-399)
	ErrCodeIndexUnavailable = "ERR_301_INDEX_UNAVAILABLE"
	ErrCodeIndexLockHeld    = "ERR_302_INDEX_LOCK_HELD"
	ErrCodeIndexRebuild     = "ERR_303_INDEX_REBUILD_FAILED"
	ErrCodeIndexCorrupt     = "ERR_304_INDEX_CORRUPT"

	// Query errors (400-499)
	ErrCodeQueryRejected = "ERR_401_QUERY_REJECTED"
	ErrCodeQueryEmpty    = "ERR_402_QUERY_EMPTY"
	ErrCodeNameUnparsed  = "ERR_403_NAME_UNPARSED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit of the numeric portion
	// (e.g., "3" from "ERR_302_INDEX_LOCK_HELD").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryIndex
	case '4':
		return CategoryQuery
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStoreCorrupt, ErrCodeIndexCorrupt:
		return SeverityFatal
	case ErrCodeIndexUnavailable:
		// A missing fuzzy corpus degrades the fuzzy tier; exact and
		// substring tiers still answer the query.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Lock contention is deliberately not retryable: rebuild/append callers
// must fail fast rather than spin on the per-field lock.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreFailure:
		return true
	default:
		return false
	}
}
