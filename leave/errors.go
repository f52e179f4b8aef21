/*
errors.go - Centralized error types for the leave core

ERROR CATEGORIES:
  1. Validation errors  - policy/shape violations, always surfaced to callers
  2. Remote errors      - backend unreachable, recovered via the local cache
  3. Cache errors       - corrupt stored payload, degraded to an empty set

USAGE:
  if errors.Is(err, leave.ErrRemoteUnavailable) { ... }

  var verr *leave.ValidationError
  if errors.As(err, &verr) {
      for _, v := range verr.Violations { ... }
  }
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRemoteUnavailable marks a network or API failure. The store recovers
	// from it by falling back to the local cache; it is logged, not surfaced,
	// unless the cache path fails too.
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrNotFound is returned when no request matches the given identifier.
	ErrNotFound = errors.New("leave request not found")

	// ErrCacheCorrupted marks an unparsable cache payload. The store treats
	// the collection as empty rather than crashing.
	ErrCacheCorrupted = errors.New("cache payload corrupted")

	// ErrInvalidTransition is returned when a status update targets a request
	// that has already been resolved to a different status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status update names a status other
	// than approved or rejected.
	ErrInvalidStatus = errors.New("status must be approved or rejected")
)

// =============================================================================
// VALIDATION ERROR - Carries the full list of violations
// =============================================================================

// Violation is a single failed validation rule.
type Violation struct {
	Code    string // e.g. "insufficient_balance", "past_start"
	Message string
}

// ValidationError aggregates every violated rule for a submission. It is
// always surfaced synchronously, before any network attempt.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether a violation with the given code is present.
func (e *ValidationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CacheError wraps a cache failure with the operation that caused it.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }
func (e *CacheError) Unwrap() error { return e.Err }
