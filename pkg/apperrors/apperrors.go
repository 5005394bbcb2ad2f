// Package apperrors defines the error-kind taxonomy shared by every core
// component. Components never return bare errors for conditions the
// scheduler or moderation refiner must branch on; they wrap with Kind so
// callers can classify via errors.As instead of string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind tags an error with the handling policy it requires (spec §7).
type Kind string

const (
	// InvalidArgument covers a bad prompt, wrong dimension, or an
	// out-of-range parameter. Returned to the caller; never retried.
	InvalidArgument Kind = "invalid_argument"

	// ContentPolicy means a provider refused on policy grounds. Handed
	// to the moderation refiner for bounded retry with rewriting.
	ContentPolicy Kind = "content_policy"

	// ContentPolicyExhausted means the moderation refiner's retry
	// budget ran out. The candidate is marked failed; the iteration
	// continues.
	ContentPolicyExhausted Kind = "content_policy_exhausted"

	// ServiceUnavailable means the provider is unreachable (connection
	// refused, process absent). The GPU coordinator gets one restart
	// attempt unless STOP_LOCK is present.
	ServiceUnavailable Kind = "service_unavailable"

	// Timeout means a call exceeded its per-call budget.
	Timeout Kind = "timeout"

	// ParseFailure means upstream returned malformed structured
	// output. Callers fall back to a rule-based path where one exists.
	ParseFailure Kind = "parse_failure"

	// ComparisonFailure means a single pairwise VLM comparison failed.
	// Recorded on the ranking engine's error list; never aborts
	// ranking unless gracefulDegradation is false.
	ComparisonFailure Kind = "comparison_failure"

	// Cancelled means the host cancelled the session. The scheduler
	// stops at the next iteration boundary.
	Cancelled Kind = "cancelled"

	// Fatal means the GPU coordinator could not obtain the lock, or
	// the session directory is unwritable. Aborts the session.
	Fatal Kind = "fatal"
)

// Error wraps an underlying cause with a Kind and a component-supplied
// message. It implements Unwrap so errors.Is/errors.As see through it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error around cause. If cause is nil, Wrap returns nil so
// callers can write `return apperrors.Wrap(kind, msg, err)` unconditionally.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ok=false if err does not
// wrap an *Error.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
