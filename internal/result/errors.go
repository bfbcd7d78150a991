// Package result provides a kind-tagged error used across the
// container supervisor and tool dispatcher so that callers can branch
// on a failure's cause with errors.Is/errors.As instead of matching
// message strings.
package result

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a failure so callers can branch on cause
// without string-matching messages.
type ErrorKind string

const (
	KindContainerLimitReached    ErrorKind = "container_limit_reached"
	KindContainerNotFound        ErrorKind = "container_not_found"
	KindContainerCreationFailed  ErrorKind = "container_creation_failed"
	KindContainerExecutionFailed ErrorKind = "container_execution_failed"
	KindContainerDestructionFailed ErrorKind = "container_destruction_failed"
	KindPromptTooLarge           ErrorKind = "prompt_too_large"
	KindModelUpstreamTransient   ErrorKind = "model_upstream_transient"
	KindModelUpstreamFatal       ErrorKind = "model_upstream_fatal"
	KindToolUnknown              ErrorKind = "tool_unknown"
	KindToolArgumentInvalid      ErrorKind = "tool_argument_invalid"
	KindSessionNotFound          ErrorKind = "session_not_found"
	KindSessionStateInvalid      ErrorKind = "session_state_invalid"
	KindTaskNotFound             ErrorKind = "task_not_found"
	KindPlanParseFailed          ErrorKind = "plan_parse_failed"
	KindInternal                 ErrorKind = "internal"
)

// Error is a kind-tagged error carrying a human-readable message and,
// where applicable, an underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// New builds an Error with the given kind and message.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error with the given kind, message, and cause.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparisons by ErrorKind: errors.Is(err, &Error{Kind: KindFoo}).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindOf extracts the ErrorKind from err, returning KindInternal if err
// is not (or does not wrap) an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HasKind reports whether err is (or wraps) an *Error of the given kind.
func HasKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
