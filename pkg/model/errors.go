package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a core error for programmatic handling.
type ErrorCode string

const (
	// CodeInvalidTransition indicates a lifecycle transition not in the
	// table, including any transition attempted on a terminal request.
	CodeInvalidTransition ErrorCode = "invalid_transition"

	// CodeInvalidState indicates an operation invoked on a request or slot
	// whose state violates the operation's precondition.
	CodeInvalidState ErrorCode = "invalid_state"

	// CodeInvalidArgument indicates malformed caller input.
	CodeInvalidArgument ErrorCode = "invalid_argument"

	// CodeHistoryFull indicates the rollback journal rejected a push under
	// the reject overflow policy.
	CodeHistoryFull ErrorCode = "history_full"

	// CodeNotFound indicates an unknown request, slot, or zone ID.
	CodeNotFound ErrorCode = "not_found"
)

// Error is the classified error type used across the allocation core.
// Every failure leaves the core in a well-defined, unchanged state; no
// Error is fatal to the process.
type Error struct {
	// Code is the classification for programmatic handling.
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// RequestID is the affected request, if applicable.
	RequestID string `json:"request_id,omitempty"`

	// SlotID is the affected slot, if applicable.
	SlotID string `json:"slot_id,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request=%s)", e.RequestID)
	}
	if e.SlotID != "" {
		msg += fmt.Sprintf(" (slot=%s)", e.SlotID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so sentinel-style comparisons work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithRequest attaches the affected request ID.
func (e *Error) WithRequest(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// WithSlot attaches the affected slot ID.
func (e *Error) WithSlot(slotID string) *Error {
	e.SlotID = slotID
	return e
}

// NewInvalidTransition reports a transition rejected by the table.
func NewInvalidTransition(from, to RequestState) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid transition from %s to %s", from, to),
	}
}

// NewInvalidState reports a violated operation precondition.
func NewInvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message}
}

// NewInvalidArgument reports malformed caller input.
func NewInvalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

// NewHistoryFull reports a rejected journal push.
func NewHistoryFull(capacity int) *Error {
	return &Error{
		Code:    CodeHistoryFull,
		Message: fmt.Sprintf("rollback history is full (capacity %d)", capacity),
	}
}

// NewNotFound reports an unknown ID.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
	}
}

// CodeOf extracts the error code, or "" for non-core errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidTransition reports whether err is an invalid-transition error.
func IsInvalidTransition(err error) bool { return CodeOf(err) == CodeInvalidTransition }

// IsInvalidState reports whether err is an invalid-state error.
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsInvalidArgument reports whether err is an invalid-argument error.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsHistoryFull reports whether err is a history-full error.
func IsHistoryFull(err error) bool { return CodeOf(err) == CodeHistoryFull }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
