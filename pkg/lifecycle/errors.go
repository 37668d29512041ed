package lifecycle

import (
	"errors"
	"fmt"
)

// Machine-readable error codes carried by TransitionError.
const (
	CodeNotFound            = "not_found"
	CodeDuplicateTransition = "duplicate_transition"
	CodeForbidden           = "forbidden"
	CodeConflict            = "conflict"
	CodeStorageFailure      = "storage_failure"
	CodeValidationFailed    = "validation_failed"
)

// TransitionError is the structured error reported by the transition engine.
// Code identifies the error kind; Role/From/To are populated where they are
// known and safe to surface.
type TransitionError struct {
	Code    string `json:"code"`
	Role    Role   `json:"role,omitempty"`
	From    Status `json:"from,omitempty"`
	To      Status `json:"to,omitempty"`
	Message string `json:"message"`
	cause   error
}

func (e *TransitionError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying storage error, if any.
func (e *TransitionError) Unwrap() error {
	return e.cause
}

// NewNotFound reports that no item matches the given code or id.
func NewNotFound(ref string) *TransitionError {
	return &TransitionError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("no item matches %q", ref),
	}
}

// NewDuplicateTransition reports a request to move an item to the status it
// already has.
func NewDuplicateTransition(current Status) *TransitionError {
	return &TransitionError{
		Code:    CodeDuplicateTransition,
		From:    current,
		To:      current,
		Message: fmt.Sprintf("item is already %s", current),
	}
}

// NewForbidden reports a transition the actor's role does not permit. The
// message names the role and the attempted transition so denials are
// auditable without leaking other users' data.
func NewForbidden(role Role, from, to Status) *TransitionError {
	return &TransitionError{
		Code:    CodeForbidden,
		Role:    role,
		From:    from,
		To:      to,
		Message: fmt.Sprintf("role %s may not move an item from %s to %s", role, from, to),
	}
}

// NewConflict reports that concurrent writers raced past the retry budget.
func NewConflict(from, to Status) *TransitionError {
	return &TransitionError{
		Code:    CodeConflict,
		From:    from,
		To:      to,
		Message: fmt.Sprintf("item status changed concurrently while moving from %s to %s; retry the request", from, to),
	}
}

// NewStorageFailure wraps a storage error unrelated to business rules.
func NewStorageFailure(err error) *TransitionError {
	return &TransitionError{
		Code:    CodeStorageFailure,
		Message: "storage operation failed",
		cause:   err,
	}
}

// NewValidation reports malformed input rejected before the engine runs.
func NewValidation(msg string) *TransitionError {
	return &TransitionError{
		Code:    CodeValidationFailed,
		Message: msg,
	}
}

// AsTransitionError unwraps err into a *TransitionError if one is present
// anywhere in its chain.
func AsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
