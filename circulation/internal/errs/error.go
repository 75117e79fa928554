package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyReturned = errors.New("borrowing is already returned")
	ErrConflict        = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrInvariant means a consistency check failed after policy checks passed,
	// e.g. the guarded copy-count update missed under a lost race.
	ErrInvariant = errors.New("invariant violation")
)

// Reason is a policy refusal code.
type Reason string

const (
	NoCopiesAvailable Reason = "NO_COPIES_AVAILABLE"
	LimitReached      Reason = "LIMIT_REACHED"
	OverdueBlock      Reason = "OVERDUE_BLOCK"
	AlreadyHolding    Reason = "ALREADY_HOLDING"
	MissingDate       Reason = "MISSING_DATE"
	PastDate          Reason = "PAST_DATE"
)

// RejectError is a business-rule refusal from the policy engine.
type RejectError struct {
	Reason  Reason
	Message string
}

func (e *RejectError) Error() string {
	return e.Message
}

func Reject(reason Reason, format string, args ...any) *RejectError {
	return &RejectError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsReject unwraps err into a RejectError, if it is one.
func AsReject(err error) (*RejectError, bool) {
	var re *RejectError
	ok := errors.As(err, &re)
	return re, ok
}
