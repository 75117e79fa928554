package policy

import (
	"time"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
)

const (
	// DefaultLimit is the number of concurrent active borrowings allowed per user.
	DefaultLimit = 5
	// DefaultLoanPeriod is applied when a borrowing is created.
	DefaultLoanPeriod = 14 * 24 * time.Hour
)

// Policy holds circulation rule constants.
type Policy struct {
	Limit      int
	LoanPeriod time.Duration
}

func New(limit int, loanPeriod time.Duration) Policy {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return Policy{Limit: limit, LoanPeriod: loanPeriod}
}

// Snapshot is the borrower state read within the same transaction that applies
// the borrow, so the decision cannot be stale.
type Snapshot struct {
	AvailableCopies int
	ActiveCount     int
	HasOverdue      bool
	HasActiveCopy   bool
}

// CanBorrow decides eligibility. Check order is fixed:
// availability, limit, overdue block, duplicate hold. First refusal wins.
func (p Policy) CanBorrow(s Snapshot) error {
	if s.AvailableCopies <= 0 {
		return errs.Reject(errs.NoCopiesAvailable, "no copies left")
	}
	if s.ActiveCount >= p.Limit {
		return errs.Reject(errs.LimitReached, "borrowings limit reached (%d)", p.Limit)
	}
	if s.HasOverdue {
		return errs.Reject(errs.OverdueBlock, "overdue borrowings detected")
	}
	if s.HasActiveCopy {
		return errs.Reject(errs.AlreadyHolding, "book already borrowed")
	}
	return nil
}

// DueAt computes the due date of a borrowing created at now.
func (p Policy) DueAt(now time.Time) time.Time {
	return now.UTC().Add(p.LoanPeriod)
}

// DeriveStatus computes a borrowing status at now. Timestamps compare in UTC.
func DeriveStatus(b model.Borrowing, now time.Time) model.Status {
	if b.ReturnedAt != nil {
		return model.StatusReturned
	}
	if b.DueAt.UTC().Before(now.UTC()) {
		return model.StatusOverdue
	}
	return model.StatusActive
}

// ValidateDueDate accepts only due dates strictly after now.
func ValidateDueDate(candidate, now time.Time) error {
	if candidate.IsZero() {
		return errs.Reject(errs.MissingDate, "missing due date")
	}
	if !candidate.UTC().After(now.UTC()) {
		return errs.Reject(errs.PastDate, "due date must be after %s", now.UTC().Format(time.RFC3339))
	}
	return nil
}
