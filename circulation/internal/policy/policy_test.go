package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/circulation/internal/policy"
)

func TestPolicy_CanBorrow(t *testing.T) {
	t.Parallel()
	p := policy.New(5, 14*24*time.Hour)

	var tests = []struct {
		name       string
		snapshot   policy.Snapshot
		wantReason errs.Reason
		wantOk     bool
	}{
		{
			name:     "ok",
			snapshot: policy.Snapshot{AvailableCopies: 1},
			wantOk:   true,
		},
		{
			name:       "no copies",
			snapshot:   policy.Snapshot{AvailableCopies: 0},
			wantReason: errs.NoCopiesAvailable,
		},
		{
			name: "no copies wins over limit",
			snapshot: policy.Snapshot{
				AvailableCopies: 0,
				ActiveCount:     5,
				HasOverdue:      true,
				HasActiveCopy:   true,
			},
			wantReason: errs.NoCopiesAvailable,
		},
		{
			name:       "limit reached",
			snapshot:   policy.Snapshot{AvailableCopies: 2, ActiveCount: 5},
			wantReason: errs.LimitReached,
		},
		{
			name:       "limit wins over overdue",
			snapshot:   policy.Snapshot{AvailableCopies: 2, ActiveCount: 7, HasOverdue: true},
			wantReason: errs.LimitReached,
		},
		{
			name:       "overdue block",
			snapshot:   policy.Snapshot{AvailableCopies: 2, ActiveCount: 1, HasOverdue: true},
			wantReason: errs.OverdueBlock,
		},
		{
			name:       "already holding",
			snapshot:   policy.Snapshot{AvailableCopies: 2, ActiveCount: 1, HasActiveCopy: true},
			wantReason: errs.AlreadyHolding,
		},
		{
			name:     "one below limit",
			snapshot: policy.Snapshot{AvailableCopies: 1, ActiveCount: 4},
			wantOk:   true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := p.CanBorrow(tt.snapshot)
			if tt.wantOk {
				require.NoError(t, err)
				return
			}
			re, ok := errs.AsReject(err)
			require.True(t, ok)
			require.Equal(t, tt.wantReason, re.Reason)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	p := policy.New(0, 0)
	require.Equal(t, policy.DefaultLimit, p.Limit)
	require.Equal(t, policy.DefaultLoanPeriod, p.LoanPeriod)
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	returned := now.Add(-time.Hour)

	var tests = []struct {
		name string
		b    model.Borrowing
		want model.Status
	}{
		{
			name: "active",
			b:    model.Borrowing{DueAt: now.Add(24 * time.Hour)},
			want: model.StatusActive,
		},
		{
			name: "due right now is still active",
			b:    model.Borrowing{DueAt: now},
			want: model.StatusActive,
		},
		{
			name: "overdue",
			b:    model.Borrowing{DueAt: now.Add(-time.Minute)},
			want: model.StatusOverdue,
		},
		{
			name: "returned regardless of due date",
			b:    model.Borrowing{DueAt: now.Add(-time.Minute), ReturnedAt: &returned},
			want: model.StatusReturned,
		},
		{
			name: "naive due date compared as utc",
			b:    model.Borrowing{DueAt: time.Date(2024, 5, 11, 12, 0, 0, 0, time.FixedZone("", 0))},
			want: model.StatusActive,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, policy.DeriveStatus(tt.b, now))
		})
	}
}

func TestDeriveStatus_RoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	p := policy.New(5, 14*24*time.Hour)

	b := model.Borrowing{BorrowedAt: now, DueAt: p.DueAt(now)}
	require.Equal(t, model.StatusActive, policy.DeriveStatus(b, now))

	later := now.Add(15 * 24 * time.Hour)
	require.Equal(t, model.StatusOverdue, policy.DeriveStatus(b, later))

	b.ReturnedAt = &later
	require.Equal(t, model.StatusReturned, policy.DeriveStatus(b, later.Add(time.Hour)))
}

func TestValidateDueDate(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	var tests = []struct {
		name       string
		candidate  time.Time
		wantReason errs.Reason
		wantOk     bool
	}{
		{name: "future", candidate: now.Add(time.Hour), wantOk: true},
		{name: "zero", candidate: time.Time{}, wantReason: errs.MissingDate},
		{name: "past", candidate: now.Add(-time.Hour), wantReason: errs.PastDate},
		{name: "exactly now", candidate: now, wantReason: errs.PastDate},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := policy.ValidateDueDate(tt.candidate, now)
			if tt.wantOk {
				require.NoError(t, err)
				return
			}
			re, ok := errs.AsReject(err)
			require.True(t, ok)
			require.Equal(t, tt.wantReason, re.Reason)
		})
	}
}
