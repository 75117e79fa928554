package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/circulation/internal/policy"
)

var borrowingColumns = []string{
	"id", "borrowing_uid", "user_id", "book_id", "borrowed_at", "due_at", "returned_at",
}

// CreateBorrowing applies the whole borrow unit in one transaction: the user and
// book rows are locked, the eligibility snapshot is read under those locks, decide
// is consulted, and only then are the borrowing insert and the copy decrement
// applied. The user lock serializes concurrent borrows by one user across
// different books, so the active-loan count cannot be read stale; the book lock
// does the same for the copy counter. Lock order is user then book everywhere.
// A guarded update that still misses surfaces as ErrInvariant.
func (r *repository) CreateBorrowing(ctx context.Context, userID, bookID int, borrowedAt, dueAt time.Time, decide func(policy.Snapshot) error) (model.Borrowing, error) {
	var created model.Borrowing
	err := r.withinTx(ctx, func(tx *sqlx.Tx) error {
		var locked int
		if err := tx.QueryRowContext(ctx,
			`select id from users where id = $1 for update`, userID).
			Scan(&locked); err != nil {
			return wrapNoRows(err)
		}

		var available int
		err := tx.QueryRowContext(ctx,
			`select available_copies from books where id = $1 for update`, bookID).
			Scan(&available)
		if err != nil {
			return wrapNoRows(err)
		}

		var snap policy.Snapshot
		snap.AvailableCopies = available
		if err := tx.QueryRowContext(ctx,
			`select count(*) from borrowings where user_id = $1 and returned_at is null`, userID).
			Scan(&snap.ActiveCount); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`select exists (
				select 1 from borrowings
				where user_id = $1 and returned_at is null and due_at < $2
			)`, userID, borrowedAt).
			Scan(&snap.HasOverdue); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`select exists (
				select 1 from borrowings
				where user_id = $1 and book_id = $2 and returned_at is null
			)`, userID, bookID).
			Scan(&snap.HasActiveCopy); err != nil {
			return err
		}

		if err := decide(snap); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`update books set available_copies = available_copies - 1
			where id = $1 and available_copies > 0`, bookID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Wrap(errs.ErrInvariant, "copy decrement missed")
		}

		q, args, err := qb.Insert(borrowingsTableName).
			Columns("borrowing_uid", "user_id", "book_id", "borrowed_at", "due_at").
			Values(uuid.New(), userID, bookID, borrowedAt, dueAt).
			Suffix("returning *").
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &created, q, args...); err != nil {
			if isUniqueViolation(err) {
				// duplicate-hold backstop, two borrows raced past the snapshot
				return errors.Wrap(errs.ErrInvariant, "duplicate active borrowing")
			}
			r.log.Error("CreateBorrowing", zap.String("q", q), zap.Any("args", args))
			return err
		}
		return nil
	})
	if err != nil {
		return model.Borrowing{}, err
	}
	return created, nil
}

// ReturnBorrowing sets returned_at and gives the copy back in one transaction.
func (r *repository) ReturnBorrowing(ctx context.Context, borrowingUid string, returnedAt time.Time) (model.Borrowing, error) {
	var returned model.Borrowing
	err := r.withinTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &returned,
			`update borrowings set returned_at = $2
			where borrowing_uid = $1 and returned_at is null
			returning *`, borrowingUid, returnedAt)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			// either missing or already returned
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`select exists (select 1 from borrowings where borrowing_uid = $1)`, borrowingUid).
				Scan(&exists); err != nil {
				return err
			}
			if exists {
				return errs.ErrAlreadyReturned
			}
			return errs.ErrNotFound
		}

		res, err := tx.ExecContext(ctx,
			`update books set available_copies = available_copies + 1
			where id = $1 and available_copies < total_copies`, returned.BookID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.Wrap(errs.ErrInvariant, "copy increment missed")
		}
		return nil
	})
	if err != nil {
		return model.Borrowing{}, err
	}
	return returned, nil
}

func (r *repository) GetBorrowing(ctx context.Context, borrowingUid string) (model.Borrowing, error) {
	q, args, err := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		Where(sq.Eq{"borrowing_uid": borrowingUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	var b model.Borrowing
	if err := r.db.GetContext(ctx, &b, q, args...); err != nil {
		return model.Borrowing{}, wrapNoRows(err)
	}
	return b, nil
}

func (r *repository) selectBorrowings(ctx context.Context, conds ...sq.Sqlizer) ([]model.Borrowing, error) {
	q := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		OrderBy("id")
	for _, cond := range conds {
		q = q.Where(cond)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.Borrowing
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListBorrowings(ctx context.Context) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx)
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.Eq{"user_id": userID})
}

func (r *repository) ListActiveByUser(ctx context.Context, userID int) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.Eq{"user_id": userID}, sq.Eq{"returned_at": nil})
}

func (r *repository) ListByBook(ctx context.Context, bookID int) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.Eq{"book_id": bookID})
}

func (r *repository) ListActive(ctx context.Context) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.Eq{"returned_at": nil})
}

func (r *repository) ListReturned(ctx context.Context) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.NotEq{"returned_at": nil})
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]model.Borrowing, error) {
	return r.selectBorrowings(ctx, sq.Eq{"returned_at": nil}, sq.Lt{"due_at": asOf})
}

func (r *repository) CountActiveByUser(ctx context.Context, userID int) (int, error) {
	q := `
	select count(*) from borrowings
	where user_id = $1 and returned_at is null
`
	var count int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) HasOverdue(ctx context.Context, userID int, asOf time.Time) (bool, error) {
	q := `
	select exists (
		select 1 from borrowings
		where user_id = $1 and returned_at is null and due_at < $2
	)
`
	var has bool
	if err := r.db.QueryRowContext(ctx, q, userID, asOf).Scan(&has); err != nil {
		return false, err
	}
	return has, nil
}

func (r *repository) HasActiveCopy(ctx context.Context, userID, bookID int) (bool, error) {
	q := `
	select exists (
		select 1 from borrowings
		where user_id = $1 and book_id = $2 and returned_at is null
	)
`
	var has bool
	if err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&has); err != nil {
		return false, err
	}
	return has, nil
}

func (r *repository) UpdateDueDate(ctx context.Context, borrowingUid string, dueAt time.Time) (model.Borrowing, error) {
	var b model.Borrowing
	err := r.db.GetContext(ctx, &b,
		`update borrowings set due_at = $2
		where borrowing_uid = $1 and returned_at is null
		returning *`, borrowingUid, dueAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, err
		}
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`select exists (select 1 from borrowings where borrowing_uid = $1)`, borrowingUid).
			Scan(&exists); err != nil {
			return model.Borrowing{}, err
		}
		if exists {
			return model.Borrowing{}, errs.ErrAlreadyReturned
		}
		return model.Borrowing{}, errs.ErrNotFound
	}
	return b, nil
}

func (r *repository) DeleteBorrowing(ctx context.Context, borrowingUid string) error {
	q, args, err := qb.Delete(borrowingsTableName).
		Where(sq.Eq{"borrowing_uid": borrowingUid}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByUser removes borrowing history for a user. Copy counts are not
// reconciled for any active rows, active borrowings should be returned first.
func (r *repository) DeleteByUser(ctx context.Context, userID int) (int64, error) {
	q, args, err := qb.Delete(borrowingsTableName).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByBook removes borrowing history for a book, same caveat as DeleteByUser.
func (r *repository) DeleteByBook(ctx context.Context, bookID int) (int64, error) {
	q, args, err := qb.Delete(borrowingsTableName).
		Where(sq.Eq{"book_id": bookID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
