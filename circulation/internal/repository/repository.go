package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/circulation/internal/policy"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	// catalog
	GetBook(ctx context.Context, bookID int) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	ListBooks(ctx context.Context, q string, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, bookID int) error

	UserExists(ctx context.Context, userID int) (bool, error)
	GetUser(ctx context.Context, userID int) (model.User, error)

	// borrowing lifecycle, each an atomic unit with the copy-count mutation
	CreateBorrowing(ctx context.Context, userID, bookID int, borrowedAt, dueAt time.Time, decide func(policy.Snapshot) error) (model.Borrowing, error)
	ReturnBorrowing(ctx context.Context, borrowingUid string, returnedAt time.Time) (model.Borrowing, error)

	// borrowing reads
	GetBorrowing(ctx context.Context, borrowingUid string) (model.Borrowing, error)
	ListBorrowings(ctx context.Context) ([]model.Borrowing, error)
	ListByUser(ctx context.Context, userID int) ([]model.Borrowing, error)
	ListActiveByUser(ctx context.Context, userID int) ([]model.Borrowing, error)
	ListByBook(ctx context.Context, bookID int) ([]model.Borrowing, error)
	ListActive(ctx context.Context) ([]model.Borrowing, error)
	ListReturned(ctx context.Context) ([]model.Borrowing, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]model.Borrowing, error)
	CountActiveByUser(ctx context.Context, userID int) (int, error)
	HasOverdue(ctx context.Context, userID int, asOf time.Time) (bool, error)
	HasActiveCopy(ctx context.Context, userID, bookID int) (bool, error)

	UpdateDueDate(ctx context.Context, borrowingUid string, dueAt time.Time) (model.Borrowing, error)
	DeleteBorrowing(ctx context.Context, borrowingUid string) error
	DeleteByUser(ctx context.Context, userID int) (int64, error)
	DeleteByBook(ctx context.Context, bookID int) (int64, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName      = `books`
	usersTableName      = `users`
	borrowingsTableName = `borrowings`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// withinTx runs fn in a transaction, rolling back on any error or panic so a
// failed unit leaves no partial effect behind.
func (r *repository) withinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

func (r *repository) UserExists(ctx context.Context, userID int) (bool, error) {
	q, args, err := qb.Select("1").
		From(usersTableName).
		Where(sq.Eq{"id": userID}).
		Prefix("select exists (").Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *repository) GetUser(ctx context.Context, userID int) (model.User, error) {
	q, args, err := qb.Select("id", "username", "email", "created_at").
		From(usersTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := r.db.GetContext(ctx, &user, q, args...); err != nil {
		return model.User{}, wrapNoRows(err)
	}
	return user, nil
}
