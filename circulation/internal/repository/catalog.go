package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
)

var bookColumns = []string{
	"id", "isbn", "title", "subtitle", "author", "page_count", "description",
	"language", "publisher", "published_at", "total_copies", "available_copies",
	"created_at", "updated_at",
}

func wrapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *repository) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	q, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		return model.Book{}, wrapNoRows(err)
	}
	return book, nil
}

func (r *repository) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	q, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"isbn": isbn}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		return model.Book{}, wrapNoRows(err)
	}
	return book, nil
}

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	q, args, err := qb.Insert(booksTableName).
		Columns("isbn", "title", "subtitle", "author", "page_count", "description",
			"language", "publisher", "published_at", "total_copies", "available_copies").
		Values(req.ISBN, req.Title, req.Subtitle, req.Author, req.PageCount, req.Description,
			req.Language, req.Publisher, req.PublishedAt, req.TotalCopies, req.TotalCopies).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, q, args...); err != nil {
		if isUniqueViolation(err) {
			return model.Book{}, errs.ErrConflict
		}
		r.log.Error("CreateBook", zap.String("q", q), zap.Any("args", args))
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error) {
	q := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("id")

	if search != "" {
		pattern := "%" + search + "%"
		q = q.Where(sq.Or{
			sq.ILike{"isbn": pattern},
			sq.ILike{"title": pattern},
			sq.ILike{"author": pattern},
		})
	}
	if page != 0 && size != 0 {
		q = q.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.ListBooks{}, err
	}
	r.log.Debug("ListBooks", zap.String("query", query), zap.Any("args", args))

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          page,
			PageSize:      size,
			TotalElements: len(books),
		},
		Items: books,
	}, nil
}

func (r *repository) UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error) {
	q := qb.Update(booksTableName).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": bookID}).
		Suffix("returning *")

	set := func(column string, v any) {
		q = q.Set(column, v)
	}
	if req.Title != nil {
		set("title", *req.Title)
	}
	if req.Subtitle != nil {
		set("subtitle", *req.Subtitle)
	}
	if req.Author != nil {
		set("author", *req.Author)
	}
	if req.PageCount != nil {
		set("page_count", *req.PageCount)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.Language != nil {
		set("language", *req.Language)
	}
	if req.Publisher != nil {
		set("publisher", *req.Publisher)
	}
	if req.PublishedAt != nil {
		set("published_at", *req.PublishedAt)
	}
	if req.TotalCopies != nil {
		// keep available_copies consistent with the new total
		set("total_copies", *req.TotalCopies)
		set("available_copies", sq.Expr(
			"greatest(0, least(available_copies + (? - total_copies), ?))",
			*req.TotalCopies, *req.TotalCopies))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		return model.Book{}, wrapNoRows(err)
	}
	return book, nil
}

func (r *repository) DeleteBook(ctx context.Context, bookID int) error {
	q, args, err := qb.Delete(booksTableName).
		Where(sq.Eq{"id": bookID}).
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
