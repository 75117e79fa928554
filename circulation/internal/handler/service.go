package handler

import (
	"context"
	"time"

	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/circulation/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	Borrow(ctx context.Context, userID, bookID int, now time.Time) (model.Borrowing, error)
	Return(ctx context.Context, borrowingUid string, now time.Time) (model.Borrowing, error)
	UpdateDueDate(ctx context.Context, borrowingUid string, dueAt, now time.Time) (model.Borrowing, error)

	GetBorrowing(ctx context.Context, borrowingUid string) (model.Borrowing, error)
	GetBorrowingDetail(ctx context.Context, borrowingUid string, now time.Time) (model.GetBorrowingResponse, error)
	GetStatus(ctx context.Context, borrowingUid string, now time.Time) (model.BorrowingStatusResponse, error)
	ListBorrowings(ctx context.Context) ([]model.Borrowing, error)
	ListActive(ctx context.Context) ([]model.Borrowing, error)
	ListReturned(ctx context.Context) ([]model.Borrowing, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]model.Borrowing, error)
	ListByUser(ctx context.Context, userID int, activeOnly bool) ([]model.Borrowing, error)
	ListByBook(ctx context.Context, bookID int) ([]model.Borrowing, error)

	DeleteBorrowing(ctx context.Context, borrowingUid string) error
	DeleteByUser(ctx context.Context, userID int) (int64, error)
	DeleteByBook(ctx context.Context, bookID int) (int64, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, bookID int) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error)
	UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, bookID int) error
}

var _ CirculationService = (*service.Service)(nil)
