package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/circulation/internal/policy"
	"github.com/libcirc/circulation-service/circulation/internal/repository"
)

// Service coordinates the catalog and borrowing stores with the policy engine.
// Every operation takes now explicitly, nothing here reads the wall clock.
type Service struct {
	log    *zap.Logger
	repo   repository.Repository
	policy policy.Policy
}

func NewService(repo repository.Repository, p policy.Policy, log *zap.Logger) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		policy: p,
	}
}

// Borrow creates a borrowing and takes one copy as a single atomic unit.
// The policy snapshot is read under the book row lock inside that unit, so the
// decision cannot be raced past by a concurrent borrow.
func (s *Service) Borrow(ctx context.Context, userID, bookID int, now time.Time) (model.Borrowing, error) {
	gg, gctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		exists, err := s.repo.UserExists(gctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return errs.ErrNotFound
		}
		return nil
	})
	gg.Go(func() error {
		_, err := s.repo.GetBook(gctx, bookID)
		return err
	})
	if err := gg.Wait(); err != nil {
		return model.Borrowing{}, err
	}

	now = now.UTC()
	b, err := s.repo.CreateBorrowing(ctx, userID, bookID, now, s.policy.DueAt(now), s.policy.CanBorrow)
	if err != nil {
		return model.Borrowing{}, err
	}
	s.log.Info("borrowed",
		zap.String("borrowingUid", b.BorrowingUid),
		zap.Int("userID", userID),
		zap.Int("bookID", bookID))
	return b, nil
}

// Return closes a borrowing and gives the copy back atomically. Not idempotent:
// a second call on the same borrowing fails with ErrAlreadyReturned.
func (s *Service) Return(ctx context.Context, borrowingUid string, now time.Time) (model.Borrowing, error) {
	b, err := s.repo.ReturnBorrowing(ctx, borrowingUid, now.UTC())
	if err != nil {
		return model.Borrowing{}, err
	}
	s.log.Info("returned",
		zap.String("borrowingUid", b.BorrowingUid),
		zap.Int("bookID", b.BookID))
	return b, nil
}

// UpdateDueDate moves the due date of a not-yet-returned borrowing. Copy counts
// are untouched.
func (s *Service) UpdateDueDate(ctx context.Context, borrowingUid string, dueAt, now time.Time) (model.Borrowing, error) {
	if err := policy.ValidateDueDate(dueAt, now); err != nil {
		return model.Borrowing{}, err
	}
	return s.repo.UpdateDueDate(ctx, borrowingUid, dueAt.UTC())
}

func (s *Service) GetBorrowing(ctx context.Context, borrowingUid string) (model.Borrowing, error) {
	return s.repo.GetBorrowing(ctx, borrowingUid)
}

// GetBorrowingDetail returns the borrowing with its derived status and the
// referenced book and user fetched in parallel.
func (s *Service) GetBorrowingDetail(ctx context.Context, borrowingUid string, now time.Time) (model.GetBorrowingResponse, error) {
	b, err := s.repo.GetBorrowing(ctx, borrowingUid)
	if err != nil {
		return model.GetBorrowingResponse{}, err
	}

	var (
		book model.Book
		user model.User
	)
	gg, gctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		var err error
		book, err = s.repo.GetBook(gctx, b.BookID)
		return err
	})
	gg.Go(func() error {
		var err error
		user, err = s.repo.GetUser(gctx, b.UserID)
		return err
	})
	if err := gg.Wait(); err != nil {
		return model.GetBorrowingResponse{}, err
	}

	return model.GetBorrowingResponse{
		Borrowing: b,
		Status:    policy.DeriveStatus(b, now),
		Book:      &book,
		User:      &user,
	}, nil
}

func (s *Service) GetStatus(ctx context.Context, borrowingUid string, now time.Time) (model.BorrowingStatusResponse, error) {
	b, err := s.repo.GetBorrowing(ctx, borrowingUid)
	if err != nil {
		return model.BorrowingStatusResponse{}, err
	}
	return model.BorrowingStatusResponse{
		BorrowingUid: b.BorrowingUid,
		Status:       policy.DeriveStatus(b, now),
	}, nil
}

func (s *Service) ListBorrowings(ctx context.Context) ([]model.Borrowing, error) {
	return s.repo.ListBorrowings(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]model.Borrowing, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) ListReturned(ctx context.Context) ([]model.Borrowing, error) {
	return s.repo.ListReturned(ctx)
}

func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) ([]model.Borrowing, error) {
	return s.repo.ListOverdue(ctx, asOf.UTC())
}

func (s *Service) ListByUser(ctx context.Context, userID int, activeOnly bool) ([]model.Borrowing, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.ErrNotFound
	}
	if activeOnly {
		return s.repo.ListActiveByUser(ctx, userID)
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListByBook(ctx context.Context, bookID int) ([]model.Borrowing, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.repo.ListByBook(ctx, bookID)
}

func (s *Service) DeleteBorrowing(ctx context.Context, borrowingUid string) error {
	return s.repo.DeleteBorrowing(ctx, borrowingUid)
}

// DeleteByUser drops borrowing history for a user. Best effort cleanup, copy
// counts are not reconciled for rows that were still active.
func (s *Service) DeleteByUser(ctx context.Context, userID int) (int64, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errs.ErrNotFound
	}
	return s.repo.DeleteByUser(ctx, userID)
}

func (s *Service) DeleteByBook(ctx context.Context, bookID int) (int64, error) {
	if _, err := s.repo.GetBook(ctx, bookID); err != nil {
		return 0, err
	}
	return s.repo.DeleteByBook(ctx, bookID)
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	if req.TotalCopies == 0 {
		req.TotalCopies = 1
	}
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	return s.repo.GetBook(ctx, bookID)
}

func (s *Service) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	return s.repo.GetBookByISBN(ctx, isbn)
}

func (s *Service) ListBooks(ctx context.Context, search string, page, size int) (model.ListBooks, error) {
	return s.repo.ListBooks(ctx, search, page, size)
}

func (s *Service) UpdateBook(ctx context.Context, bookID int, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, bookID, req)
}

func (s *Service) DeleteBook(ctx context.Context, bookID int) error {
	return s.repo.DeleteBook(ctx, bookID)
}
