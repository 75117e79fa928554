package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/handler"
	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/pkg/validate"

	service_mocks "github.com/libcirc/circulation-service/circulation/internal/handler/mocks"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeEnqueuer struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (f *fakeEnqueuer) Enqueue(topic string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.events = append(f.events, v)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newTestRouter(t *testing.T) (*echo.Echo, *service_mocks.MockCirculationService, *fakeEnqueuer) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	svc := service_mocks.NewMockCirculationService(c)
	q := &fakeEnqueuer{}
	log := zap.NewExample().Named("test")
	h := handler.New(svc, q, log)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/borrowings", h.CreateBorrowing)
	e.GET("/borrowings", h.GetBorrowings)
	e.POST("/borrowings/:borrowingUid/return", h.ReturnBorrowing)
	e.PATCH("/borrowings/:borrowingUid/due-date", h.UpdateDueDate)
	e.GET("/borrowings/:borrowingUid/status", h.GetBorrowingStatus)
	e.DELETE("/users/:userId/borrowings", h.DeleteBorrowingsByUser)
	e.POST("/books", h.CreateBook)
	e.GET("/books/:bookId", h.GetBook)
	return e, svc, q
}

func TestHandler_CreateBorrowing(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
		wantEvents   int
	}{
		{
			name: "ok",
			body: `{"userId":1,"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Borrow(gomock.Any(), 1, 2, gomock.Any()).
					Return(model.Borrowing{
						BorrowingUid: "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
						UserID:       1,
						BookID:       2,
						BorrowedAt:   testNow,
						DueAt:        testNow.Add(14 * 24 * time.Hour),
					}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"borrowingUid":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","userId":1,"bookId":2,"borrowedAt":"2024-05-10T12:00:00Z","dueAt":"2024-05-24T12:00:00Z"}`,
			},
			wantEvents: 1,
		},
		{
			name: "err. no copies",
			body: `{"userId":1,"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Borrow(gomock.Any(), 1, 2, gomock.Any()).
					Return(model.Borrowing{}, errs.Reject(errs.NoCopiesAvailable, "no copies left"))
			},
			response: response{
				expectedCode: http.StatusUnprocessableEntity,
				expectedBody: `{"message":"no copies left"}`,
			},
		},
		{
			name: "err. limit reached",
			body: `{"userId":1,"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Borrow(gomock.Any(), 1, 2, gomock.Any()).
					Return(model.Borrowing{}, errs.Reject(errs.LimitReached, "borrowings limit reached (5)"))
			},
			response: response{
				expectedCode: http.StatusUnprocessableEntity,
				expectedBody: `{"message":"borrowings limit reached (5)"}`,
			},
		},
		{
			name: "err. user not found",
			body: `{"userId":42,"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Borrow(gomock.Any(), 42, 2, gomock.Any()).
					Return(model.Borrowing{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
		{
			name:         "err. missing userId",
			body:         `{"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
		{
			name: "err. internal",
			body: `{"userId":1,"bookId":2}`,
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Borrow(gomock.Any(), 1, 2, gomock.Any()).
					Return(model.Borrowing{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc, q := newTestRouter(t)
			tt.mockBehavior(svc)

			r := httptest.NewRequest(http.MethodPost, "/borrowings", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
			require.Equal(t, tt.wantEvents, q.count())
		})
	}
}

func TestHandler_ReturnBorrowing(t *testing.T) {
	t.Parallel()
	returned := testNow

	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockCirculationService)

	var tests = []struct {
		name         string
		borrowingUid string
		mockBehavior mockBehavior
		response     response
		wantEvents   int
	}{
		{
			name:         "ok",
			borrowingUid: "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(gomock.Any(), "f7cdc58f-2caf-4b15-9727-f89dcc629b27", gomock.Any()).
					Return(model.Borrowing{
						BorrowingUid: "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
						UserID:       1,
						BookID:       2,
						BorrowedAt:   testNow.Add(-24 * time.Hour),
						DueAt:        testNow.Add(13 * 24 * time.Hour),
						ReturnedAt:   &returned,
					}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"borrowingUid":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","userId":1,"bookId":2,"borrowedAt":"2024-05-09T12:00:00Z","dueAt":"2024-05-23T12:00:00Z","returnedAt":"2024-05-10T12:00:00Z"}`,
			},
			wantEvents: 1,
		},
		{
			name:         "err. already returned",
			borrowingUid: "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(gomock.Any(), "f7cdc58f-2caf-4b15-9727-f89dcc629b27", gomock.Any()).
					Return(model.Borrowing{}, errs.ErrAlreadyReturned)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"borrowing is already returned"}`,
			},
		},
		{
			name:         "err. not found",
			borrowingUid: "missing",
			mockBehavior: func(r *service_mocks.MockCirculationService) {
				r.EXPECT().
					Return(gomock.Any(), "missing", gomock.Any()).
					Return(model.Borrowing{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc, q := newTestRouter(t)
			tt.mockBehavior(svc)

			r := httptest.NewRequest(http.MethodPost,
				fmt.Sprintf("/borrowings/%s/return", tt.borrowingUid), http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			require.Equal(t, tt.wantEvents, q.count())
		})
	}
}

func TestHandler_GetBorrowings(t *testing.T) {
	t.Parallel()

	t.Run("overdue filter", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		svc.EXPECT().
			ListOverdue(gomock.Any(), gomock.Any()).
			Return([]model.Borrowing{
				{
					BorrowingUid: "f7cdc58f-2caf-4b15-9727-f89dcc629b27",
					UserID:       1,
					BookID:       2,
					BorrowedAt:   testNow.Add(-20 * 24 * time.Hour),
					DueAt:        testNow.Add(-6 * 24 * time.Hour),
				},
			}, nil)

		r := httptest.NewRequest(http.MethodGet, "/borrowings?status=overdue", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t,
			`[{"borrowingUid":"f7cdc58f-2caf-4b15-9727-f89dcc629b27","userId":1,"bookId":2,"borrowedAt":"2024-04-20T12:00:00Z","dueAt":"2024-05-04T12:00:00Z"}]`,
			strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()
		e, _, _ := newTestRouter(t)

		r := httptest.NewRequest(http.MethodGet, "/borrowings?status=lost", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, `{"message":"unknown status lost: invalid input"}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		svc.EXPECT().ListBorrowings(gomock.Any()).Return([]model.Borrowing{}, nil)

		r := httptest.NewRequest(http.MethodGet, "/borrowings", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `[]`, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_UpdateDueDate(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		due := testNow.Add(21 * 24 * time.Hour)
		svc.EXPECT().
			UpdateDueDate(gomock.Any(), "uid-1", due, gomock.Any()).
			Return(model.Borrowing{
				BorrowingUid: "uid-1",
				UserID:       1,
				BookID:       2,
				BorrowedAt:   testNow,
				DueAt:        due,
			}, nil)

		r := httptest.NewRequest(http.MethodPatch, "/borrowings/uid-1/due-date",
			strings.NewReader(`{"dueAt":"2024-05-31T12:00:00Z"}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t,
			`{"borrowingUid":"uid-1","userId":1,"bookId":2,"borrowedAt":"2024-05-10T12:00:00Z","dueAt":"2024-05-31T12:00:00Z"}`,
			strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("err. past date", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		svc.EXPECT().
			UpdateDueDate(gomock.Any(), "uid-1", gomock.Any(), gomock.Any()).
			Return(model.Borrowing{}, errs.Reject(errs.PastDate, "due date must be after now"))

		r := httptest.NewRequest(http.MethodPatch, "/borrowings/uid-1/due-date",
			strings.NewReader(`{"dueAt":"2020-01-01T00:00:00Z"}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, `{"message":"due date must be after now"}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("err. missing date", func(t *testing.T) {
		t.Parallel()
		e, _, _ := newTestRouter(t)

		r := httptest.NewRequest(http.MethodPatch, "/borrowings/uid-1/due-date",
			strings.NewReader(`{}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetBorrowingStatus(t *testing.T) {
	t.Parallel()
	e, svc, _ := newTestRouter(t)

	svc.EXPECT().
		GetStatus(gomock.Any(), "uid-1", gomock.Any()).
		Return(model.BorrowingStatusResponse{BorrowingUid: "uid-1", Status: model.StatusOverdue}, nil)

	r := httptest.NewRequest(http.MethodGet, "/borrowings/uid-1/status", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"borrowingUid":"uid-1","status":"OVERDUE"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_DeleteBorrowingsByUser(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		svc.EXPECT().DeleteByUser(gomock.Any(), 1).Return(int64(3), nil)

		r := httptest.NewRequest(http.MethodDelete, "/users/1/borrowings", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"deleted":3}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("err. bad userId", func(t *testing.T) {
		t.Parallel()
		e, _, _ := newTestRouter(t)

		r := httptest.NewRequest(http.MethodDelete, "/users/abc/borrowings", http.NoBody)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, `{"message":"invalid userId: invalid input"}`, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()

	t.Run("err. duplicate isbn", func(t *testing.T) {
		t.Parallel()
		e, svc, _ := newTestRouter(t)

		svc.EXPECT().
			CreateBook(gomock.Any(), gomock.Any()).
			Return(model.Book{}, errs.ErrConflict)

		r := httptest.NewRequest(http.MethodPost, "/books",
			strings.NewReader(`{"isbn":"978-0262510875","title":"SICP","author":"Abelson","pageCount":657,"language":"en","publisher":"MIT Press"}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, `{"message":"already exists"}`, strings.Trim(w.Body.String(), "\n"))
	})

	t.Run("err. missing required fields", func(t *testing.T) {
		t.Parallel()
		e, _, _ := newTestRouter(t)

		r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{"title":"SICP"}`))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	e, svc, _ := newTestRouter(t)

	svc.EXPECT().
		GetBook(gomock.Any(), 2).
		Return(model.Book{
			ID:              2,
			ISBN:            "978-0262510875",
			Title:           "SICP",
			Author:          "Abelson",
			PageCount:       657,
			Language:        "en",
			Publisher:       "MIT Press",
			TotalCopies:     3,
			AvailableCopies: 1,
			CreatedAt:       testNow,
		}, nil)

	r := httptest.NewRequest(http.MethodGet, "/books/2", http.NoBody)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"id":2,"isbn":"978-0262510875","title":"SICP","author":"Abelson","pageCount":657,"language":"en","publisher":"MIT Press","totalCopies":3,"availableCopies":1,"createdAt":"2024-05-10T12:00:00Z"}`,
		strings.Trim(w.Body.String(), "\n"))
}
