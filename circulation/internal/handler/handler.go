package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/libcirc/circulation-service/circulation/internal/errs"
	"github.com/libcirc/circulation-service/circulation/internal/model"
	"github.com/libcirc/circulation-service/pkg/kafka"
	"github.com/libcirc/circulation-service/pkg/validate"
	_ "github.com/libcirc/circulation-service/swagger"
)

type Handler struct {
	circulationSvc CirculationService
	enqueuer       Enqueuer
	log            *zap.Logger
}

func New(circulationSvc CirculationService, enqueuer Enqueuer, log *zap.Logger) *Handler {
	h := &Handler{
		circulationSvc: circulationSvc,
		enqueuer:       enqueuer,
		log:            log,
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/isbn/:isbn", h.GetBookByISBN)
	api.GET("/books/:bookId", h.GetBook)
	api.PATCH("/books/:bookId", h.UpdateBook)
	api.DELETE("/books/:bookId", h.DeleteBook)
	api.GET("/books/:bookId/borrowings", h.GetBorrowingsByBook)
	api.DELETE("/books/:bookId/borrowings", h.DeleteBorrowingsByBook)

	api.POST("/borrowings", h.CreateBorrowing)
	api.GET("/borrowings", h.GetBorrowings)
	api.GET("/borrowings/:borrowingUid", h.GetBorrowing)
	api.GET("/borrowings/:borrowingUid/status", h.GetBorrowingStatus)
	api.POST("/borrowings/:borrowingUid/return", h.ReturnBorrowing)
	api.PATCH("/borrowings/:borrowingUid/due-date", h.UpdateDueDate)
	api.DELETE("/borrowings/:borrowingUid", h.DeleteBorrowing)

	api.GET("/users/:userId/borrowings", h.GetBorrowingsByUser)
	api.DELETE("/users/:userId/borrowings", h.DeleteBorrowingsByUser)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps core failures to transport status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyReturned), errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrInvariant):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		if re, ok := errs.AsReject(err); ok {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, re.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errs.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func (h *Handler) CreateBorrowing(c echo.Context) error {
	var req model.CreateBorrowingRequest
	if err := c.Bind(&req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	if err := c.Validate(req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}

	ctx := c.Request().Context()
	b, err := h.circulationSvc.Borrow(ctx, req.UserID, req.BookID, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}

	if err := h.enqueuer.Enqueue(kafka.CirculationTopic, model.CirculationEvent{
		Event:        model.EventBorrowed,
		BorrowingUid: b.BorrowingUid,
		UserID:       b.UserID,
		BookID:       b.BookID,
		At:           b.BorrowedAt,
	}); err != nil {
		h.log.Warn("CreateBorrowing h.enqueuer.Enqueue()", zap.Error(err))
	}

	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ReturnBorrowing(c echo.Context) error {
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "borrowingUid is empty"))
	}
	ctx := c.Request().Context()
	b, err := h.circulationSvc.Return(ctx, borrowingUid, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}

	if err := h.enqueuer.Enqueue(kafka.CirculationTopic, model.CirculationEvent{
		Event:        model.EventReturned,
		BorrowingUid: b.BorrowingUid,
		UserID:       b.UserID,
		BookID:       b.BookID,
		At:           *b.ReturnedAt,
	}); err != nil {
		h.log.Warn("ReturnBorrowing h.enqueuer.Enqueue()", zap.Error(err))
	}

	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpdateDueDate(c echo.Context) error {
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "borrowingUid is empty"))
	}
	var req model.UpdateDueDateRequest
	if err := c.Bind(&req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	if err := c.Validate(req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	b, err := h.circulationSvc.UpdateDueDate(c.Request().Context(), borrowingUid, req.DueAt, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetBorrowing(c echo.Context) error {
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "borrowingUid is empty"))
	}
	resp, err := h.circulationSvc.GetBorrowingDetail(c.Request().Context(), borrowingUid, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetBorrowingStatus(c echo.Context) error {
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "borrowingUid is empty"))
	}
	resp, err := h.circulationSvc.GetStatus(c.Request().Context(), borrowingUid, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetBorrowings(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		items []model.Borrowing
		err   error
	)
	switch status := c.QueryParam("status"); status {
	case "":
		items, err = h.circulationSvc.ListBorrowings(ctx)
	case "active":
		items, err = h.circulationSvc.ListActive(ctx)
	case "returned":
		items, err = h.circulationSvc.ListReturned(ctx)
	case "overdue":
		items, err = h.circulationSvc.ListOverdue(ctx, time.Now().UTC())
	default:
		return httpError(errors.Wrap(errs.ErrInvalidInput, "unknown status "+status))
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBorrowingsByUser(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return httpError(err)
	}
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	items, err := h.circulationSvc.ListByUser(c.Request().Context(), userID, activeOnly)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetBorrowingsByBook(c echo.Context) error {
	bookID, err := pathID(c, "bookId")
	if err != nil {
		return httpError(err)
	}
	items, err := h.circulationSvc.ListByBook(c.Request().Context(), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteBorrowing(c echo.Context) error {
	borrowingUid := c.Param("borrowingUid")
	if borrowingUid == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "borrowingUid is empty"))
	}
	if err := h.circulationSvc.DeleteBorrowing(c.Request().Context(), borrowingUid); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteBorrowingsByUser(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return httpError(err)
	}
	deleted, err := h.circulationSvc.DeleteByUser(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.DeletedResponse{Deleted: deleted})
}

func (h *Handler) DeleteBorrowingsByBook(c echo.Context) error {
	bookID, err := pathID(c, "bookId")
	if err != nil {
		return httpError(err)
	}
	deleted, err := h.circulationSvc.DeleteByBook(c.Request().Context(), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.DeletedResponse{Deleted: deleted})
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	if err := c.Validate(req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	book, err := h.circulationSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) GetBook(c echo.Context) error {
	bookID, err := pathID(c, "bookId")
	if err != nil {
		return httpError(err)
	}
	book, err := h.circulationSvc.GetBook(c.Request().Context(), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) GetBookByISBN(c echo.Context) error {
	isbn := c.Param("isbn")
	if isbn == "" {
		return httpError(errors.Wrap(errs.ErrInvalidInput, "isbn is empty"))
	}
	book, err := h.circulationSvc.GetBookByISBN(c.Request().Context(), isbn)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) ListBooks(c echo.Context) error {
	var page, size int
	if p := c.QueryParam("page"); p != "" {
		var err error
		if page, err = strconv.Atoi(p); err != nil || page < 1 {
			return httpError(errors.Wrap(errs.ErrInvalidInput, "invalid page"))
		}
	}
	if s := c.QueryParam("size"); s != "" {
		var err error
		if size, err = strconv.Atoi(s); err != nil || size < 1 {
			return httpError(errors.Wrap(errs.ErrInvalidInput, "invalid size"))
		}
	}
	list, err := h.circulationSvc.ListBooks(c.Request().Context(), c.QueryParam("q"), page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	bookID, err := pathID(c, "bookId")
	if err != nil {
		return httpError(err)
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	if err := c.Validate(req); err != nil {
		return httpError(errors.Wrap(errs.ErrInvalidInput, err.Error()))
	}
	book, err := h.circulationSvc.UpdateBook(c.Request().Context(), bookID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	bookID, err := pathID(c, "bookId")
	if err != nil {
		return httpError(err)
	}
	if err := h.circulationSvc.DeleteBook(c.Request().Context(), bookID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
