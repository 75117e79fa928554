package model

import (
	"time"
)

// Status of a borrowing. Derived from (returned_at, due_at, now), never persisted.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusOverdue  Status = "OVERDUE"
	StatusReturned Status = "RETURNED"
)

type Book struct {
	ID              int        `json:"id" db:"id"`
	ISBN            string     `json:"isbn" db:"isbn"`
	Title           string     `json:"title" db:"title"`
	Subtitle        *string    `json:"subtitle,omitempty" db:"subtitle"`
	Author          string     `json:"author" db:"author"`
	PageCount       int        `json:"pageCount" db:"page_count"`
	Description     *string    `json:"description,omitempty" db:"description"`
	Language        string     `json:"language" db:"language"`
	Publisher       string     `json:"publisher" db:"publisher"`
	PublishedAt     *string    `json:"publishedAt,omitempty" db:"published_at"`
	TotalCopies     int        `json:"totalCopies" db:"total_copies"`
	AvailableCopies int        `json:"availableCopies" db:"available_copies"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

type User struct {
	ID        int       `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Borrowing struct {
	ID           int        `json:"-" db:"id"`
	BorrowingUid string     `json:"borrowingUid" db:"borrowing_uid"`
	UserID       int        `json:"userId" db:"user_id"`
	BookID       int        `json:"bookId" db:"book_id"`
	BorrowedAt   time.Time  `json:"borrowedAt" db:"borrowed_at"`
	DueAt        time.Time  `json:"dueAt" db:"due_at"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
}

type CreateBookRequest struct {
	ISBN        string  `json:"isbn" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Subtitle    *string `json:"subtitle"`
	Author      string  `json:"author" validate:"required"`
	PageCount   int     `json:"pageCount" validate:"required,gt=0"`
	Description *string `json:"description"`
	Language    string  `json:"language" validate:"required"`
	Publisher   string  `json:"publisher" validate:"required"`
	PublishedAt *string `json:"publishedAt"`
	TotalCopies int     `json:"totalCopies" validate:"omitempty,gt=0"`
}

// UpdateBookRequest applies only the fields that are present.
type UpdateBookRequest struct {
	Title       *string `json:"title"`
	Subtitle    *string `json:"subtitle"`
	Author      *string `json:"author"`
	PageCount   *int    `json:"pageCount" validate:"omitempty,gt=0"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	Publisher   *string `json:"publisher"`
	PublishedAt *string `json:"publishedAt"`
	TotalCopies *int    `json:"totalCopies" validate:"omitempty,gte=0"`
}

type CreateBorrowingRequest struct {
	UserID int `json:"userId" validate:"required,gt=0"`
	BookID int `json:"bookId" validate:"required,gt=0"`
}

type UpdateDueDateRequest struct {
	DueAt time.Time `json:"dueAt" validate:"required"`
}

type BorrowingStatusResponse struct {
	BorrowingUid string `json:"borrowingUid"`
	Status       Status `json:"status"`
}

type GetBorrowingResponse struct {
	Borrowing
	Status Status `json:"status"`
	Book   *Book  `json:"book,omitempty"`
	User   *User  `json:"user,omitempty"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging
	Items []Book `json:"items"`
}

// CirculationEvent is published to kafka after a successful borrow or return.
type CirculationEvent struct {
	Event        string    `json:"event"`
	BorrowingUid string    `json:"borrowingUid"`
	UserID       int       `json:"userId"`
	BookID       int       `json:"bookId"`
	At           time.Time `json:"at"`
}

const (
	EventBorrowed = "BORROWED"
	EventReturned = "RETURNED"
)
