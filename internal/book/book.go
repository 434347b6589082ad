package book

import (
	"errors"
)

// ErrBookNotFound is returned when a review references a book that does not exist.
var ErrBookNotFound = errors.New("book not found")

// Book represents a book entity together with its reviews.
type Book struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Author  string   `json:"author"`
	Reviews []Review `json:"reviews"`
}

// Review belongs to exactly one book. The owning book id is not part of the
// JSON representation.
type Review struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	BookID  int64  `json:"-"`
}

// NewBook is the input for creating a book.
type NewBook struct {
	Title  string `json:"title" validate:"required,notblank,max=255"`
	Author string `json:"author" validate:"required,notblank,max=255"`
}

// NewReview is the input for adding a review to a book.
type NewReview struct {
	Content string `json:"content" validate:"required,notblank,max=10000"`
}
