package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book and review storage.
type Repository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	CreateBook(ctx context.Context, in NewBook) (Book, error)
	ListReviews(ctx context.Context, bookID int64) ([]Review, error)
	AddReview(ctx context.Context, bookID int64, in NewReview) (Review, error)
}
