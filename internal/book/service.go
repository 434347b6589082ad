package book

import (
	"context"
)

// Service provides book and review operations.
type Service struct {
	repo              Repository
	lister            *CachedLister
	invalidateOnWrite bool
}

type ServiceOption func(*Service)

// WithInvalidateOnWrite drops the cached listing after every successful
// create, so new books and reviews are visible on the next read.
func WithInvalidateOnWrite() ServiceOption {
	return func(s *Service) {
		s.invalidateOnWrite = true
	}
}

// NewService creates a new book service.
func NewService(repo Repository, lister *CachedLister, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, lister: lister}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListBooks returns all books with their reviews through the cached read path.
func (s *Service) ListBooks(ctx context.Context) ([]Book, Source, error) {
	return s.lister.ListBooks(ctx)
}

// CreateBook stores a new book. By default the cached listing is left alone
// and the book shows up once the snapshot expires.
func (s *Service) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	b, err := s.repo.CreateBook(ctx, in)
	if err != nil {
		return Book{}, err
	}
	s.afterWrite(ctx)
	return b, nil
}

// ListReviews returns the reviews of a book, read directly from the store.
func (s *Service) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	return s.repo.ListReviews(ctx, bookID)
}

// AddReview stores a review for an existing book.
func (s *Service) AddReview(ctx context.Context, bookID int64, in NewReview) (Review, error) {
	rv, err := s.repo.AddReview(ctx, bookID, in)
	if err != nil {
		return Review{}, err
	}
	s.afterWrite(ctx)
	return rv, nil
}

func (s *Service) afterWrite(ctx context.Context) {
	if s.invalidateOnWrite {
		s.lister.Invalidate(ctx)
	}
}
