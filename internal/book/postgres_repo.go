package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// ListBooks returns every book with its reviews attached. Both queries run on
// one connection held for the duration of the call.
func (r *PostgresRepo) ListBooks(ctx context.Context) ([]Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, title, author FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out := []Book{}
	index := make(map[int64]int)
	for rows.Next() {
		b := Book{Reviews: []Review{}}
		if err := rows.Scan(&b.ID, &b.Title, &b.Author); err != nil {
			rows.Close()
			return nil, err
		}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = conn.Query(ctx, `SELECT id, content, book_id FROM reviews ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.Content, &rv.BookID); err != nil {
			return nil, err
		}
		// A review inserted between the two queries can reference a book
		// the first query did not see.
		if i, ok := index[rv.BookID]; ok {
			out[i].Reviews = append(out[i].Reviews, rv)
		}
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	const sql = `INSERT INTO books (title, author) VALUES ($1, $2) RETURNING id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b := Book{Title: in.Title, Author: in.Author, Reviews: []Review{}}
	if err := r.db.QueryRow(ctx, sql, in.Title, in.Author).Scan(&b.ID); err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return b, nil
}

func (r *PostgresRepo) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	const query = `SELECT id, content, book_id FROM reviews WHERE book_id = $1 ORDER BY id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.Content, &rv.BookID); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) AddReview(ctx context.Context, bookID int64, in NewReview) (Review, error) {
	const sql = `INSERT INTO reviews (content, book_id) VALUES ($1, $2) RETURNING id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rv := Review{Content: in.Content, BookID: bookID}
	if err := r.db.QueryRow(ctx, sql, in.Content, bookID).Scan(&rv.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return Review{}, ErrBookNotFound
		}
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return rv, nil
}
