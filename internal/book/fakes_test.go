package book

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookreview/internal/cache"

	"github.com/alicebob/miniredis/v2"
)

// memRepo is an in-memory Repository standing in for Postgres.
type memRepo struct {
	mu     sync.Mutex
	books  []Book
	nextID int64
	lists  atomic.Int64
}

func (m *memRepo) ListBooks(ctx context.Context) ([]Book, error) {
	m.lists.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Book, len(m.books))
	for i, b := range m.books {
		b.Reviews = append([]Review{}, b.Reviews...)
		out[i] = b
	}
	return out, nil
}

func (m *memRepo) CreateBook(ctx context.Context, in NewBook) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b := Book{ID: m.nextID, Title: in.Title, Author: in.Author, Reviews: []Review{}}
	m.books = append(m.books, b)
	return b, nil
}

func (m *memRepo) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.ID == bookID {
			return append([]Review{}, b.Reviews...), nil
		}
	}
	return []Review{}, nil
}

func (m *memRepo) AddReview(ctx context.Context, bookID int64, in NewReview) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.books {
		if m.books[i].ID == bookID {
			m.nextID++
			rv := Review{ID: m.nextID, Content: in.Content, BookID: bookID}
			m.books[i].Reviews = append(m.books[i].Reviews, rv)
			return rv, nil
		}
	}
	return Review{}, ErrBookNotFound
}

func newRedisCache(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "", 0, 200*time.Millisecond)
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisStore(client, 200*time.Millisecond), mr
}

// newHungCache returns a store whose backend accepts connections and never
// replies, so every operation runs into the timeout.
func newHungCache(t *testing.T, timeout time.Duration) *cache.RedisStore {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	client := cache.NewRedisClient(ln.Addr().String(), "", 0, timeout)
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisStore(client, timeout)
}

// scriptedStore answers Get calls from a fixed script, then reports misses.
type scriptedStore struct {
	mu   sync.Mutex
	gets [][]byte
	sets int
}

func (s *scriptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.gets) == 0 {
		return nil, cache.ErrMiss
	}
	next := s.gets[0]
	s.gets = s.gets[1:]
	if next == nil {
		return nil, cache.ErrMiss
	}
	return next, nil
}

func (s *scriptedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	return nil
}

func (s *scriptedStore) Delete(ctx context.Context, key string) error {
	return nil
}
