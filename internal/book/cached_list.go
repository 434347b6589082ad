package book

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"bookreview/internal/cache"

	"golang.org/x/sync/singleflight"
)

const (
	// AllBooksKey holds the snapshot of the full book listing.
	AllBooksKey = "all_books"
	// DefaultTTL bounds how stale a served listing can be.
	DefaultTTL = 300 * time.Second
)

// Source tells where a listing was served from.
type Source string

const (
	SourceCache Source = "HIT"
	SourceStore Source = "MISS"
)

// BookSource is the system of record for the listing.
type BookSource interface {
	ListBooks(ctx context.Context) ([]Book, error)
}

// Stats counts read path outcomes since the lister was created.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	CacheErrors int64 `json:"cache_errors"`
}

// CachedLister serves the book listing cache-aside: it reads the snapshot
// from the cache, and on a miss loads from the source and writes the result
// back with a fixed TTL. Cache failures are logged and never returned.
type CachedLister struct {
	source BookSource
	cache  cache.Store
	ttl    time.Duration

	coalesce bool
	group    singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	cacheErrors atomic.Int64
}

type ListerOption func(*CachedLister)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) ListerOption {
	return func(l *CachedLister) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithCoalescing makes concurrent misses share a single source query. The
// flight re-reads the cache first unless the caller's own read failed, so a
// hung cache costs at most the same timeouts as the uncoalesced path.
func WithCoalescing() ListerOption {
	return func(l *CachedLister) {
		l.coalesce = true
	}
}

func NewCachedLister(source BookSource, store cache.Store, opts ...ListerOption) *CachedLister {
	l := &CachedLister{source: source, cache: store, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// lookup is the outcome of consulting the cache: either a usable snapshot
// (hit) or a signal to fall back to the source. failed is set when the cache
// itself errored rather than simply not holding the key.
type lookup struct {
	books  []Book
	hit    bool
	failed bool
}

type flightResult struct {
	books  []Book
	source Source
}

// ListBooks returns the full listing. The only error it returns comes from
// the source.
func (l *CachedLister) ListBooks(ctx context.Context) ([]Book, Source, error) {
	res := l.lookup(ctx)
	if res.hit {
		l.hits.Add(1)
		return res.books, SourceCache, nil
	}
	l.misses.Add(1)

	if !l.coalesce {
		books, err := l.load(ctx)
		return books, SourceStore, err
	}

	v, err, _ := l.group.Do(AllBooksKey, func() (any, error) {
		// Another flight may have filled the cache while this one waited.
		if !res.failed {
			if again := l.lookup(ctx); again.hit {
				return flightResult{books: again.books, source: SourceCache}, nil
			}
		}
		books, err := l.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return flightResult{books: books, source: SourceStore}, nil
	})
	if err != nil {
		return nil, SourceStore, err
	}
	fr := v.(flightResult)
	return fr.books, fr.source, nil
}

// Invalidate drops the cached listing so the next read goes to the source.
func (l *CachedLister) Invalidate(ctx context.Context) {
	if err := l.cache.Delete(ctx, AllBooksKey); err != nil {
		l.cacheErrors.Add(1)
		log.Printf("cache: invalidate failed key=%s err=%v", AllBooksKey, err)
	}
}

func (l *CachedLister) Stats() Stats {
	return Stats{
		Hits:        l.hits.Load(),
		Misses:      l.misses.Load(),
		CacheErrors: l.cacheErrors.Load(),
	}
}

func (l *CachedLister) lookup(ctx context.Context) lookup {
	data, err := l.cache.Get(ctx, AllBooksKey)
	if errors.Is(err, cache.ErrMiss) {
		return lookup{}
	}
	if err != nil {
		l.cacheErrors.Add(1)
		log.Printf("cache: read failed, falling back to store key=%s err=%v", AllBooksKey, err)
		return lookup{failed: true}
	}
	books, err := decodeSnapshot(data)
	if err != nil {
		l.cacheErrors.Add(1)
		log.Printf("cache: unreadable snapshot, falling back to store key=%s err=%v", AllBooksKey, err)
		return lookup{failed: true}
	}
	return lookup{books: books, hit: true}
}

func (l *CachedLister) load(ctx context.Context) ([]Book, error) {
	books, err := l.source.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []Book{}
	}
	l.fill(ctx, books)
	return books, nil
}

// fill writes the snapshot back. It is detached from request cancellation so
// a client hanging up does not leave the cache cold.
func (l *CachedLister) fill(ctx context.Context, books []Book) {
	payload, err := encodeSnapshot(books)
	if err != nil {
		l.cacheErrors.Add(1)
		log.Printf("cache: encode failed key=%s err=%v", AllBooksKey, err)
		return
	}
	if err := l.cache.Set(context.WithoutCancel(ctx), AllBooksKey, payload, l.ttl); err != nil {
		l.cacheErrors.Add(1)
		log.Printf("cache: write failed key=%s err=%v", AllBooksKey, err)
	}
}
