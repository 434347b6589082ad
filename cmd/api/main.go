package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookreview/internal/book"
	"bookreview/internal/cache"
	"bookreview/internal/config"
	"bookreview/internal/httpx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool := mustOpenDB(cfg.DatabaseDSN)
	defer dbPool.Close()

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheOpTimeout)
	defer redisClient.Close()
	cacheStore := cache.NewRedisStore(redisClient, cfg.CacheOpTimeout)
	if err := cacheStore.Ping(ctx); err != nil {
		log.Printf("cache: redis unreachable at startup, listing will be served from the database addr=%s err=%v", cfg.RedisAddr, err)
	} else {
		log.Println("cache connection OK")
	}

	repo := book.NewPostgresRepo(dbPool, cfg.DBQueryTimeout)

	listerOpts := []book.ListerOption{book.WithTTL(cfg.CacheTTL)}
	if cfg.CacheCoalesceMisses {
		listerOpts = append(listerOpts, book.WithCoalescing())
	}
	lister := book.NewCachedLister(repo, cacheStore, listerOpts...)

	var serviceOpts []book.ServiceOption
	if cfg.CacheInvalidateOnWrite {
		serviceOpts = append(serviceOpts, book.WithInvalidateOnWrite())
	} else {
		log.Printf("cache: invalidation on write disabled, new books appear in GET /books within ttl=%s", cfg.CacheTTL)
	}
	service := book.NewService(repo, lister, serviceOpts...)

	handler := newRouter(ctx, cfg, book.NewHTTPHandler(service), dbPool.Ping, lister)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Printf("server error: %v", err)
	case <-ctx.Done():
		log.Println("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

type statsProvider interface {
	Stats() book.Stats
}

func newRouter(ctx context.Context, cfg config.Config, books *book.HTTPHandler, ping func(context.Context) error, stats statsProvider) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	// Readiness depends on the database only; the cache is optional.
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	router.HandleFunc("GET /debug/cache", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, stats.Stats())
	})

	books.RegisterRoutes(router)

	var rateOpts []httpx.RateLimitOption
	if cfg.TrustProxyHeaders {
		rateOpts = append(rateOpts, httpx.TrustForwardedFor())
	}
	rateLimiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, rateOpts...)

	return httpx.Chain(router,
		httpx.RecoveryMiddleware,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.AllowedOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
