package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"bookreview/internal/book"
	"bookreview/internal/cache"
	"bookreview/internal/config"
	"bookreview/internal/platform/openlibrary"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

const userAgent = "bookreview-seed/1.0"

var (
	titleWords = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
	authors = []string{
		"Ursula K. Le Guin", "Octavia Butler", "Italo Calvino", "Toni Morrison",
		"Haruki Murakami", "Chinua Achebe", "Jorge Luis Borges", "Clarice Lispector",
	}
	reviewLines = []string{
		"Could not put it down.", "Slow start, great ending.", "Beautifully written.",
		"Not for me.", "A classic for a reason.", "Would read again.",
	}
)

func main() {
	config.LoadEnvFiles()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seed",
		Usage: "insert sample books and reviews",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "books", Value: 50, Usage: "number of books to create"},
			&cli.IntFlag{Name: "reviews", Value: 3, Usage: "maximum reviews per book"},
			&cli.BoolFlag{Name: "flush-cache", Value: true, Usage: "drop the cached book listing afterwards"},
			&cli.StringFlag{Name: "subject", Usage: "import titles from Open Library for this subject instead of generating them"},
			&cli.StringFlag{Name: "openlibrary-url", Value: openlibrary.DefaultBaseURL, Hidden: true},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	count := c.Int("books")
	maxReviews := c.Int("reviews")
	if count < 0 || maxReviews < 0 {
		return errors.New("--books and --reviews must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := c.Context

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	repo := book.NewPostgresRepo(pool, cfg.DBQueryTimeout)

	var newBooks []book.NewBook
	if subject := c.String("subject"); subject != "" {
		client := openlibrary.NewClient(userAgent, 1, 3, openlibrary.WithBaseURL(c.String("openlibrary-url")))
		newBooks, err = fetchBooks(ctx, client, subject, count)
		if err != nil {
			return err
		}
		log.Printf("Importing %d books for subject=%q...", len(newBooks), subject)
	} else {
		newBooks = generateBooks(count)
		log.Printf("Generating %d books...", count)
	}

	var reviews int
	for _, nb := range newBooks {
		b, err := repo.CreateBook(ctx, nb)
		if err != nil {
			return err
		}
		n := 0
		if maxReviews > 0 {
			n = rand.Intn(maxReviews + 1)
		}
		for j := 0; j < n; j++ {
			if _, err := repo.AddReview(ctx, b.ID, book.NewReview{Content: pick(reviewLines)}); err != nil {
				return err
			}
			reviews++
		}
	}
	log.Printf("Inserted %d books and %d reviews", len(newBooks), reviews)

	if c.Bool("flush-cache") {
		flushListing(ctx, cfg)
	}
	return nil
}

// flushListing is best effort: seeding succeeded even if redis is down.
func flushListing(ctx context.Context, cfg config.Config) {
	client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Second)
	defer client.Close()

	if err := cache.NewRedisStore(client, time.Second).Delete(ctx, book.AllBooksKey); err != nil {
		log.Printf("cache: flush failed key=%s err=%v", book.AllBooksKey, err)
		return
	}
	log.Printf("cache: flushed key=%s", book.AllBooksKey)
}

func generateBooks(count int) []book.NewBook {
	out := make([]book.NewBook, count)
	for i := range out {
		out[i] = book.NewBook{
			Title:  fmt.Sprintf("The %s of %s", pick(titleWords), pick(titleWords)),
			Author: pick(authors),
		}
	}
	return out
}

type bookSearcher interface {
	SearchBooks(ctx context.Context, subject string, limit int) (*openlibrary.SearchResponse, error)
}

// fetchBooks keeps search results that have both a title and an author,
// truncated to the column limits.
func fetchBooks(ctx context.Context, client bookSearcher, subject string, limit int) ([]book.NewBook, error) {
	res, err := client.SearchBooks(ctx, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("search open library: %w", err)
	}
	out := make([]book.NewBook, 0, len(res.Docs))
	for _, doc := range res.Docs {
		title, author := strings.TrimSpace(doc.Title), strings.TrimSpace(doc.Author())
		if title == "" || author == "" {
			continue
		}
		out = append(out, book.NewBook{Title: truncate(title, 255), Author: truncate(author, 255)})
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func pick(words []string) string {
	return words[rand.Intn(len(words))]
}
