package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"bookreview/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	config.LoadEnvFiles()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "migrate",
		Usage: "manage the book review database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "postgres connection string",
				EnvVars: []string{"DB_DSN"},
				Value:   defaultDSN,
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory holding goose migrations",
				Value: migrationsDir(),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					if err := goose.UpContext(c.Context, db, c.String("dir")); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					fmt.Println("Migrations applied successfully")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the latest migration",
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					if err := goose.DownContext(c.Context, db, c.String("dir")); err != nil {
						return fmt.Errorf("rollback migration: %w", err)
					}
					fmt.Println("Migrations rolled back successfully")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withDB(func(c *cli.Context, db *sql.DB) error {
					return goose.StatusContext(c.Context, db, c.String("dir"))
				}),
			},
			{
				Name:  "create",
				Usage: "create a new sql migration",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "migration name", Required: true},
				},
				Action: func(c *cli.Context) error {
					if err := goose.Create(nil, c.String("dir"), c.String("name"), "sql"); err != nil {
						return fmt.Errorf("create migration: %w", err)
					}
					fmt.Printf("Migration created: %s\n", c.String("name"))
					return nil
				},
			},
		},
	}
}

func withDB(fn func(c *cli.Context, db *sql.DB) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		dsn := c.String("dsn")
		if dsn == "" {
			return errors.New("dsn is required")
		}
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()

		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		return fn(c, db)
	}
}
