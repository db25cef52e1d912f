package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect is the goqu dialect name for this store
const Dialect = "sqlite3"

// Client is a SQLite store backed by a single file
type Client struct {
	db   *sqlx.DB
	path string
}

// NewClient opens (and creates if needed) the SQLite database at path with
// foreign keys enforced
func NewClient(ctx context.Context, path string) (*Client, error) {
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer connection; a run holds it for its whole transaction
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite at %s: %w", path, err)
	}

	observability.LoggerFromContext(ctx).Info().Str("path", path).Msg("Opened SQLite store")
	return &Client{db: db, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// DB returns the underlying database connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Dialect returns the goqu dialect for SQLite
func (c *Client) Dialect() string {
	return Dialect
}

// Path returns the database file path
func (c *Client) Path() string {
	return c.path
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}
