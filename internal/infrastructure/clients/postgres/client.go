package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/retry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Dialect is the goqu dialect name for this store
const Dialect = "postgres"

// Client represents a PostgreSQL database client
type Client struct {
	db *sqlx.DB
}

// NewClient opens a PostgreSQL connection with exponential backoff retry.
// dsn may be a postgres:// URL or a key=value connection string.
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := observability.LoggerFromContext(ctx)
	err = retry.DoWithLog(
		ctx,
		retry.DefaultConfig(),
		"PostgreSQL",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	logger.Info().Msg("Successfully connected to PostgreSQL")
	return &Client{db: db}, nil
}

// DB returns the underlying database connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Dialect returns the goqu dialect for PostgreSQL
func (c *Client) Dialect() string {
	return Dialect
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
