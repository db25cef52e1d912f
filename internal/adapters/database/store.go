package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/repositories"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/postgres"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/clients/sqlite"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
)

// Conn is a database client the store runs on
type Conn interface {
	DB() *sqlx.DB
	Dialect() string
	Close() error
}

// executor is satisfied by both *sqlx.DB and *sqlx.Tx
type executor interface {
	sqlx.ExtContext
}

// Store implements repositories.Store over PostgreSQL or SQLite
type Store struct {
	conn      Conn
	dialect   goqu.DialectWrapper
	txOptions *sql.TxOptions
}

// NewStore creates a store over an open connection
func NewStore(conn Conn) *Store {
	s := &Store{
		conn:    conn,
		dialect: goqu.Dialect(conn.Dialect()),
	}
	if conn.Dialect() == postgres.Dialect {
		// every read in a run must see the run-start state
		s.txOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	return s
}

// Open connects to the store described by cfg
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	var (
		conn Conn
		err  error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		conn, err = postgres.NewClient(ctx, cfg.Location)
	case config.DriverSQLite:
		conn, err = sqlite.NewClient(ctx, cfg.Location)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported store driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open store", err)
	}
	return NewStore(conn), nil
}

// WithinTx implements repositories.Store
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) (err error) {
	tx, err := s.conn.DB().BeginTxx(ctx, s.txOptions)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &storeTx{exec: tx, dialect: s.dialect, driver: s.conn.Dialect()}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	return nil
}

// SearchEntries implements repositories.Store
func (s *Store) SearchEntries() repositories.SearchEntryRepository {
	return NewSearchEntryAdapter(s.conn.DB(), s.dialect)
}

// Analysis implements repositories.Store
func (s *Store) Analysis() repositories.AnalysisRepository {
	return NewAnalysisAdapter(s.conn.DB(), s.dialect)
}

// Close implements repositories.Store
func (s *Store) Close() error {
	return s.conn.Close()
}

type storeTx struct {
	exec    executor
	dialect goqu.DialectWrapper
	driver  string
}

func (t *storeTx) Catalog() repositories.CatalogRepository {
	return NewCatalogAdapter(t.exec, t.dialect, t.driver)
}

func (t *storeTx) PriceRecords() repositories.PriceRecordRepository {
	return NewPriceRecordAdapter(t.exec, t.dialect)
}

func (t *storeTx) SearchEntries() repositories.SearchEntryRepository {
	return NewSearchEntryAdapter(t.exec, t.dialect)
}

// nullable turns a nil pointer into SQL NULL
func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// nullString stores empty strings as NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
