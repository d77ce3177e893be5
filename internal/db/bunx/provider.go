package bunx

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/wilschoy78/school-mis-api/internal/logging"
)

// DatabaseType represents the type of database
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

// DetectDatabaseType determines the database type from a DSN string
func DetectDatabaseType(dsn string) DatabaseType {
	// PostgreSQL DSN patterns (pgdriver also accepts unix:// sockets)
	for _, prefix := range []string{"postgres://", "postgresql://", "unix://"} {
		if strings.HasPrefix(dsn, prefix) {
			return DatabaseTypePostgreSQL
		}
	}
	// SQLite patterns: file:, :memory:, or plain file path
	return DatabaseTypeSQLite
}

type options struct {
	maxConns     int
	pingAttempts uint
	pingDelay    time.Duration
	logger       *slog.Logger
}

// Option customizes NewDB.
type Option func(*options)

// WithMaxConns sets the PostgreSQL pool size. SQLite always uses one connection.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithPingRetry retries the initial connectivity check with exponential backoff.
func WithPingRetry(attempts uint, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.pingAttempts = attempts
		}
		if delay > 0 {
			o.pingDelay = delay
		}
	}
}

// WithLogger sets the logger used to report retried pings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewDB creates a new Bun database instance for PostgreSQL or SQLite based on DSN
func NewDB(dsn string, opts ...Option) (*bun.DB, error) {
	o := options{maxConns: 25, pingAttempts: 1, pingDelay: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDiscard(o.logger)

	switch DetectDatabaseType(dsn) {
	case DatabaseTypePostgreSQL:
		return newPostgreSQLDB(dsn, o)
	case DatabaseTypeSQLite:
		return newSQLiteDB(dsn, o)
	default:
		return nil, fmt.Errorf("unsupported database type for DSN: %s", dsn)
	}
}

// newPostgreSQLDB creates a PostgreSQL connection
func newPostgreSQLDB(dsn string, o options) (*bun.DB, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	sqldb := sql.OpenDB(connector)

	sqldb.SetMaxOpenConns(o.maxConns)
	sqldb.SetMaxIdleConns(o.maxConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := ping(db, o); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// newSQLiteDB creates a SQLite connection using modernc.org/sqlite driver
func newSQLiteDB(dsn string, o options) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Single writer connection. This also keeps :memory: databases alive.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	// Foreign keys are disabled by default in SQLite; account_roles relies on cascade.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := ping(db, o); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

func ping(db *bun.DB, o options) error {
	err := retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		retry.Attempts(o.pingAttempts),
		retry.Delay(o.pingDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Warn("database not reachable, retrying", "attempt", n+1, logging.Err(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close closes the database connection
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
