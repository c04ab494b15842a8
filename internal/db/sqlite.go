package db

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/yigit/enrollment/internal/pkg/logger"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteDB is the embedded single-node store. All access goes through one
// connection so write transactions are serialized by database/sql itself.
type SQLiteDB struct {
	DB *sqlx.DB
}

// SQLiteDSN builds a modernc DSN with the pragmas the store depends on.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_time_format", "sqlite")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// NewSQLiteDB opens (creating if needed) the database file at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to establish sqlite connection: %w", err)
	}

	return &SQLiteDB{DB: conn}, nil
}

// Close closes the database
func (db *SQLiteDB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// SQLiteTransactionFn is a function that executes within a transaction
type SQLiteTransactionFn func(ctx context.Context, tx *sqlx.Tx) error

// WithTransaction mirrors PostgresDB.WithTransaction for the embedded store.
func (db *SQLiteDB) WithTransaction(ctx context.Context, fn SQLiteTransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
