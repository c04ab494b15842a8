package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedded embed.FS

// runner applies scripts against one database dialect
type runner interface {
	ensureMigrationTable(ctx context.Context) error
	isMigrationApplied(ctx context.Context, version string) (bool, error)
	// apply runs script and records version in a single transaction
	apply(ctx context.Context, version, script string) error
}

// Migrator manages database migrations
type Migrator struct {
	runner  runner
	dialect string
	logger  zerolog.Logger
}

// NewPostgresMigrator creates a migrator backed by a pgx pool
func NewPostgresMigrator(pool *pgxpool.Pool, lgr zerolog.Logger) *Migrator {
	return &Migrator{runner: &pgRunner{db: pool}, dialect: "postgres", logger: lgr}
}

// NewSQLiteMigrator creates a migrator for the embedded store
func NewSQLiteMigrator(db *sqlx.DB, lgr zerolog.Logger) *Migrator {
	return &Migrator{runner: &sqliteRunner{db: db}, dialect: "sqlite", logger: lgr}
}

// Migrate applies the migrations bundled with the binary for this dialect.
func (m *Migrator) Migrate(ctx context.Context) error {
	return m.MigrateFromFS(ctx, embedded, m.dialect)
}

// MigrateFromFS applies every *.sql file in dir, in lexical order. The version
// is the filename prefix before the first underscore ("001_init.sql" => "001").
func (m *Migrator) MigrateFromFS(ctx context.Context, fsys fs.FS, dir string) error {
	if err := m.runner.ensureMigrationTable(ctx); err != nil {
		return err
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, name := range sqlFiles {
		version := strings.SplitN(name, "_", 2)[0]

		applied, err := m.runner.isMigrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			m.logger.Debug().Str("migration", name).Msg("Migration already applied, skipping")
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		if err := m.runner.apply(ctx, version, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		m.logger.Info().Str("migration", name).Str("dialect", m.dialect).Msg("Migration applied")
	}

	return nil
}

const createMigrationTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version VARCHAR(255) PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type pgRunner struct {
	db *pgxpool.Pool
}

func (r *pgRunner) ensureMigrationTable(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createMigrationTableSQL); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

func (r *pgRunner) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

func (r *pgRunner) apply(ctx context.Context, version, script string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, script); err != nil {
		return fmt.Errorf("error executing migration: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, version, time.Now()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit(ctx)
}

type sqliteRunner struct {
	db *sqlx.DB
}

func (r *sqliteRunner) ensureMigrationTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMigrationTableSQL); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

func (r *sqliteRunner) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return count > 0, nil
}

func (r *sqliteRunner) apply(ctx context.Context, version, script string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("error executing migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, version, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
