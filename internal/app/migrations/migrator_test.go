package migrations

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/db"
)

func newSQLiteMigrator(t *testing.T) (*Migrator, *db.SQLiteDB) {
	t.Helper()
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return NewSQLiteMigrator(database.DB, zerolog.Nop()), database
}

func TestMigrateEmbeddedSQLite(t *testing.T) {
	m, database := newSQLiteMigrator(t)
	ctx := context.Background()

	if err := m.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// second run is a no-op
	if err := m.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var tables int
	err := database.DB.Get(&tables, `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('courses', 'course_selections')`)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if tables != 2 {
		t.Fatalf("expected both tables, got %d", tables)
	}

	if _, err := database.DB.Exec(`INSERT INTO courses (code, name, teacher_id, capacity, enrolled) VALUES ('X1', 'X', 1, 1, 2)`); err == nil {
		t.Fatal("expected CHECK constraint to reject enrolled > capacity")
	}
}

func TestMigrateFromFSOrderAndVersions(t *testing.T) {
	m, database := newSQLiteMigrator(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/002_add.sql":  {Data: []byte(`INSERT INTO notes (body) VALUES ('second');`)},
		"m/001_init.sql": {Data: []byte(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT); INSERT INTO notes (body) VALUES ('first');`)},
		"m/README.md":    {Data: []byte(`ignored`)},
	}
	if err := m.MigrateFromFS(ctx, fsys, "m"); err != nil {
		t.Fatalf("MigrateFromFS: %v", err)
	}
	if err := m.MigrateFromFS(ctx, fsys, "m"); err != nil {
		t.Fatalf("rerun MigrateFromFS: %v", err)
	}

	var bodies []string
	if err := database.DB.Select(&bodies, `SELECT body FROM notes ORDER BY id`); err != nil {
		t.Fatalf("select notes: %v", err)
	}
	if len(bodies) != 2 || bodies[0] != "first" || bodies[1] != "second" {
		t.Fatalf("unexpected rows %v", bodies)
	}

	var versions []string
	if err := database.DB.Select(&versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		t.Fatalf("select versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != "001" || versions[1] != "002" {
		t.Fatalf("unexpected versions %v", versions)
	}
}

func TestMigrateFromFSFailureRollsBack(t *testing.T) {
	m, database := newSQLiteMigrator(t)

	fsys := fstest.MapFS{
		"bad/001_broken.sql": {Data: []byte(`CREATE TABLE ok (id INTEGER); THIS IS NOT SQL;`)},
	}
	if err := m.MigrateFromFS(context.Background(), fsys, "bad"); err == nil {
		t.Fatal("expected migration error")
	}

	var count int
	if err := database.DB.Get(&count, `SELECT COUNT(1) FROM schema_migrations`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed migration must not be recorded, got %d", count)
	}
}
