package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/migrations"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/app/schedule"
	"github.com/yigit/enrollment/internal/db"
)

func TestDefaultCoursesHaveValidSchedules(t *testing.T) {
	for _, c := range DefaultCourses {
		slots, warnings := schedule.ParseWithWarnings(c.Schedule)
		if len(warnings) > 0 || len(slots) == 0 {
			t.Errorf("%s: schedule %q parsed to %v with warnings %v", c.Code, c.Schedule, slots, warnings)
		}
	}
}

func TestCreateDefaultDataIsIdempotent(t *testing.T) {
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := migrations.NewSQLiteMigrator(database.DB, zerolog.Nop()).Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	store := repositories.NewSQLiteStore(database)

	for i := 0; i < 2; i++ {
		if err := CreateDefaultData(ctx, store, zerolog.Nop()); err != nil {
			t.Fatalf("CreateDefaultData #%d: %v", i, err)
		}
	}

	n, err := store.CountCourses(ctx)
	if err != nil {
		t.Fatalf("CountCourses: %v", err)
	}
	if n != len(DefaultCourses) {
		t.Fatalf("expected %d courses, got %d", len(DefaultCourses), n)
	}
}
