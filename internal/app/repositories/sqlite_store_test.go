package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/migrations"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/db"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.NewSQLiteMigrator(database.DB, zerolog.Nop()).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewSQLiteStore(database)
}

func mustCreateCourse(t *testing.T, store *SQLiteStore, c *models.Course) *models.Course {
	t.Helper()
	if _, err := store.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	return c
}

func TestSQLiteStoreCourses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreateCourse(t, store, &models.Course{Code: "CS101", Name: "Programming", TeacherID: 1, Classroom: "A-101", Schedule: "一3-4节", Capacity: 30})
	mustCreateCourse(t, store, &models.Course{Code: "MA201", Name: "Calculus", TeacherID: 2, Classroom: "A-101", Schedule: "二1-2节", Capacity: 40})
	mustCreateCourse(t, store, &models.Course{Code: "PH110", Name: "Physics", TeacherID: 3, Classroom: "C-300", Schedule: "三1-2节", Capacity: 20})

	got, err := store.GetCourse(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if *got != *a {
		t.Fatalf("GetCourse = %+v, want %+v", got, a)
	}

	if _, err := store.GetCourse(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := store.ListCourses(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListCourses = %d, %v", len(all), err)
	}
	if n, err := store.CountCourses(ctx); err != nil || n != 3 {
		t.Fatalf("CountCourses = %d, %v", n, err)
	}

	sharing, err := store.ListCoursesSharing(ctx, 1, "A-101")
	if err != nil {
		t.Fatalf("ListCoursesSharing: %v", err)
	}
	if len(sharing) != 2 {
		t.Fatalf("expected 2 sharing courses, got %d", len(sharing))
	}
}

func TestSQLiteStoreSelectionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := mustCreateCourse(t, store, &models.Course{Code: "CS101", Name: "Programming", TeacherID: 1, Capacity: 2})

	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	err := store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		locked, err := tx.LockCourse(ctx, course.ID)
		if err != nil {
			return err
		}
		if locked.Capacity != 2 {
			t.Errorf("unexpected locked course %+v", locked)
		}
		sel := &models.CourseSelection{StudentID: 100, CourseID: course.ID, Status: models.SelectionStatusSelected, SelectionTime: first}
		if err := tx.InsertSelection(ctx, sel); err != nil {
			return err
		}
		if sel.ID == 0 {
			t.Error("expected inserted selection id")
		}
		n, err := tx.CountActive(ctx, course.ID)
		if err != nil {
			return err
		}
		return tx.SetEnrolled(ctx, course.ID, n)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	got, _ := store.GetCourse(ctx, course.ID)
	if got.Enrolled != 1 {
		t.Fatalf("expected enrolled 1, got %d", got.Enrolled)
	}

	err = store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		dup := &models.CourseSelection{StudentID: 100, CourseID: course.ID, Status: models.SelectionStatusSelected, SelectionTime: first}
		return tx.InsertSelection(ctx, dup)
	})
	if !errors.Is(err, ErrDuplicateSelection) {
		t.Fatalf("expected ErrDuplicateSelection, got %v", err)
	}

	later := first.Add(time.Hour)
	err = store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		sel, err := tx.GetSelection(ctx, 100, course.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateSelectionStatus(ctx, sel.ID, models.SelectionStatusDropped, later); err != nil {
			return err
		}
		dropped, err := tx.GetSelection(ctx, 100, course.ID)
		if err != nil {
			return err
		}
		if dropped.Status != models.SelectionStatusDropped || !dropped.SelectionTime.Equal(first) {
			t.Errorf("drop must keep the activation time, got %+v", dropped)
		}
		if err := tx.UpdateSelectionStatus(ctx, sel.ID, models.SelectionStatusSelected, later); err != nil {
			return err
		}
		again, err := tx.GetSelection(ctx, 100, course.ID)
		if err != nil {
			return err
		}
		if again.ID != sel.ID || !again.SelectionTime.Equal(later) {
			t.Errorf("reactivation must reuse the row and refresh the time, got %+v", again)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	err = store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		_, err := tx.GetSelection(ctx, 999, course.ID)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	active, err := store.ListActiveByCourse(ctx, course.ID)
	if err != nil || len(active) != 1 {
		t.Fatalf("ListActiveByCourse = %d, %v", len(active), err)
	}
	mine, err := store.ListCoursesForStudent(ctx, 100)
	if err != nil || len(mine) != 1 || mine[0].ID != course.ID {
		t.Fatalf("ListCoursesForStudent = %+v, %v", mine, err)
	}
}

func TestSQLiteStoreLockStudent(t *testing.T) {
	store := newTestStore(t)
	err := store.InTx(context.Background(), func(ctx context.Context, tx EnrollmentTx) error {
		return tx.LockStudent(ctx, 42)
	})
	if err != nil {
		t.Fatalf("LockStudent: %v", err)
	}
}

func TestSQLiteStoreSetEnrolledGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := mustCreateCourse(t, store, &models.Course{Code: "CS101", Name: "Programming", TeacherID: 1, Capacity: 1})

	err := store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		return tx.SetEnrolled(ctx, course.ID, 2)
	})
	if !errors.Is(err, ErrCapacityGuard) {
		t.Fatalf("expected ErrCapacityGuard, got %v", err)
	}

	got, _ := store.GetCourse(ctx, course.ID)
	if got.Enrolled != 0 {
		t.Fatalf("counter must be untouched, got %d", got.Enrolled)
	}
}

func TestSQLiteStoreListActiveExcludesDropped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	course := mustCreateCourse(t, store, &models.Course{Code: "CS101", Name: "Programming", TeacherID: 1, Capacity: 10})

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	statuses := []models.SelectionStatus{models.SelectionStatusSelected, models.SelectionStatusDropped, models.SelectionStatusCompleted}
	err := store.InTx(ctx, func(ctx context.Context, tx EnrollmentTx) error {
		for i, st := range statuses {
			sel := &models.CourseSelection{StudentID: int64(200 + i), CourseID: course.ID, Status: st, SelectionTime: base.Add(time.Duration(i) * time.Minute)}
			if err := tx.InsertSelection(ctx, sel); err != nil {
				return err
			}
		}
		n, err := tx.CountActive(ctx, course.ID)
		if err != nil {
			return err
		}
		if n != 2 {
			t.Errorf("CountActive = %d, want 2", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	active, err := store.ListActiveByCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("ListActiveByCourse: %v", err)
	}
	if len(active) != 2 || active[0].StudentID != 200 || active[1].StudentID != 202 {
		t.Fatalf("unexpected active selections %+v", active)
	}

	byStudent, err := store.ListActiveByStudent(ctx, 201)
	if err != nil || len(byStudent) != 0 {
		t.Fatalf("dropped student should have no active rows, got %d, %v", len(byStudent), err)
	}
}
