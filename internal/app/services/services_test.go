package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/migrations"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/db"
	"github.com/yigit/enrollment/internal/pkg/notify"
)

type testEnv struct {
	db         *db.SQLiteDB
	store      *repositories.SQLiteStore
	reconciler ReconciliationService
	notifier   *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "enrollment.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.NewSQLiteMigrator(database.DB, zerolog.Nop()).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	store := repositories.NewSQLiteStore(database)
	return &testEnv{
		db:         database,
		store:      store,
		reconciler: NewReconciliationService(store, zerolog.Nop()),
		notifier:   &recordingNotifier{},
	}
}

func (e *testEnv) engine(opts EnrollmentOptions) EnrollmentService {
	return NewEnrollmentService(e.store, e.reconciler, e.notifier, opts, zerolog.Nop())
}

func (e *testEnv) course(t *testing.T, c models.Course) *models.Course {
	t.Helper()
	if _, err := e.store.CreateCourse(context.Background(), &c); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	return &c
}

// forceEnrolled writes the cached counter behind the engine's back
func (e *testEnv) forceEnrolled(t *testing.T, courseID int64, enrolled int) {
	t.Helper()
	if _, err := e.db.DB.Exec("UPDATE courses SET enrolled = ? WHERE id = ?", enrolled, courseID); err != nil {
		t.Fatalf("force enrolled: %v", err)
	}
}

// forceStatus rewrites a selection status behind the engine's back
func (e *testEnv) forceStatus(t *testing.T, studentID, courseID int64, status models.SelectionStatus) {
	t.Helper()
	if _, err := e.db.DB.Exec("UPDATE course_selections SET status = ? WHERE student_id = ? AND course_id = ?", string(status), studentID, courseID); err != nil {
		t.Fatalf("force status: %v", err)
	}
}

// insertActive writes a SELECTED row without touching the counter
func (e *testEnv) insertActive(t *testing.T, studentID, courseID int64) {
	t.Helper()
	if _, err := e.db.DB.Exec(
		"INSERT INTO course_selections (student_id, course_id, status, selection_time) VALUES (?, ?, 'SELECTED', CURRENT_TIMESTAMP)",
		studentID, courseID,
	); err != nil {
		t.Fatalf("insert selection: %v", err)
	}
}

func (e *testEnv) enrolled(t *testing.T, courseID int64) int {
	t.Helper()
	c, err := e.store.GetCourse(context.Background(), courseID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	return c.Enrolled
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.EnrollmentEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.EnrollmentEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
