package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/yigit/enrollment/internal/app/models"
)

// Shared repository errors
var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateSelection is returned when a (student, course) pair already has a row.
	ErrDuplicateSelection = errors.New("selection already exists for student and course")
	// ErrCapacityGuard is returned when a counter write would exceed course capacity.
	ErrCapacityGuard = errors.New("enrolled counter would exceed capacity")
)

// selectionPairConstraint is the unique constraint on (student_id, course_id)
const selectionPairConstraint = "uq_course_selections_student_course"

// CourseReader is the read accessor for course data outside a transaction.
type CourseReader interface {
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)
	ListCourses(ctx context.Context) ([]*models.Course, error)
	// ListCoursesSharing returns courses taught by teacherID or held in classroom.
	ListCoursesSharing(ctx context.Context, teacherID int64, classroom string) ([]*models.Course, error)
	ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error)
}

// SelectionReader lists active (non-dropped) selections.
type SelectionReader interface {
	ListActiveByStudent(ctx context.Context, studentID int64) ([]*models.CourseSelection, error)
	ListActiveByCourse(ctx context.Context, courseID int64) ([]*models.CourseSelection, error)
}

// EnrollmentTx is the scoped handle passed to InTx. Every call runs inside the
// same storage transaction.
type EnrollmentTx interface {
	// LockCourse loads the course and holds a write lock on it until the transaction ends.
	LockCourse(ctx context.Context, courseID int64) (*models.Course, error)
	// LockStudent serializes transactions of one student until the transaction ends.
	// Callers take it before any course lock.
	LockStudent(ctx context.Context, studentID int64) error
	GetSelection(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error)
	InsertSelection(ctx context.Context, sel *models.CourseSelection) error
	UpdateSelectionStatus(ctx context.Context, selectionID int64, status models.SelectionStatus, at time.Time) error
	CountActive(ctx context.Context, courseID int64) (int, error)
	// SetEnrolled writes the cached counter; it fails with ErrCapacityGuard if enrolled > capacity.
	SetEnrolled(ctx context.Context, courseID int64, enrolled int) error
	ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error)
}

// EnrollmentStore is the storage collaborator of the enrollment engine.
type EnrollmentStore interface {
	CourseReader
	SelectionReader

	// InTx runs fn in one transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx EnrollmentTx) error) error

	CreateCourse(ctx context.Context, course *models.Course) (int64, error)
	CountCourses(ctx context.Context) (int, error)
}
