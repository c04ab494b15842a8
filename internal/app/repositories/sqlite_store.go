package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/db"
	"github.com/yigit/enrollment/internal/pkg/dberrors"
	"github.com/yigit/enrollment/internal/pkg/logger"
)

// sqlxQuerier is satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxQuerier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// SQLiteStore implements EnrollmentStore on the embedded SQLite database.
// Transactions begin IMMEDIATE on a single connection, which serializes writers.
type SQLiteStore struct {
	db *db.SQLiteDB
	q  queryBuilder
}

// NewSQLiteStore creates a new SQLiteStore
func NewSQLiteStore(database *db.SQLiteDB) *SQLiteStore {
	return &SQLiteStore{
		db: database,
		q:  newQueryBuilder(squirrel.Question, ""),
	}
}

var _ EnrollmentStore = (*SQLiteStore)(nil)

// InTx runs fn inside a transaction
func (s *SQLiteStore) InTx(ctx context.Context, fn func(ctx context.Context, tx EnrollmentTx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return fn(ctx, &sqliteEnrollmentTx{tx: tx, q: s.q})
	})
}

// GetCourse retrieves a course by ID
func (s *SQLiteStore) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	sqlStr, args, err := s.q.getCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}
	return sqliteGetCourse(ctx, s.db.DB, sqlStr, args, courseID)
}

// ListCourses retrieves every course ordered by ID
func (s *SQLiteStore) ListCourses(ctx context.Context) ([]*models.Course, error) {
	sqlStr, args, err := s.q.listCourses()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}
	return sqliteSelectCourses(ctx, s.db.DB, sqlStr, args)
}

// ListCoursesSharing retrieves courses with the same teacher or classroom
func (s *SQLiteStore) ListCoursesSharing(ctx context.Context, teacherID int64, classroom string) ([]*models.Course, error) {
	sqlStr, args, err := s.q.listCoursesSharing(teacherID, classroom)
	if err != nil {
		return nil, fmt.Errorf("failed to build list sharing courses query: %w", err)
	}
	return sqliteSelectCourses(ctx, s.db.DB, sqlStr, args)
}

// ListCoursesForStudent retrieves the courses a student actively holds
func (s *SQLiteStore) ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error) {
	sqlStr, args, err := s.q.listCoursesForStudent(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build student courses query: %w", err)
	}
	return sqliteSelectCourses(ctx, s.db.DB, sqlStr, args)
}

// ListActiveByStudent retrieves non-dropped selections for a student
func (s *SQLiteStore) ListActiveByStudent(ctx context.Context, studentID int64) ([]*models.CourseSelection, error) {
	sqlStr, args, err := s.q.listActive("student_id", studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build list selections query: %w", err)
	}
	return sqliteSelectSelections(ctx, s.db.DB, sqlStr, args)
}

// ListActiveByCourse retrieves non-dropped selections for a course
func (s *SQLiteStore) ListActiveByCourse(ctx context.Context, courseID int64) ([]*models.CourseSelection, error) {
	sqlStr, args, err := s.q.listActive("course_id", courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build list selections query: %w", err)
	}
	return sqliteSelectSelections(ctx, s.db.DB, sqlStr, args)
}

// CreateCourse inserts a course and returns its ID
func (s *SQLiteStore) CreateCourse(ctx context.Context, course *models.Course) (int64, error) {
	sqlStr, args, err := s.q.createCourse(course)
	if err != nil {
		return 0, fmt.Errorf("failed to build create course query: %w", err)
	}

	var id int64
	if err := s.db.DB.QueryRowxContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("code", course.Code).Msg("Error creating course")
		return 0, fmt.Errorf("error creating course: %w", err)
	}
	course.ID = id
	return id, nil
}

// CountCourses returns the number of courses
func (s *SQLiteStore) CountCourses(ctx context.Context) (int, error) {
	sqlStr, args, err := s.q.countCourses()
	if err != nil {
		return 0, fmt.Errorf("failed to build count courses query: %w", err)
	}
	var n int
	if err := s.db.DB.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("error counting courses: %w", err)
	}
	return n, nil
}

type sqliteEnrollmentTx struct {
	tx *sqlx.Tx
	q  queryBuilder
}

func (t *sqliteEnrollmentTx) LockCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	sqlStr, args, err := t.q.lockCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build lock course query: %w", err)
	}
	return sqliteGetCourse(ctx, t.tx, sqlStr, args, courseID)
}

// LockStudent is a no-op: the single connection already serializes write transactions.
func (t *sqliteEnrollmentTx) LockStudent(context.Context, int64) error {
	return nil
}

func (t *sqliteEnrollmentTx) GetSelection(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error) {
	sqlStr, args, err := t.q.getSelection(studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build get selection query: %w", err)
	}
	var sel models.CourseSelection
	if err := t.tx.GetContext(ctx, &sel, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying selection: %w", err)
	}
	return &sel, nil
}

func (t *sqliteEnrollmentTx) InsertSelection(ctx context.Context, sel *models.CourseSelection) error {
	sqlStr, args, err := t.q.insertSelection(sel)
	if err != nil {
		return fmt.Errorf("failed to build insert selection query: %w", err)
	}
	if err := t.tx.QueryRowxContext(ctx, sqlStr, args...).Scan(&sel.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, selectionPairConstraint) {
			return ErrDuplicateSelection
		}
		return fmt.Errorf("error inserting selection: %w", err)
	}
	return nil
}

func (t *sqliteEnrollmentTx) UpdateSelectionStatus(ctx context.Context, selectionID int64, status models.SelectionStatus, at time.Time) error {
	sqlStr, args, err := t.q.updateSelectionStatus(selectionID, status, at)
	if err != nil {
		return fmt.Errorf("failed to build update selection query: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("error updating selection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqliteEnrollmentTx) CountActive(ctx context.Context, courseID int64) (int, error) {
	sqlStr, args, err := t.q.countActive(courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int
	if err := t.tx.GetContext(ctx, &n, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("error counting active selections: %w", err)
	}
	return n, nil
}

func (t *sqliteEnrollmentTx) SetEnrolled(ctx context.Context, courseID int64, enrolled int) error {
	sqlStr, args, err := t.q.setEnrolled(courseID, enrolled)
	if err != nil {
		return fmt.Errorf("failed to build set enrolled query: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dberrors.IsCheckViolation(err) {
			return ErrCapacityGuard
		}
		return fmt.Errorf("error updating enrolled counter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCapacityGuard
	}
	return nil
}

func (t *sqliteEnrollmentTx) ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error) {
	sqlStr, args, err := t.q.listCoursesForStudent(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build student courses query: %w", err)
	}
	return sqliteSelectCourses(ctx, t.tx, sqlStr, args)
}

func sqliteGetCourse(ctx context.Context, qr sqlxQuerier, sqlStr string, args []interface{}, courseID int64) (*models.Course, error) {
	var course models.Course
	if err := qr.GetContext(ctx, &course, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("courseID", courseID).Msg("Error scanning course row")
		return nil, fmt.Errorf("error querying course: %w", err)
	}
	return &course, nil
}

func sqliteSelectCourses(ctx context.Context, qr sqlxQuerier, sqlStr string, args []interface{}) ([]*models.Course, error) {
	courses := []*models.Course{}
	if err := qr.SelectContext(ctx, &courses, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	return courses, nil
}

func sqliteSelectSelections(ctx context.Context, qr sqlxQuerier, sqlStr string, args []interface{}) ([]*models.CourseSelection, error) {
	sels := []*models.CourseSelection{}
	if err := qr.SelectContext(ctx, &sels, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("error querying selections: %w", err)
	}
	return sels, nil
}
