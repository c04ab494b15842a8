package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/db"
	"github.com/yigit/enrollment/internal/pkg/dberrors"
	"github.com/yigit/enrollment/internal/pkg/logger"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements EnrollmentStore on PostgreSQL. Course rows are
// locked with SELECT ... FOR UPDATE so selects on the same course serialize.
type PostgresStore struct {
	db *db.PostgresDB
	q  queryBuilder
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{
		db: database,
		q:  newQueryBuilder(squirrel.Dollar, "FOR UPDATE"),
	}
}

var _ EnrollmentStore = (*PostgresStore)(nil)

// InTx runs fn inside a transaction
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx EnrollmentTx) error) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgEnrollmentTx{tx: tx, q: s.q})
	})
}

// GetCourse retrieves a course by ID
func (s *PostgresStore) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	return pgGetCourse(ctx, s.db.Pool, s.q, courseID, false)
}

// ListCourses retrieves every course ordered by ID
func (s *PostgresStore) ListCourses(ctx context.Context) ([]*models.Course, error) {
	sql, args, err := s.q.listCourses()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}
	return pgCollectCourses(ctx, s.db.Pool, sql, args)
}

// ListCoursesSharing retrieves courses with the same teacher or classroom
func (s *PostgresStore) ListCoursesSharing(ctx context.Context, teacherID int64, classroom string) ([]*models.Course, error) {
	sql, args, err := s.q.listCoursesSharing(teacherID, classroom)
	if err != nil {
		return nil, fmt.Errorf("failed to build list sharing courses query: %w", err)
	}
	return pgCollectCourses(ctx, s.db.Pool, sql, args)
}

// ListCoursesForStudent retrieves the courses a student actively holds
func (s *PostgresStore) ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error) {
	return pgListCoursesForStudent(ctx, s.db.Pool, s.q, studentID)
}

// ListActiveByStudent retrieves non-dropped selections for a student
func (s *PostgresStore) ListActiveByStudent(ctx context.Context, studentID int64) ([]*models.CourseSelection, error) {
	sql, args, err := s.q.listActive("student_id", studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build list selections query: %w", err)
	}
	return pgCollectSelections(ctx, s.db.Pool, sql, args)
}

// ListActiveByCourse retrieves non-dropped selections for a course
func (s *PostgresStore) ListActiveByCourse(ctx context.Context, courseID int64) ([]*models.CourseSelection, error) {
	sql, args, err := s.q.listActive("course_id", courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build list selections query: %w", err)
	}
	return pgCollectSelections(ctx, s.db.Pool, sql, args)
}

// CreateCourse inserts a course and returns its ID
func (s *PostgresStore) CreateCourse(ctx context.Context, course *models.Course) (int64, error) {
	sql, args, err := s.q.createCourse(course)
	if err != nil {
		return 0, fmt.Errorf("failed to build create course query: %w", err)
	}

	var id int64
	if err := s.db.Pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		logger.Error().Err(err).Str("code", course.Code).Msg("Error creating course")
		return 0, fmt.Errorf("error creating course: %w", err)
	}
	course.ID = id
	return id, nil
}

// CountCourses returns the number of courses
func (s *PostgresStore) CountCourses(ctx context.Context) (int, error) {
	sql, args, err := s.q.countCourses()
	if err != nil {
		return 0, fmt.Errorf("failed to build count courses query: %w", err)
	}
	var n int
	if err := s.db.Pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting courses: %w", err)
	}
	return n, nil
}

type pgEnrollmentTx struct {
	tx pgx.Tx
	q  queryBuilder
}

func (t *pgEnrollmentTx) LockCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	return pgGetCourse(ctx, t.tx, t.q, courseID, true)
}

func (t *pgEnrollmentTx) LockStudent(ctx context.Context, studentID int64) error {
	sql, args, err := t.q.lockStudent(studentID)
	if err != nil {
		return fmt.Errorf("failed to build lock student query: %w", err)
	}
	if _, err := t.tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error locking student: %w", err)
	}
	return nil
}

func (t *pgEnrollmentTx) GetSelection(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error) {
	sql, args, err := t.q.getSelection(studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build get selection query: %w", err)
	}

	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying selection: %w", err)
	}
	sel, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.CourseSelection])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning selection: %w", err)
	}
	return sel, nil
}

func (t *pgEnrollmentTx) InsertSelection(ctx context.Context, sel *models.CourseSelection) error {
	sql, args, err := t.q.insertSelection(sel)
	if err != nil {
		return fmt.Errorf("failed to build insert selection query: %w", err)
	}
	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&sel.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, selectionPairConstraint) {
			return ErrDuplicateSelection
		}
		return fmt.Errorf("error inserting selection: %w", err)
	}
	return nil
}

func (t *pgEnrollmentTx) UpdateSelectionStatus(ctx context.Context, selectionID int64, status models.SelectionStatus, at time.Time) error {
	sql, args, err := t.q.updateSelectionStatus(selectionID, status, at)
	if err != nil {
		return fmt.Errorf("failed to build update selection query: %w", err)
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgEnrollmentTx) CountActive(ctx context.Context, courseID int64) (int, error) {
	sql, args, err := t.q.countActive(courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int
	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting active selections: %w", err)
	}
	return n, nil
}

func (t *pgEnrollmentTx) SetEnrolled(ctx context.Context, courseID int64, enrolled int) error {
	sql, args, err := t.q.setEnrolled(courseID, enrolled)
	if err != nil {
		return fmt.Errorf("failed to build set enrolled query: %w", err)
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsCheckViolation(err) {
			return ErrCapacityGuard
		}
		return fmt.Errorf("error updating enrolled counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCapacityGuard
	}
	return nil
}

func (t *pgEnrollmentTx) ListCoursesForStudent(ctx context.Context, studentID int64) ([]*models.Course, error) {
	return pgListCoursesForStudent(ctx, t.tx, t.q, studentID)
}

func pgGetCourse(ctx context.Context, qr pgQuerier, q queryBuilder, courseID int64, lock bool) (*models.Course, error) {
	build := q.getCourse
	if lock {
		build = q.lockCourse
	}
	sql, args, err := build(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	rows, err := qr.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying course: %w", err)
	}
	course, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Course])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("courseID", courseID).Msg("Error scanning course row")
		return nil, fmt.Errorf("error scanning course: %w", err)
	}
	return course, nil
}

func pgListCoursesForStudent(ctx context.Context, qr pgQuerier, q queryBuilder, studentID int64) ([]*models.Course, error) {
	sql, args, err := q.listCoursesForStudent(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to build student courses query: %w", err)
	}
	return pgCollectCourses(ctx, qr, sql, args)
}

func pgCollectCourses(ctx context.Context, qr pgQuerier, sql string, args []interface{}) ([]*models.Course, error) {
	rows, err := qr.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	courses, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Course])
	if err != nil {
		return nil, fmt.Errorf("error scanning course rows: %w", err)
	}
	return courses, nil
}

func pgCollectSelections(ctx context.Context, qr pgQuerier, sql string, args []interface{}) ([]*models.CourseSelection, error) {
	rows, err := qr.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying selections: %w", err)
	}
	sels, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.CourseSelection])
	if err != nil {
		return nil, fmt.Errorf("error scanning selection rows: %w", err)
	}
	return sels, nil
}
