package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/app/schedule"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
	"github.com/yigit/enrollment/internal/pkg/dberrors"
	"github.com/yigit/enrollment/internal/pkg/notify"
)

// EnrollmentOptions tunes the admission engine
type EnrollmentOptions struct {
	// EnforceTimeConflicts rejects a selection that overlaps the student's timetable.
	EnforceTimeConflicts bool
	// MaxRetries bounds how often a transaction aborted by a concurrent writer is retried.
	MaxRetries int
}

// EnrollmentService defines the interface for selecting and dropping courses
type EnrollmentService interface {
	Select(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error)
	Drop(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error)
	ListActiveForStudent(ctx context.Context, studentID int64) ([]*models.CourseSelection, error)
	ListActiveForCourse(ctx context.Context, courseID int64) ([]*models.CourseSelection, error)
}

// enrollmentServiceImpl implements EnrollmentService
type enrollmentServiceImpl struct {
	store      repositories.EnrollmentStore
	reconciler ReconciliationService
	notifier   notify.Notifier
	opts       EnrollmentOptions
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	store repositories.EnrollmentStore,
	reconciler ReconciliationService,
	notifier notify.Notifier,
	opts EnrollmentOptions,
	logger zerolog.Logger,
) EnrollmentService {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &enrollmentServiceImpl{
		store:      store,
		reconciler: reconciler,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Select gives the student a seat in the course, creating or reactivating their selection row
func (s *enrollmentServiceImpl) Select(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error) {
	if err := validateIDs(studentID, courseID); err != nil {
		return nil, err
	}

	var (
		result *models.CourseSelection
		course *models.Course
	)
	err := s.inTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		// the timetable check reads other courses, so concurrent selects of the
		// same student must not interleave
		if s.opts.EnforceTimeConflicts {
			if err := tx.LockStudent(ctx, studentID); err != nil {
				return fmt.Errorf("error locking student: %w", err)
			}
		}

		c, _, err := s.lockCourse(ctx, tx, courseID, false)
		if err != nil {
			return err
		}

		sel, err := tx.GetSelection(ctx, studentID, courseID)
		exists := err == nil
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("error loading selection: %w", err)
		}
		if exists && sel.Status.Active() {
			return apperrors.ErrAlreadySelected
		}

		if c.Enrolled >= c.Capacity {
			return fmt.Errorf("%w: %d of %d seats taken", apperrors.ErrCourseFull, c.Enrolled, c.Capacity)
		}

		if s.opts.EnforceTimeConflicts {
			if err := s.checkTimetable(ctx, tx, studentID, c); err != nil {
				return err
			}
		}

		now := s.now()
		if exists {
			if err := tx.UpdateSelectionStatus(ctx, sel.ID, models.SelectionStatusSelected, now); err != nil {
				return fmt.Errorf("error reactivating selection: %w", err)
			}
			sel.Status = models.SelectionStatusSelected
			sel.SelectionTime = now
		} else {
			sel = &models.CourseSelection{
				StudentID:     studentID,
				CourseID:      courseID,
				Status:        models.SelectionStatusSelected,
				SelectionTime: now,
			}
			if err := tx.InsertSelection(ctx, sel); err != nil {
				if errors.Is(err, repositories.ErrDuplicateSelection) {
					return apperrors.ErrAlreadySelected
				}
				return fmt.Errorf("error inserting selection: %w", err)
			}
		}

		n, err := s.reconciler.Recount(ctx, tx, courseID)
		if err != nil {
			return err
		}
		c.Enrolled = n

		result, course = sel, c
		return nil
	})
	if err != nil {
		s.logFailure(err, "select", studentID, courseID)
		return nil, err
	}

	s.logger.Info().
		Int64("studentId", studentID).
		Int64("courseId", courseID).
		Int("enrolled", course.Enrolled).
		Int("capacity", course.Capacity).
		Msg("Course selected")
	s.publish(ctx, notify.EventSelected, result, course)
	return result, nil
}

// Drop releases the student's seat. The row is kept with status DROPPED.
func (s *enrollmentServiceImpl) Drop(ctx context.Context, studentID, courseID int64) (*models.CourseSelection, error) {
	if err := validateIDs(studentID, courseID); err != nil {
		return nil, err
	}

	var (
		result *models.CourseSelection
		course *models.Course
	)
	err := s.inTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		c, active, err := s.lockCourse(ctx, tx, courseID, true)
		if err != nil {
			return err
		}

		sel, err := tx.GetSelection(ctx, studentID, courseID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrSelectionNotFound
			}
			return fmt.Errorf("error loading selection: %w", err)
		}

		switch sel.Status {
		case models.SelectionStatusDropped:
			return apperrors.ErrAlreadyDropped
		case models.SelectionStatusCompleted:
			return apperrors.ErrSelectionCompleted
		}

		if err := tx.UpdateSelectionStatus(ctx, sel.ID, models.SelectionStatusDropped, s.now()); err != nil {
			return fmt.Errorf("error dropping selection: %w", err)
		}
		sel.Status = models.SelectionStatusDropped
		active--

		// still over capacity: the guarded counter write would fail, a later drop repairs it
		if active > c.Capacity {
			s.logger.Warn().
				Int64("courseId", courseID).
				Int("actual", active).
				Int("capacity", c.Capacity).
				Msg("Course still over capacity after drop, counter left unchanged")
			result, course = sel, c
			return nil
		}

		n, err := s.reconciler.Recount(ctx, tx, courseID)
		if err != nil {
			return err
		}
		c.Enrolled = n

		result, course = sel, c
		return nil
	})
	if err != nil {
		s.logFailure(err, "drop", studentID, courseID)
		return nil, err
	}

	s.logger.Info().
		Int64("studentId", studentID).
		Int64("courseId", courseID).
		Int("enrolled", course.Enrolled).
		Msg("Course dropped")
	s.publish(ctx, notify.EventDropped, result, course)
	return result, nil
}

// ListActiveForStudent returns the student's non-dropped selections
func (s *enrollmentServiceImpl) ListActiveForStudent(ctx context.Context, studentID int64) ([]*models.CourseSelection, error) {
	if studentID <= 0 {
		return nil, apperrors.NewValidationError("studentId", "student ID must be positive")
	}

	selections, err := s.store.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: error listing selections: %w", apperrors.ErrTransientStorage, err)
	}
	return selections, nil
}

// ListActiveForCourse returns the course roster
func (s *enrollmentServiceImpl) ListActiveForCourse(ctx context.Context, courseID int64) ([]*models.CourseSelection, error) {
	if courseID <= 0 {
		return nil, apperrors.NewValidationError("courseId", "course ID must be positive")
	}

	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("%w: error loading course: %w", apperrors.ErrTransientStorage, err)
	}

	selections, err := s.store.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: error listing roster: %w", apperrors.ErrTransientStorage, err)
	}
	return selections, nil
}

// lockCourse locks the course row and returns it with its active row count.
// Drift stops the call, except that a release may go ahead when the counter
// only misses active rows: dropping one moves the course back toward consistency.
func (s *enrollmentServiceImpl) lockCourse(ctx context.Context, tx repositories.EnrollmentTx, courseID int64, releasing bool) (*models.Course, int, error) {
	c, err := tx.LockCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, 0, apperrors.ErrCourseNotFound
		}
		return nil, 0, fmt.Errorf("error locking course: %w", err)
	}

	n, err := tx.CountActive(ctx, courseID)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting active selections: %w", err)
	}
	if n == c.Enrolled {
		return c, n, nil
	}

	if releasing && n > c.Enrolled {
		s.logger.Warn().
			Int64("courseId", courseID).
			Int("cached", c.Enrolled).
			Int("actual", n).
			Msg("Enrolled counter drift detected, allowing release")
		return c, n, nil
	}

	s.logger.Error().
		Int64("courseId", courseID).
		Int("cached", c.Enrolled).
		Int("actual", n).
		Msg("Enrolled counter drift detected, run reconciliation")
	return nil, 0, fmt.Errorf("%w: course %d cached %d, actual %d", apperrors.ErrConsistencyViolation, courseID, c.Enrolled, n)
}

// checkTimetable rejects the course if it overlaps any course the student already holds
func (s *enrollmentServiceImpl) checkTimetable(ctx context.Context, tx repositories.EnrollmentTx, studentID int64, c *models.Course) error {
	timetable, err := tx.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("error loading timetable: %w", err)
	}

	others := make([]*models.Course, 0, len(timetable))
	for _, t := range timetable {
		if t.ID != c.ID {
			others = append(others, t)
		}
	}

	lines := schedule.PersonalConflicts(schedule.Parse(c.Schedule), others)
	if len(lines) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrTimeConflict, lines[0].String())
	}
	return nil
}

// inTx runs fn in a transaction, retrying when a concurrent writer aborted it.
// Storage faults come back wrapped in ErrTransientStorage; business errors pass through.
func (s *enrollmentServiceImpl) inTx(ctx context.Context, fn func(ctx context.Context, tx repositories.EnrollmentTx) error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		err = s.store.InTx(ctx, fn)
		if err == nil || isBusinessError(err) {
			return err
		}
		if !dberrors.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Retrying enrollment transaction")
	}
	return fmt.Errorf("%w: %w", apperrors.ErrTransientStorage, err)
}

func (s *enrollmentServiceImpl) publish(ctx context.Context, kind notify.EventKind, sel *models.CourseSelection, c *models.Course) {
	if s.notifier == nil {
		return
	}

	event := notify.EnrollmentEvent{
		Kind:       kind,
		StudentID:  sel.StudentID,
		CourseID:   c.ID,
		CourseCode: c.Code,
		CourseName: c.Name,
		At:         s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Int64("studentId", sel.StudentID).
			Int64("courseId", c.ID).
			Msg("Failed to send enrollment notification")
	}
}

func (s *enrollmentServiceImpl) logFailure(err error, op string, studentID, courseID int64) {
	event := s.logger.Debug()
	if !isBusinessError(err) || errors.Is(err, apperrors.ErrConsistencyViolation) {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("op", op).
		Int64("studentId", studentID).
		Int64("courseId", courseID).
		Msg("Enrollment request rejected")
}

func isBusinessError(err error) bool {
	return apperrors.Is(err,
		apperrors.ErrCourseNotFound,
		apperrors.ErrSelectionNotFound,
		apperrors.ErrAlreadySelected,
		apperrors.ErrAlreadyDropped,
		apperrors.ErrCourseFull,
		apperrors.ErrTimeConflict,
		apperrors.ErrSelectionCompleted,
		apperrors.ErrConsistencyViolation,
		apperrors.ErrValidationFailed,
	)
}

func validateIDs(studentID, courseID int64) error {
	if studentID <= 0 {
		return apperrors.NewValidationError("studentId", "student ID must be positive")
	}
	if courseID <= 0 {
		return apperrors.NewValidationError("courseId", "course ID must be positive")
	}
	return nil
}
