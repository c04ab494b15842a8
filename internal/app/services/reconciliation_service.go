package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
)

// ReconcileReport summarizes a pass over every course counter
type ReconcileReport struct {
	Checked    int
	Repaired   int
	DryRun     bool
	Violations []models.CounterDrift
}

// ReconciliationService keeps courses.enrolled equal to the number of active selections
type ReconciliationService interface {
	// Recount recomputes the counter inside the caller's transaction and writes it back.
	Recount(ctx context.Context, tx repositories.EnrollmentTx, courseID int64) (int, error)
	// ReconcileAll repairs every drifted counter, one transaction per course.
	ReconcileAll(ctx context.Context) (*ReconcileReport, error)
	// VerifyAll reports drift without writing anything.
	VerifyAll(ctx context.Context) (*ReconcileReport, error)
}

// reconciliationServiceImpl implements ReconciliationService
type reconciliationServiceImpl struct {
	store  repositories.EnrollmentStore
	logger zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(store repositories.EnrollmentStore, logger zerolog.Logger) ReconciliationService {
	return &reconciliationServiceImpl{
		store:  store,
		logger: logger,
	}
}

// Recount counts active rows and stores the result on the course
func (s *reconciliationServiceImpl) Recount(ctx context.Context, tx repositories.EnrollmentTx, courseID int64) (int, error) {
	n, err := tx.CountActive(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("error counting active selections: %w", err)
	}

	if err := tx.SetEnrolled(ctx, courseID, n); err != nil {
		if errors.Is(err, repositories.ErrCapacityGuard) {
			s.logger.Error().
				Int64("courseId", courseID).
				Int("actual", n).
				Msg("Active selections exceed course capacity")
			return 0, fmt.Errorf("%w: course %d has %d active selections over capacity", apperrors.ErrConsistencyViolation, courseID, n)
		}
		return 0, fmt.Errorf("error writing enrolled counter: %w", err)
	}

	return n, nil
}

// ReconcileAll recomputes and repairs every course counter
func (s *reconciliationServiceImpl) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	return s.run(ctx, false)
}

// VerifyAll recomputes every course counter and repairs nothing
func (s *reconciliationServiceImpl) VerifyAll(ctx context.Context) (*ReconcileReport, error) {
	return s.run(ctx, true)
}

func (s *reconciliationServiceImpl) run(ctx context.Context, dryRun bool) (*ReconcileReport, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: error listing courses: %w", apperrors.ErrTransientStorage, err)
	}

	report := &ReconcileReport{DryRun: dryRun, Violations: []models.CounterDrift{}}
	var errs []error

	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		drift, repaired, err := s.reconcileCourse(ctx, c.ID, dryRun)
		if err != nil {
			s.logger.Error().Err(err).Int64("courseId", c.ID).Msg("Failed to reconcile course")
			errs = append(errs, fmt.Errorf("course %d: %w", c.ID, err))
			continue
		}

		report.Checked++
		if drift == nil {
			continue
		}

		report.Violations = append(report.Violations, *drift)
		if repaired {
			report.Repaired++
		}
		s.logger.Error().
			Int64("courseId", drift.CourseID).
			Str("code", drift.Code).
			Int("cached", drift.Cached).
			Int("actual", drift.Actual).
			Int("capacity", drift.Capacity).
			Bool("repaired", repaired).
			Msg("Enrolled counter drift detected")
	}

	if len(errs) > 0 {
		return report, fmt.Errorf("%w: %w", apperrors.ErrTransientStorage, errors.Join(errs...))
	}

	s.logger.Info().
		Int("checked", report.Checked).
		Int("drifted", len(report.Violations)).
		Int("repaired", report.Repaired).
		Bool("dryRun", dryRun).
		Msg("Counter reconciliation finished")
	return report, nil
}

// reconcileCourse locks one course and compares its counter with the real count.
// Over-capacity drift is reported but never written, the CHECK constraint would reject it.
func (s *reconciliationServiceImpl) reconcileCourse(ctx context.Context, courseID int64, dryRun bool) (*models.CounterDrift, bool, error) {
	var drift *models.CounterDrift
	repaired := false

	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		course, err := tx.LockCourse(ctx, courseID)
		if err != nil {
			return err
		}

		n, err := tx.CountActive(ctx, courseID)
		if err != nil {
			return err
		}
		if n == course.Enrolled {
			return nil
		}

		drift = &models.CounterDrift{
			CourseID: course.ID,
			Code:     course.Code,
			Cached:   course.Enrolled,
			Actual:   n,
			Capacity: course.Capacity,
		}
		if dryRun || drift.OverCapacity() {
			return nil
		}

		if err := tx.SetEnrolled(ctx, courseID, n); err != nil {
			return err
		}
		repaired = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return drift, repaired, nil
}
