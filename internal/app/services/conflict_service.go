package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/app/models/dto"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/app/schedule"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
)

// ConflictService answers informational schedule-conflict questions.
// It never enforces anything; enforcement lives in EnrollmentService.
type ConflictService interface {
	DescribeCourseConflicts(ctx context.Context, courseID int64) (*dto.ConflictCheckResponse, error)
	CheckPersonalConflicts(ctx context.Context, studentID, courseID int64) (*dto.ConflictCheckResponse, error)
	StudentTimetable(ctx context.Context, studentID int64) ([]dto.TimetableEntry, error)
}

// conflictServiceImpl implements ConflictService
type conflictServiceImpl struct {
	courses repositories.CourseReader
	logger  zerolog.Logger
}

// NewConflictService creates a new ConflictService
func NewConflictService(courses repositories.CourseReader, logger zerolog.Logger) ConflictService {
	return &conflictServiceImpl{
		courses: courses,
		logger:  logger,
	}
}

// DescribeCourseConflicts lists courses sharing the teacher or classroom whose slots overlap
func (s *conflictServiceImpl) DescribeCourseConflicts(ctx context.Context, courseID int64) (*dto.ConflictCheckResponse, error) {
	course, err := s.subject(ctx, courseID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.courses.ListCoursesSharing(ctx, course.TeacherID, course.Classroom)
	if err != nil {
		s.logger.Warn().Err(err).Int64("courseId", courseID).Msg("Could not load conflict candidates, reporting none")
		candidates = nil
	}

	report := schedule.DescribeConflicts(s.slotsOf(course), course.TeacherID, course.Classroom, without(candidates, course.ID))
	return &dto.ConflictCheckResponse{
		CourseID:  course.ID,
		SeatsLeft: course.SeatsLeft(),
		Conflicts: report.Lines,
		Summary:   report.String(),
	}, nil
}

// CheckPersonalConflicts compares the course with the student's current timetable
func (s *conflictServiceImpl) CheckPersonalConflicts(ctx context.Context, studentID, courseID int64) (*dto.ConflictCheckResponse, error) {
	if studentID <= 0 {
		return nil, apperrors.NewValidationError("studentId", "student ID must be positive")
	}
	course, err := s.subject(ctx, courseID)
	if err != nil {
		return nil, err
	}

	timetable, err := s.courses.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("studentId", studentID).Msg("Could not load timetable, reporting no conflicts")
		timetable = nil
	}

	lines := schedule.PersonalConflicts(s.slotsOf(course), without(timetable, course.ID))
	return &dto.ConflictCheckResponse{
		CourseID:  course.ID,
		SeatsLeft: course.SeatsLeft(),
		Conflicts: lines,
		Summary:   schedule.Report{Lines: lines}.String(),
	}, nil
}

// StudentTimetable returns the student's active courses ordered by their first slot
func (s *conflictServiceImpl) StudentTimetable(ctx context.Context, studentID int64) ([]dto.TimetableEntry, error) {
	if studentID <= 0 {
		return nil, apperrors.NewValidationError("studentId", "student ID must be positive")
	}

	courses, err := s.courses.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: error loading timetable: %w", apperrors.ErrTransientStorage, err)
	}

	entries := make([]dto.TimetableEntry, 0, len(courses))
	for _, c := range courses {
		slots := s.slotsOf(c)
		sort.SliceStable(slots, func(i, j int) bool { return schedule.Less(slots[i], slots[j]) })
		entries = append(entries, dto.TimetableEntry{
			CourseID:  c.ID,
			Code:      c.Code,
			Name:      c.Name,
			Classroom: c.Classroom,
			Schedule:  c.Schedule,
			Slots:     slots,
		})
	}

	// courses without a parseable schedule go last
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Slots, entries[j].Slots
		if len(a) == 0 || len(b) == 0 {
			return len(a) > 0 && len(b) == 0
		}
		if a[0] != b[0] {
			return schedule.Less(a[0], b[0])
		}
		return entries[i].Code < entries[j].Code
	})

	return entries, nil
}

func (s *conflictServiceImpl) subject(ctx context.Context, courseID int64) (*models.Course, error) {
	if courseID <= 0 {
		return nil, apperrors.NewValidationError("courseId", "course ID must be positive")
	}
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("%w: error loading course: %w", apperrors.ErrTransientStorage, err)
	}
	return course, nil
}

// slotsOf parses the course schedule and logs any skipped segment
func (s *conflictServiceImpl) slotsOf(c *models.Course) []schedule.TimeSlot {
	slots, warnings := schedule.ParseWithWarnings(c.Schedule)
	for _, w := range warnings {
		s.logger.Warn().
			Int64("courseId", c.ID).
			Str("segment", w.Segment).
			Str("reason", w.Reason).
			Msg("Skipped malformed schedule segment")
	}
	return slots
}

func without(courses []*models.Course, courseID int64) []*models.Course {
	out := make([]*models.Course, 0, len(courses))
	for _, c := range courses {
		if c != nil && c.ID != courseID {
			out = append(out, c)
		}
	}
	return out
}
