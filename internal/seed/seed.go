package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/enrollment/internal/app/models"
	appRepos "github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/app/schedule"
)

// DefaultCourses is the demo catalog inserted into an empty store
var DefaultCourses = []appModels.Course{
	{Code: "CS101", Name: "Introduction to Programming", TeacherID: 1001, Classroom: "A-101", Schedule: "一3-4节,三5-6节", Capacity: 60},
	{Code: "CS201", Name: "Data Structures", TeacherID: 1001, Classroom: "A-102", Schedule: "二1-2节,四3-4节", Capacity: 45},
	{Code: "CS301", Name: "Operating Systems", TeacherID: 1002, Classroom: "A-101", Schedule: "二5-6节,五1-2节", Capacity: 40},
	{Code: "MA101", Name: "Calculus I", TeacherID: 1003, Classroom: "B-201", Schedule: "一1-2节,三1-2节,五3-4节", Capacity: 120},
	{Code: "MA201", Name: "Linear Algebra", TeacherID: 1003, Classroom: "B-202", Schedule: "一4-5节", Capacity: 80},
	{Code: "PH101", Name: "General Physics", TeacherID: 1004, Classroom: "C-301", Schedule: "四7-8节", Capacity: 90},
	{Code: "EN101", Name: "Academic English", TeacherID: 1005, Classroom: "D-110", Schedule: "二9-10节", Capacity: 30},
	{Code: "HI101", Name: "Modern History", TeacherID: 1006, Classroom: "D-120", Schedule: "六1-3节", Capacity: 2},
}

// CreateDefaultData inserts the demo catalog when no course exists yet.
func CreateDefaultData(ctx context.Context, store appRepos.EnrollmentStore, lgr zerolog.Logger) error {
	count, err := store.CountCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to count courses: %w", err)
	}
	if count > 0 {
		lgr.Info().Int("courses", count).Msg("Courses already present, skipping seed")
		return nil
	}

	lgr.Info().Int("courses", len(DefaultCourses)).Msg("Creating default courses...")
	var finalErr error // To collect errors without stopping the process

	for _, c := range DefaultCourses {
		course := c
		if _, warnings := schedule.ParseWithWarnings(course.Schedule); len(warnings) > 0 {
			lgr.Warn().Str("code", course.Code).Interface("warnings", warnings).Msg("Default course has malformed schedule segments")
		}
		if _, err := store.CreateCourse(ctx, &course); err != nil {
			lgr.Error().Err(err).Str("code", course.Code).Msg("Error creating default course")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Debug().Str("code", course.Code).Int64("id", course.ID).Msg("Default course created")
	}

	return finalErr
}
