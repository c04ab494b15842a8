package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
)

func TestExportRoster(t *testing.T) {
	env := newTestEnv(t)
	svc := env.engine(EnrollmentOptions{})
	ctx := context.Background()
	course := env.course(t, models.Course{Code: "CS101", Name: "Programming", TeacherID: 1, Schedule: "一3-4节", Capacity: 10})

	for _, id := range []int64{11, 12} {
		if _, err := svc.Select(ctx, id, course.ID); err != nil {
			t.Fatalf("Select: %v", err)
		}
	}

	exporter := NewRosterExportService(env.store, zerolog.Nop())
	buf, filename, err := exporter.ExportRoster(ctx, course.ID)
	if err != nil {
		t.Fatalf("ExportRoster: %v", err)
	}
	if filename != "roster_CS101.xlsx" {
		t.Fatalf("filename = %q", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected title, header and 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Student ID" || rows[2][1] != "11" || rows[3][1] != "12" || rows[3][2] != "SELECTED" {
		t.Fatalf("unexpected rows %v", rows)
	}

	if _, _, err := exporter.ExportRoster(ctx, 404); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}
