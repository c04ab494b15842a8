package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/enrollment/internal/app/repositories"
	"github.com/yigit/enrollment/internal/pkg/apperrors"
)

// ErrExportFailed is returned when the workbook could not be generated
var ErrExportFailed = errors.New("failed to generate roster export")

// RosterExportService renders course rosters as spreadsheets
type RosterExportService interface {
	// ExportRoster returns the xlsx content and a suggested file name.
	ExportRoster(ctx context.Context, courseID int64) (*bytes.Buffer, string, error)
}

// rosterExportServiceImpl implements RosterExportService
type rosterExportServiceImpl struct {
	store  repositories.EnrollmentStore
	logger zerolog.Logger
}

// NewRosterExportService creates a new RosterExportService
func NewRosterExportService(store repositories.EnrollmentStore, logger zerolog.Logger) RosterExportService {
	return &rosterExportServiceImpl{
		store:  store,
		logger: logger,
	}
}

const rosterSheet = "Roster"

// ExportRoster writes one row per active selection of the course
func (s *rosterExportServiceImpl) ExportRoster(ctx context.Context, courseID int64) (*bytes.Buffer, string, error) {
	if courseID <= 0 {
		return nil, "", apperrors.NewValidationError("courseId", "course ID must be positive")
	}

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", apperrors.ErrCourseNotFound
		}
		return nil, "", fmt.Errorf("%w: error loading course: %w", apperrors.ErrTransientStorage, err)
	}

	selections, err := s.store.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: error loading roster: %w", apperrors.ErrTransientStorage, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(rosterSheet, "A", "A", 6)
	f.SetColWidth(rosterSheet, "B", "B", 14)
	f.SetColWidth(rosterSheet, "C", "C", 12)
	f.SetColWidth(rosterSheet, "D", "D", 22)
	f.SetColWidth(rosterSheet, "E", "F", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(rosterSheet, "A1", fmt.Sprintf("%s %s (%d/%d) %s", course.Code, course.Name, course.Enrolled, course.Capacity, course.Schedule))
	f.MergeCell(rosterSheet, "A1", "F1")
	f.SetCellStyle(rosterSheet, "A1", "A1", headerStyle)

	headers := []string{"#", "Student ID", "Status", "Selected At", "Grade", "Remark"}
	for i, h := range headers {
		f.SetCellValue(rosterSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(rosterSheet, "A2", "F2", headerStyle)

	for i, sel := range selections {
		row := i + 3
		f.SetCellValue(rosterSheet, cell("A", row), i+1)
		f.SetCellValue(rosterSheet, cell("B", row), sel.StudentID)
		f.SetCellValue(rosterSheet, cell("C", row), string(sel.Status))
		f.SetCellValue(rosterSheet, cell("D", row), sel.SelectionTime.UTC().Format("2006-01-02 15:04:05"))
		if sel.Grade != nil {
			f.SetCellValue(rosterSheet, cell("E", row), *sel.Grade)
		}
		if sel.Remark != nil {
			f.SetCellValue(rosterSheet, cell("F", row), *sel.Remark)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error().Err(err).Int64("courseId", courseID).Msg("Failed to write roster workbook")
		return nil, "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	filename := fmt.Sprintf("roster_%s.xlsx", course.Code)
	return buf, filename, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
