package dto

import (
	"time"

	"github.com/yigit/enrollment/internal/app/models"
	"github.com/yigit/enrollment/internal/app/schedule"
)

// SelectionResponse is returned by select and drop
type SelectionResponse struct {
	ID            int64                  `json:"id"`
	StudentID     int64                  `json:"studentId"`
	CourseID      int64                  `json:"courseId"`
	Status        models.SelectionStatus `json:"status"`
	SelectionTime time.Time              `json:"selectionTime"`
	Grade         *float64               `json:"grade,omitempty"`
	Remark        *string                `json:"remark,omitempty"`
}

// NewSelectionResponse maps a selection row to its response shape
func NewSelectionResponse(sel *models.CourseSelection) SelectionResponse {
	return SelectionResponse{
		ID:            sel.ID,
		StudentID:     sel.StudentID,
		CourseID:      sel.CourseID,
		Status:        sel.Status,
		SelectionTime: sel.SelectionTime,
		Grade:         sel.Grade,
		Remark:        sel.Remark,
	}
}

// NewSelectionListResponse maps a list of selections
func NewSelectionListResponse(sels []*models.CourseSelection) []SelectionResponse {
	out := make([]SelectionResponse, 0, len(sels))
	for _, s := range sels {
		out = append(out, NewSelectionResponse(s))
	}
	return out
}

// TimetableEntry is one course in a student's weekly timetable
type TimetableEntry struct {
	CourseID  int64               `json:"courseId"`
	Code      string              `json:"code"`
	Name      string              `json:"name"`
	Classroom string              `json:"classroom"`
	Schedule  string              `json:"schedule"`
	Slots     []schedule.TimeSlot `json:"slots"`
}

// ConflictCheckResponse answers a conflict preview
type ConflictCheckResponse struct {
	CourseID  int64                   `json:"courseId"`
	SeatsLeft int                     `json:"seatsLeft"`
	Conflicts []schedule.ConflictLine `json:"conflicts"`
	Summary   string                  `json:"summary"`
}

// ReconcileResponse summarizes a reconciliation run
type ReconcileResponse struct {
	Checked    int                   `json:"checked"`
	Repaired   int                   `json:"repaired"`
	DryRun     bool                  `json:"dryRun"`
	Violations []models.CounterDrift `json:"violations"`
}

// CourseURI binds the :id path parameter of course routes
type CourseURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// ReconcileQuery controls a reconciliation run
type ReconcileQuery struct {
	DryRun bool `form:"dryRun"`
}
