package models

import "time"

// SelectionStatus is the lifecycle state of a (student, course) pair.
type SelectionStatus string

const (
	SelectionStatusSelected  SelectionStatus = "SELECTED"
	SelectionStatusDropped   SelectionStatus = "DROPPED"
	SelectionStatusCompleted SelectionStatus = "COMPLETED"
)

// Active reports whether the status occupies a seat.
func (s SelectionStatus) Active() bool {
	return s == SelectionStatusSelected || s == SelectionStatusCompleted
}

// CourseSelection links a student to a course. There is at most one row per pair;
// dropping keeps the row and reselecting reactivates it.
type CourseSelection struct {
	ID            int64           `json:"id" db:"id"`
	StudentID     int64           `json:"studentId" db:"student_id"`
	CourseID      int64           `json:"courseId" db:"course_id"`
	Status        SelectionStatus `json:"status" db:"status"`
	SelectionTime time.Time       `json:"selectionTime" db:"selection_time"`
	Grade         *float64        `json:"grade,omitempty" db:"grade"`
	Remark        *string         `json:"remark,omitempty" db:"remark"`
}
