package schedule

import (
	"fmt"
	"strings"

	"github.com/yigit/enrollment/internal/app/models"
)

// Conflicts reports whether two slots fall on the same day and share at least one period.
func Conflicts(a, b TimeSlot) bool {
	if a.Day != b.Day {
		return false
	}
	return a.StartPeriod <= b.EndPeriod && b.StartPeriod <= a.EndPeriod
}

// AnyConflict reports whether any slot of a conflicts with any slot of b.
func AnyConflict(a, b []TimeSlot) bool {
	for _, x := range a {
		for _, y := range b {
			if Conflicts(x, y) {
				return true
			}
		}
	}
	return false
}

// ConflictKind says which shared resource two courses collide on.
type ConflictKind string

const (
	ConflictKindTeacher   ConflictKind = "teacher"
	ConflictKindClassroom ConflictKind = "classroom"
	ConflictKindStudent   ConflictKind = "student"
)

// ConflictLine is a single collision with an existing course.
type ConflictLine struct {
	Kind       ConflictKind `json:"kind"`
	CourseID   int64        `json:"courseId"`
	CourseCode string       `json:"courseCode"`
	CourseName string       `json:"courseName"`
	Classroom  string       `json:"classroom,omitempty"`
	Schedule   string       `json:"schedule"`
}

func (l ConflictLine) String() string {
	switch l.Kind {
	case ConflictKindTeacher:
		return fmt.Sprintf("teacher is already teaching %s (%s) at %s", l.CourseName, l.CourseCode, l.Schedule)
	case ConflictKindClassroom:
		return fmt.Sprintf("classroom %s is already used by %s (%s) at %s", l.Classroom, l.CourseName, l.CourseCode, l.Schedule)
	default:
		return fmt.Sprintf("overlaps with %s (%s) at %s", l.CourseName, l.CourseCode, l.Schedule)
	}
}

// Report collects the collisions found by DescribeConflicts.
type Report struct {
	Lines []ConflictLine `json:"lines"`
}

// HasConflicts reports whether any collision was found.
func (r Report) HasConflicts() bool {
	return len(r.Lines) > 0
}

// String renders one line per collision.
func (r Report) String() string {
	if len(r.Lines) == 0 {
		return "no conflicts"
	}
	lines := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, l.String())
	}
	return strings.Join(lines, "\n")
}

// DescribeConflicts checks slots taught by teacherID in classroom against the
// candidate courses. A candidate sharing both the teacher and the classroom is
// reported once per resource. Candidates whose schedule does not parse are skipped.
func DescribeConflicts(slots []TimeSlot, teacherID int64, classroom string, candidates []*models.Course) Report {
	report := Report{Lines: []ConflictLine{}}
	classroom = strings.TrimSpace(classroom)

	for _, c := range candidates {
		if c == nil {
			continue
		}
		sameTeacher := teacherID > 0 && c.TeacherID == teacherID
		sameRoom := classroom != "" && strings.TrimSpace(c.Classroom) == classroom
		if !sameTeacher && !sameRoom {
			continue
		}
		if !AnyConflict(slots, Parse(c.Schedule)) {
			continue
		}
		if sameTeacher {
			report.Lines = append(report.Lines, lineFor(ConflictKindTeacher, c))
		}
		if sameRoom {
			report.Lines = append(report.Lines, lineFor(ConflictKindClassroom, c))
		}
	}

	return report
}

// PersonalConflicts returns the courses in timetable whose slots overlap slots.
func PersonalConflicts(slots []TimeSlot, timetable []*models.Course) []ConflictLine {
	lines := []ConflictLine{}
	for _, c := range timetable {
		if c == nil {
			continue
		}
		if AnyConflict(slots, Parse(c.Schedule)) {
			lines = append(lines, lineFor(ConflictKindStudent, c))
		}
	}
	return lines
}

func lineFor(kind ConflictKind, c *models.Course) ConflictLine {
	return ConflictLine{
		Kind:       kind,
		CourseID:   c.ID,
		CourseCode: c.Code,
		CourseName: c.Name,
		Classroom:  c.Classroom,
		Schedule:   c.Schedule,
	}
}
