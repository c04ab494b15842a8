package schedule

import (
	"strings"
	"testing"

	"github.com/yigit/enrollment/internal/app/models"
)

func TestConflicts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"shared boundary period", TimeSlot{Monday, 3, 4}, TimeSlot{Monday, 4, 5}, true},
		{"adjacent", TimeSlot{Monday, 3, 4}, TimeSlot{Monday, 5, 6}, false},
		{"contained", TimeSlot{Tuesday, 1, 8}, TimeSlot{Tuesday, 3, 4}, true},
		{"identical", TimeSlot{Friday, 2, 2}, TimeSlot{Friday, 2, 2}, true},
		{"different day", TimeSlot{Monday, 3, 4}, TimeSlot{Wednesday, 3, 4}, false},
	}

	for _, tc := range cases {
		if got := Conflicts(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: Conflicts(a,b) = %v, want %v", tc.name, got, tc.want)
		}
		if got := Conflicts(tc.b, tc.a); got != tc.want {
			t.Fatalf("%s: Conflicts(b,a) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAnyConflict(t *testing.T) {
	t.Parallel()

	mine := Parse("一3-4节,三5-6节")
	if !AnyConflict(mine, Parse("三6-7节")) {
		t.Fatal("expected overlap on Wednesday")
	}
	if AnyConflict(mine, Parse("一5-6节,二3-4节")) {
		t.Fatal("expected no overlap")
	}
	if AnyConflict(nil, mine) || AnyConflict(mine, nil) {
		t.Fatal("empty set never conflicts")
	}
}

func TestDescribeConflicts(t *testing.T) {
	t.Parallel()

	candidates := []*models.Course{
		{ID: 1, Code: "CS101", Name: "Programming", TeacherID: 7, Classroom: "A-101", Schedule: "一3-4节"},
		{ID: 2, Code: "MA201", Name: "Calculus", TeacherID: 8, Classroom: "B-202", Schedule: "一4-5节"},
		{ID: 3, Code: "PH110", Name: "Physics", TeacherID: 9, Classroom: "A-101", Schedule: "二1-2节"},
		{ID: 4, Code: "CS102", Name: "Data Structures", TeacherID: 7, Classroom: "A-101", Schedule: "一1-3节"},
		nil,
	}

	report := DescribeConflicts(Parse("一3-4节"), 7, "A-101", candidates)
	if len(report.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %+v", report.Lines)
	}
	if report.Lines[0].Kind != ConflictKindTeacher || report.Lines[0].CourseID != 1 {
		t.Fatalf("unexpected first line %+v", report.Lines[0])
	}
	if report.Lines[1].Kind != ConflictKindClassroom || report.Lines[1].CourseID != 1 {
		t.Fatalf("unexpected second line %+v", report.Lines[1])
	}
	if !strings.Contains(report.String(), "classroom A-101 is already used by Data Structures") {
		t.Fatalf("unexpected report text:\n%s", report.String())
	}

	empty := DescribeConflicts(Parse("五1-2节"), 7, "A-101", candidates)
	if empty.HasConflicts() || empty.String() != "no conflicts" {
		t.Fatalf("expected no conflicts, got %+v", empty)
	}
}

func TestPersonalConflicts(t *testing.T) {
	t.Parallel()

	timetable := []*models.Course{
		{ID: 10, Code: "EN100", Name: "English", Schedule: "三5-6节"},
		{ID: 11, Code: "HI100", Name: "History", Schedule: "四1-2节"},
	}
	lines := PersonalConflicts(Parse("一3-4节,三6-7节"), timetable)
	if len(lines) != 1 || lines[0].CourseID != 10 || lines[0].Kind != ConflictKindStudent {
		t.Fatalf("unexpected lines %+v", lines)
	}
}
