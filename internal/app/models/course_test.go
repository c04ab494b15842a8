package models

import "testing"

func TestSeatsLeft(t *testing.T) {
	cases := []struct {
		name     string
		course   Course
		expected int
	}{
		{"free seats", Course{Capacity: 30, Enrolled: 28}, 2},
		{"full", Course{Capacity: 2, Enrolled: 2}, 0},
		{"drifted over capacity", Course{Capacity: 2, Enrolled: 3}, 0},
		{"empty", Course{Capacity: 5}, 5},
	}

	for _, tc := range cases {
		if got := tc.course.SeatsLeft(); got != tc.expected {
			t.Fatalf("%s: SeatsLeft() = %d, want %d", tc.name, got, tc.expected)
		}
	}
}
