package schedule

import (
	"fmt"
	"time"
)

// Weekday is a day of the teaching week, Monday(1) through Sunday(7).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether d is one of Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// PeriodLength is the length of one teaching period.
const PeriodLength = 45 * time.Minute

// MaxPeriod is the last period with a known wall-clock start time.
const MaxPeriod = 10

// periodStarts holds the start of each period as an offset from midnight, indexed from 1.
var periodStarts = [MaxPeriod + 1]time.Duration{
	0,
	8 * time.Hour,
	8*time.Hour + 55*time.Minute,
	10 * time.Hour,
	10*time.Hour + 55*time.Minute,
	14 * time.Hour,
	14*time.Hour + 55*time.Minute,
	16 * time.Hour,
	16*time.Hour + 55*time.Minute,
	19 * time.Hour,
	19*time.Hour + 55*time.Minute,
}

// PeriodStart returns the start of period p as an offset from midnight.
// ok is false when p is outside the period table.
func PeriodStart(p int) (time.Duration, bool) {
	if p < 1 || p > MaxPeriod {
		return 0, false
	}
	return periodStarts[p], true
}

// TimeSlot is a contiguous run of periods on one weekday. Both ends are inclusive.
type TimeSlot struct {
	Day         Weekday `json:"day"`
	StartPeriod int     `json:"startPeriod"`
	EndPeriod   int     `json:"endPeriod"`
}

// StartTime returns when the slot begins.
func (s TimeSlot) StartTime() (time.Duration, bool) {
	return PeriodStart(s.StartPeriod)
}

// EndTime returns when the last period of the slot ends.
func (s TimeSlot) EndTime() (time.Duration, bool) {
	start, ok := PeriodStart(s.EndPeriod)
	if !ok {
		return 0, false
	}
	return start + PeriodLength, true
}

func (s TimeSlot) String() string {
	text := fmt.Sprintf("%s P%d-P%d", s.Day, s.StartPeriod, s.EndPeriod)
	start, okStart := s.StartTime()
	end, okEnd := s.EndTime()
	if okStart && okEnd {
		text += fmt.Sprintf(" (%s-%s)", clock(start), clock(end))
	}
	return text
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Less orders slots by day, then start period, then end period.
func Less(a, b TimeSlot) bool {
	if a.Day != b.Day {
		return a.Day < b.Day
	}
	if a.StartPeriod != b.StartPeriod {
		return a.StartPeriod < b.StartPeriod
	}
	return a.EndPeriod < b.EndPeriod
}
