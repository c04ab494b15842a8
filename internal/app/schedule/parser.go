package schedule

import (
	"strconv"
	"strings"
)

// weekday tokens used by the persisted schedule format
var dayTokens = map[rune]Weekday{
	'一': Monday,
	'二': Tuesday,
	'三': Wednesday,
	'四': Thursday,
	'五': Friday,
	'六': Saturday,
	'日': Sunday,
	'天': Sunday,
	'七': Sunday,
}

var tokenForDay = [...]string{"", "一", "二", "三", "四", "五", "六", "日"}

const periodSuffix = "节"

// ParseWarning describes a segment that Parse skipped.
type ParseWarning struct {
	Segment string `json:"segment"`
	Reason  string `json:"reason"`
}

// Parse converts a schedule string such as "一3-4节,三5-6节" into time slots.
// Malformed segments, including periods beyond MaxPeriod, are dropped silently;
// blank input yields an empty slice.
func Parse(text string) []TimeSlot {
	slots, _ := ParseWithWarnings(text)
	return slots
}

// ParseWithWarnings behaves like Parse and also reports each skipped segment.
func ParseWithWarnings(text string) ([]TimeSlot, []ParseWarning) {
	slots := []TimeSlot{}
	var warnings []ParseWarning

	text = strings.ReplaceAll(text, "，", ",")
	for _, raw := range strings.Split(text, ",") {
		segment := strings.TrimSpace(raw)
		if segment == "" {
			continue
		}
		slot, reason := parseSegment(segment)
		if reason != "" {
			warnings = append(warnings, ParseWarning{Segment: segment, Reason: reason})
			continue
		}
		slots = append(slots, slot)
	}

	return slots, warnings
}

func parseSegment(segment string) (TimeSlot, string) {
	runes := []rune(segment)
	day, ok := dayTokens[runes[0]]
	if !ok {
		return TimeSlot{}, "unknown weekday token"
	}

	body := strings.TrimSpace(string(runes[1:]))
	body = strings.TrimSuffix(body, periodSuffix)
	if body == "" {
		return TimeSlot{}, "missing period range"
	}

	startText, endText, hasEnd := strings.Cut(body, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startText))
	if err != nil || start < 1 {
		return TimeSlot{}, "invalid start period"
	}
	end := start
	if hasEnd {
		end, err = strconv.Atoi(strings.TrimSpace(endText))
		if err != nil || end < 1 {
			return TimeSlot{}, "invalid end period"
		}
	}
	if start > end {
		return TimeSlot{}, "start period after end period"
	}
	if end > MaxPeriod {
		return TimeSlot{}, "period out of range"
	}

	return TimeSlot{Day: day, StartPeriod: start, EndPeriod: end}, ""
}

// Format renders slots in the persisted schedule format.
// Format(Parse(s)) parses back to the same slots.
func Format(slots []TimeSlot) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		if !s.Day.Valid() {
			continue
		}
		parts = append(parts, tokenForDay[s.Day]+strconv.Itoa(s.StartPeriod)+"-"+strconv.Itoa(s.EndPeriod)+periodSuffix)
	}
	return strings.Join(parts, ",")
}
