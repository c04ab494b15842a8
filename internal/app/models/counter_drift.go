package models

// CounterDrift records a course whose cached enrolled counter disagreed with
// the number of active selection rows.
type CounterDrift struct {
	CourseID int64  `json:"courseId"`
	Code     string `json:"code"`
	Cached   int    `json:"cached"`
	Actual   int    `json:"actual"`
	Capacity int    `json:"capacity"`
}

// OverCapacity reports whether the actual count exceeds the course capacity.
func (d CounterDrift) OverCapacity() bool {
	return d.Actual > d.Capacity
}
