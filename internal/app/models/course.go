package models

// Course is a capacity-limited course offering. The enrollment engine only ever writes Enrolled.
type Course struct {
	ID        int64  `json:"id" db:"id"`
	Code      string `json:"code" db:"code"`
	Name      string `json:"name" db:"name"`
	TeacherID int64  `json:"teacherId" db:"teacher_id"`
	Classroom string `json:"classroom" db:"classroom"`
	Schedule  string `json:"schedule" db:"schedule"` // e.g. "一3-4节,三5-6节"
	Capacity  int    `json:"capacity" db:"capacity"`
	Enrolled  int    `json:"enrolled" db:"enrolled"`
}

// SeatsLeft returns the number of free seats according to the cached counter.
func (c *Course) SeatsLeft() int {
	if c.Enrolled >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Enrolled
}
