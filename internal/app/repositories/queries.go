package repositories

import (
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/enrollment/internal/app/models"
)

const (
	coursesTable    = "courses"
	selectionsTable = "course_selections"
)

var courseColumns = []string{"id", "code", "name", "teacher_id", "classroom", "schedule", "capacity", "enrolled"}

var selectionColumns = []string{"id", "student_id", "course_id", "status", "selection_time", "grade", "remark"}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

// queryBuilder renders the statements shared by both dialects. lockSuffix is
// appended to the course lock query ("FOR UPDATE" on Postgres).
type queryBuilder struct {
	sb         squirrel.StatementBuilderType
	lockSuffix string
}

func newQueryBuilder(format squirrel.PlaceholderFormat, lockSuffix string) queryBuilder {
	return queryBuilder{
		sb:         squirrel.StatementBuilder.PlaceholderFormat(format),
		lockSuffix: lockSuffix,
	}
}

func (q queryBuilder) getCourse(courseID int64) (string, []interface{}, error) {
	return q.sb.Select(courseColumns...).
		From(coursesTable).
		Where(squirrel.Eq{"id": courseID}).
		ToSql()
}

func (q queryBuilder) lockCourse(courseID int64) (string, []interface{}, error) {
	b := q.sb.Select(courseColumns...).
		From(coursesTable).
		Where(squirrel.Eq{"id": courseID})
	if q.lockSuffix != "" {
		b = b.Suffix(q.lockSuffix)
	}
	return b.ToSql()
}

// lockStudent takes a transaction-scoped advisory lock keyed by the student id.
// Postgres only.
func (q queryBuilder) lockStudent(studentID int64) (string, []interface{}, error) {
	return q.sb.Select().
		Column("pg_advisory_xact_lock(?)", studentID).
		ToSql()
}

func (q queryBuilder) listCourses() (string, []interface{}, error) {
	return q.sb.Select(courseColumns...).
		From(coursesTable).
		OrderBy("id ASC").
		ToSql()
}

func (q queryBuilder) listCoursesSharing(teacherID int64, classroom string) (string, []interface{}, error) {
	return q.sb.Select(courseColumns...).
		From(coursesTable).
		Where(squirrel.Or{
			squirrel.Eq{"teacher_id": teacherID},
			squirrel.Eq{"classroom": classroom},
		}).
		OrderBy("id ASC").
		ToSql()
}

func (q queryBuilder) listCoursesForStudent(studentID int64) (string, []interface{}, error) {
	return q.sb.Select(prefixed("c", courseColumns)...).
		From(coursesTable + " c").
		Join(selectionsTable + " s ON s.course_id = c.id").
		Where(squirrel.Eq{"s.student_id": studentID}).
		Where(squirrel.NotEq{"s.status": string(models.SelectionStatusDropped)}).
		OrderBy("c.id ASC").
		ToSql()
}

func (q queryBuilder) createCourse(c *models.Course) (string, []interface{}, error) {
	return q.sb.Insert(coursesTable).
		Columns("code", "name", "teacher_id", "classroom", "schedule", "capacity", "enrolled").
		Values(c.Code, c.Name, c.TeacherID, c.Classroom, c.Schedule, c.Capacity, c.Enrolled).
		Suffix("RETURNING id").
		ToSql()
}

func (q queryBuilder) countCourses() (string, []interface{}, error) {
	return q.sb.Select("COUNT(1)").From(coursesTable).ToSql()
}

func (q queryBuilder) getSelection(studentID, courseID int64) (string, []interface{}, error) {
	return q.sb.Select(selectionColumns...).
		From(selectionsTable).
		Where(squirrel.Eq{"student_id": studentID, "course_id": courseID}).
		ToSql()
}

func (q queryBuilder) listActive(column string, id int64) (string, []interface{}, error) {
	return q.sb.Select(selectionColumns...).
		From(selectionsTable).
		Where(squirrel.Eq{column: id}).
		Where(squirrel.NotEq{"status": string(models.SelectionStatusDropped)}).
		OrderBy("selection_time ASC", "id ASC").
		ToSql()
}

func (q queryBuilder) insertSelection(sel *models.CourseSelection) (string, []interface{}, error) {
	return q.sb.Insert(selectionsTable).
		Columns("student_id", "course_id", "status", "selection_time").
		Values(sel.StudentID, sel.CourseID, string(sel.Status), sel.SelectionTime).
		Suffix("RETURNING id").
		ToSql()
}

func (q queryBuilder) updateSelectionStatus(selectionID int64, status models.SelectionStatus, at time.Time) (string, []interface{}, error) {
	b := q.sb.Update(selectionsTable).
		Set("status", string(status)).
		Where(squirrel.Eq{"id": selectionID})
	// selection time records the most recent activation only
	if status == models.SelectionStatusSelected {
		b = b.Set("selection_time", at)
	}
	return b.ToSql()
}

func (q queryBuilder) countActive(courseID int64) (string, []interface{}, error) {
	return q.sb.Select("COUNT(1)").
		From(selectionsTable).
		Where(squirrel.Eq{"course_id": courseID}).
		Where(squirrel.NotEq{"status": string(models.SelectionStatusDropped)}).
		ToSql()
}

func (q queryBuilder) setEnrolled(courseID int64, enrolled int) (string, []interface{}, error) {
	return q.sb.Update(coursesTable).
		Set("enrolled", enrolled).
		Where(squirrel.Eq{"id": courseID}).
		Where(squirrel.GtOrEq{"capacity": enrolled}).
		ToSql()
}
