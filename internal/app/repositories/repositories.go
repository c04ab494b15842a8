package repositories

import "github.com/yigit/enrollment/internal/db"

// Repositories holds all the repository instances
type Repositories struct {
	Enrollment EnrollmentStore
}

// NewPostgresRepositories wires repositories against PostgreSQL
func NewPostgresRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{Enrollment: NewPostgresStore(database)}
}

// NewSQLiteRepositories wires repositories against the embedded SQLite store
func NewSQLiteRepositories(database *db.SQLiteDB) *Repositories {
	return &Repositories{Enrollment: NewSQLiteStore(database)}
}
