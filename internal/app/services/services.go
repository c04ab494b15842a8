package services

// Services defined in this package:
// - EnrollmentService: select and drop under capacity, the admission engine
// - ReconciliationService: recomputes courses.enrolled from selection rows
// - ConflictService: informational schedule clash reports and student timetables
// - RosterExportService: course roster as an xlsx workbook
