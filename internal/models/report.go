package models

import "time"

// ReportRow is one flat line of the enrollment report, joined across
// student, offering, subject and faculty. Rows are ordered by
// enrollment time ascending so first-come-first-served order is
// preserved, then by student name.
type ReportRow struct {
	StudentName    string    `db:"student_name" json:"student_name"`
	RegNumber      string    `db:"reg_number" json:"reg_number"`
	Email          string    `db:"email" json:"email"`
	Year           int       `db:"year" json:"year"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	FacultyName    string    `db:"faculty_name" json:"faculty_name"`
	Semester       string    `db:"semester" json:"semester"`
	DepartmentCode string    `db:"department_code" json:"department_code"`
	EnrolledAt     time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// ReportFilter narrows the enrollment report. Zero values mean "no
// filter" for that dimension.
type ReportFilter struct {
	SubjectID int64  `json:"subject_id,omitempty"`
	FacultyID string `json:"faculty_id,omitempty"`
	Year      int    `json:"year,omitempty"`
	Semester  string `json:"semester,omitempty"`
}
