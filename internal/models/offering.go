package models

import "time"

// SubjectOffering is one faculty's section of one subject for one
// year and department. SelectedCount is a display-only cache of the
// committed enrollment count; capacity decisions always re-derive the
// count inside the enrollment transaction.
type SubjectOffering struct {
	ID             int64     `db:"id" json:"id"`
	SubjectID      int64     `db:"subject_id" json:"subject_id"`
	FacultyID      string    `db:"faculty_id" json:"faculty_id"`
	DepartmentCode string    `db:"department_code" json:"department_code"`
	Year           int       `db:"year" json:"year"`
	SelectedCount  int       `db:"selected_count" json:"selected_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OfferingDetail enriches SubjectOffering with subject and faculty info
// needed by the enrollment transaction and listings.
type OfferingDetail struct {
	SubjectOffering
	SubjectName    string      `db:"subject_name" json:"subject_name"`
	SubjectType    SubjectType `db:"subject_type" json:"subject_type"`
	Semester       string      `db:"semester" json:"semester"`
	MaxEnrollments *int        `db:"max_enrollments" json:"max_enrollments,omitempty"`
	FacultyName    string      `db:"faculty_name" json:"faculty_name"`
}

// OfferingFilter captures supported filters for listing offerings.
type OfferingFilter struct {
	DepartmentCode string
	Year           int
	SubjectID      int64
	FacultyID      string
	Page           int
	PageSize       int
}
