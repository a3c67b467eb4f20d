package models

import "time"

// Student represents a learner registered with a department. The ID is
// the immutable registration number assigned at admission.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Year           int       `db:"year" json:"year"`
	DepartmentCode string    `db:"department_code" json:"department_code"`
	Semester       string    `db:"semester" json:"semester"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	// SelectedSubjects is a display-only cache of the student's
	// enrollments, refreshed inside the enrollment transaction.
	SelectedSubjects string    `db:"selected_subjects" json:"selected_subjects"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	DepartmentCode string
	Year           int
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
