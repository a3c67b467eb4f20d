package models

import "time"

// Faculty represents a teaching staff member.
type Faculty struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	DepartmentCode string    `db:"department_code" json:"department_code"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyFilter captures supported filters for listing faculty.
type FacultyFilter struct {
	Search         string
	DepartmentCode string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
