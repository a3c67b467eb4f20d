package models

import "time"

// EnrollmentWindow configures when subject selection is accepted for a
// department. Year nil scopes the window to all years of the
// department; a year-scoped row takes precedence over a department-wide
// one. The window is evaluated freshly on every enrollment attempt.
type EnrollmentWindow struct {
	ID              int64      `db:"id" json:"id"`
	DepartmentCode  string     `db:"department_code" json:"department_code"`
	Year            *int       `db:"year" json:"year,omitempty"`
	Enabled         bool       `db:"enabled" json:"enabled"`
	StartsAt        *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt          *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	DisabledMessage string     `db:"disabled_message" json:"disabled_message"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// WindowStatus is the outcome of evaluating a window at a point in time.
type WindowStatus struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason"`
}
