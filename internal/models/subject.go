package models

import "time"

// SubjectType tags a catalog entry. CORE subjects are mandatory; every
// other type is an elective tag group of which a student may pick at
// most one offering.
type SubjectType string

// Supported subject types.
const (
	SubjectTypeCore         SubjectType = "CORE"
	SubjectTypeElective1    SubjectType = "PROFESSIONAL_ELECTIVE_1"
	SubjectTypeElective2    SubjectType = "PROFESSIONAL_ELECTIVE_2"
	SubjectTypeElective3    SubjectType = "PROFESSIONAL_ELECTIVE_3"
	SubjectTypeOpenElective SubjectType = "OPEN_ELECTIVE"
)

// IsElective reports whether the type belongs to an elective tag group.
func (t SubjectType) IsElective() bool {
	return t != SubjectTypeCore && t != ""
}

// Valid reports whether the type is one of the supported values.
func (t SubjectType) Valid() bool {
	switch t {
	case SubjectTypeCore, SubjectTypeElective1, SubjectTypeElective2, SubjectTypeElective3, SubjectTypeOpenElective:
		return true
	}
	return false
}

// Subject is a catalog entry. MaxEnrollments nil means the capacity
// default for the subject's type and year applies.
type Subject struct {
	ID             int64       `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	DepartmentCode string      `db:"department_code" json:"department_code"`
	Year           int         `db:"year" json:"year"`
	Semester       string      `db:"semester" json:"semester"`
	Type           SubjectType `db:"subject_type" json:"subject_type"`
	MaxEnrollments *int        `db:"max_enrollments" json:"max_enrollments,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	DepartmentCode string
	Year           int
	Semester       string
	Type           SubjectType
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
