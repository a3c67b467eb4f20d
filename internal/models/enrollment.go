package models

import "time"

// Enrollment links one student to one subject offering. Identity is the
// composite (StudentID, OfferingID); the matching primary key in the
// database doubles as the last-line duplicate guard. EnrolledAt keeps
// sub-second precision because enrollment order is part of the audit
// record.
type Enrollment struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	OfferingID int64     `db:"offering_id" json:"offering_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with subject and faculty info.
type EnrollmentDetail struct {
	Enrollment
	SubjectID   int64       `db:"subject_id" json:"subject_id"`
	SubjectName string      `db:"subject_name" json:"subject_name"`
	SubjectType SubjectType `db:"subject_type" json:"subject_type"`
	FacultyName string      `db:"faculty_name" json:"faculty_name"`
}

// Selection is the (subject, type) pair behind one committed
// enrollment, used by the completion read model.
type Selection struct {
	SubjectID   int64       `db:"subject_id"`
	SubjectType SubjectType `db:"subject_type"`
}

// RequirementSet is everything a student of a given department and year
// must cover: each distinct core subject, plus one pick per elective
// tag group present in the catalog.
type RequirementSet struct {
	CoreSubjectIDs []int64
	ElectiveTags   []SubjectType
}

// EnrollmentConfirmation is returned to the caller after a committed
// enrollment.
type EnrollmentConfirmation struct {
	StudentID             string    `json:"student_id"`
	OfferingID            int64     `json:"offering_id"`
	SubjectName           string    `json:"subject_name"`
	FacultyName           string    `json:"faculty_name"`
	EnrolledAt            time.Time `json:"enrolled_at"`
	SeatsTaken            int       `json:"seats_taken"`
	Capacity              int       `json:"capacity"`
	CompletedAllSelections bool     `json:"completed_all_selections"`
}
