package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

// uniqueViolation is the PostgreSQL error code raised when the
// composite (student_id, offering_id) primary key rejects an insert.
const uniqueViolation = "23505"

// EnrollmentTx exposes the queries available inside one enrollment
// transaction. The offering row lock acquired by OfferingForUpdate is
// held until the transaction commits or rolls back, so concurrent
// attempts against the same offering serialise on it.
type EnrollmentTx interface {
	OfferingForUpdate(ctx context.Context, id int64) (*models.OfferingDetail, error)
	Window(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error)
	HasOfferingEnrollment(ctx context.Context, studentID string, offeringID int64) (bool, error)
	HasSubjectEnrollment(ctx context.Context, studentID string, subjectID int64) (bool, error)
	HasElectiveEnrollment(ctx context.Context, studentID string, tag models.SubjectType) (bool, error)
	CommittedCount(ctx context.Context, offeringID int64) (int, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) error
	SetOfferingCount(ctx context.Context, offeringID int64, count int) error
	RefreshStudentSelections(ctx context.Context, studentID string) error
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// InTx runs fn inside a single database transaction. Any error from fn
// rolls the transaction back entirely; the enrollment either commits
// with all of its effects or leaves no trace.
func (r *EnrollmentRepository) InTx(ctx context.Context, fn func(tx EnrollmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	if err := fn(&enrollmentTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback enrollment tx: %v (after %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// ListByStudent returns the student's committed enrollments with
// subject and faculty context, oldest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.student_id, e.offering_id, e.enrolled_at,
        o.subject_id, s.name AS subject_name, s.subject_type, f.full_name AS faculty_name
        FROM enrollments e
        JOIN subject_offerings o ON o.id = e.offering_id
        JOIN subjects s ON s.id = o.subject_id
        JOIN faculty f ON f.id = o.faculty_id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_at ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// StudentSelections returns the (subject, type) pairs behind the
// student's committed enrollments.
func (r *EnrollmentRepository) StudentSelections(ctx context.Context, studentID string) ([]models.Selection, error) {
	const query = `SELECT o.subject_id, s.subject_type
        FROM enrollments e
        JOIN subject_offerings o ON o.id = e.offering_id
        JOIN subjects s ON s.id = o.subject_id
        WHERE e.student_id = $1`
	var selections []models.Selection
	if err := r.db.SelectContext(ctx, &selections, query, studentID); err != nil {
		return nil, fmt.Errorf("load student selections: %w", err)
	}
	return selections, nil
}

// RequiredSelections computes the requirement set for a department and
// year: every distinct core subject with at least one offering, plus
// every distinct elective tag present.
func (r *EnrollmentRepository) RequiredSelections(ctx context.Context, departmentCode string, year int) (*models.RequirementSet, error) {
	const query = `SELECT DISTINCT s.id AS subject_id, s.subject_type
        FROM subjects s
        JOIN subject_offerings o ON o.subject_id = s.id
        WHERE o.department_code = $1 AND o.year = $2`
	var selections []models.Selection
	if err := r.db.SelectContext(ctx, &selections, query, departmentCode, year); err != nil {
		return nil, fmt.Errorf("load required selections: %w", err)
	}

	set := &models.RequirementSet{}
	tags := make(map[models.SubjectType]struct{})
	for _, sel := range selections {
		if sel.SubjectType.IsElective() {
			if _, seen := tags[sel.SubjectType]; !seen {
				tags[sel.SubjectType] = struct{}{}
				set.ElectiveTags = append(set.ElectiveTags, sel.SubjectType)
			}
			continue
		}
		set.CoreSubjectIDs = append(set.CoreSubjectIDs, sel.SubjectID)
	}
	return set, nil
}

// CountByOffering returns the committed enrollment count outside of any
// transaction, for display purposes.
func (r *EnrollmentRepository) CountByOffering(ctx context.Context, offeringID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE offering_id = $1`, offeringID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

// OfferingForUpdate loads the offering with its subject and faculty
// context and locks the offering row until the transaction ends. This
// is always the first lock taken, before any student row is touched.
func (t *enrollmentTx) OfferingForUpdate(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	const query = `SELECT o.id, o.subject_id, o.faculty_id, o.department_code, o.year, o.selected_count, o.created_at,
        s.name AS subject_name, s.subject_type, s.semester, s.max_enrollments, f.full_name AS faculty_name
        FROM subject_offerings o
        JOIN subjects s ON s.id = o.subject_id
        JOIN faculty f ON f.id = o.faculty_id
        WHERE o.id = $1
        FOR UPDATE OF o`
	var detail models.OfferingDetail
	if err := t.tx.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Window returns the most specific window row for the department and
// year, or nil when none is configured (absence fails open).
func (t *enrollmentTx) Window(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error) {
	const query = `SELECT id, department_code, year, enabled, starts_at, ends_at, disabled_message, updated_at
        FROM enrollment_windows
        WHERE department_code = $1 AND (year = $2 OR year IS NULL)
        ORDER BY year NULLS LAST
        LIMIT 1`
	var window models.EnrollmentWindow
	if err := t.tx.GetContext(ctx, &window, query, departmentCode, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load enrollment window: %w", err)
	}
	return &window, nil
}

func (t *enrollmentTx) HasOfferingEnrollment(ctx context.Context, studentID string, offeringID int64) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM enrollments WHERE student_id = $1 AND offering_id = $2 LIMIT 1`, studentID, offeringID)
}

// HasSubjectEnrollment reports whether the student already enrolled in
// any offering of the same underlying subject, with any faculty.
func (t *enrollmentTx) HasSubjectEnrollment(ctx context.Context, studentID string, subjectID int64) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
        JOIN subject_offerings o ON o.id = e.offering_id
        WHERE e.student_id = $1 AND o.subject_id = $2
        LIMIT 1`
	return t.exists(ctx, query, studentID, subjectID)
}

// HasElectiveEnrollment reports whether the student already holds an
// enrollment whose subject shares the given elective tag.
func (t *enrollmentTx) HasElectiveEnrollment(ctx context.Context, studentID string, tag models.SubjectType) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
        JOIN subject_offerings o ON o.id = e.offering_id
        JOIN subjects s ON s.id = o.subject_id
        WHERE e.student_id = $1 AND s.subject_type = $2
        LIMIT 1`
	return t.exists(ctx, query, studentID, tag)
}

// CommittedCount re-reads the true enrollment count for the offering
// inside the transaction. With the offering row locked this count
// cannot move under the caller.
func (t *enrollmentTx) CommittedCount(ctx context.Context, offeringID int64) (int, error) {
	var count int
	if err := t.tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE offering_id = $1`, offeringID); err != nil {
		return 0, fmt.Errorf("count committed enrollments: %w", err)
	}
	return count, nil
}

// Insert persists the enrollment row. A unique violation on the
// composite primary key maps to the duplicate-enrollment domain error.
func (t *enrollmentTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `INSERT INTO enrollments (student_id, offering_id, enrolled_at) VALUES ($1, $2, $3)`
	if _, err := t.tx.ExecContext(ctx, query, enrollment.StudentID, enrollment.OfferingID, enrollment.EnrolledAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return appErrors.ErrAlreadyEnrolledOffering
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// SetOfferingCount updates the display-only counter to the count
// derived inside this transaction.
func (t *enrollmentTx) SetOfferingCount(ctx context.Context, offeringID int64, count int) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE subject_offerings SET selected_count = $2 WHERE id = $1`, offeringID, count); err != nil {
		return fmt.Errorf("update offering count: %w", err)
	}
	return nil
}

// RefreshStudentSelections recomputes the student's denormalized
// selected-subjects display field from committed enrollments.
func (t *enrollmentTx) RefreshStudentSelections(ctx context.Context, studentID string) error {
	const query = `UPDATE students SET selected_subjects = COALESCE(
        (SELECT string_agg(s.name, ', ' ORDER BY e.enrolled_at)
         FROM enrollments e
         JOIN subject_offerings o ON o.id = e.offering_id
         JOIN subjects s ON s.id = o.subject_id
         WHERE e.student_id = $1), ''), updated_at = NOW()
        WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("refresh student selections: %w", err)
	}
	return nil
}

func (t *enrollmentTx) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	if err := t.tx.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment existence: %w", err)
	}
	return true, nil
}
