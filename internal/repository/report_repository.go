package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/dept-admin-api/internal/models"
)

// ReportRepository reads committed enrollments joined with their
// student, offering, subject and faculty context.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Rows returns flat report rows matching the filter, ordered by
// enrollment time ascending (first-come-first-served order) then by
// student name. Only committed data is visible to this query.
func (r *ReportRepository) Rows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRow, error) {
	base := `SELECT st.full_name AS student_name, st.id AS reg_number, st.email, st.year,
        s.name AS subject_name, f.full_name AS faculty_name, s.semester, o.department_code, e.enrolled_at
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN subject_offerings o ON o.id = e.offering_id
        JOIN subjects s ON s.id = o.subject_id
        JOIN faculty f ON f.id = o.faculty_id`

	var conditions []string
	var args []interface{}

	if filter.SubjectID != 0 {
		conditions = append(conditions, fmt.Sprintf("o.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("o.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("o.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.enrolled_at ASC, st.full_name ASC"

	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query report rows: %w", err)
	}
	return rows, nil
}
