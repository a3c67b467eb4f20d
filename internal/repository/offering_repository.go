package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/dept-admin-api/internal/models"
)

// OfferingRepository handles persistence of subject offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

const offeringDetailColumns = `o.id, o.subject_id, o.faculty_id, o.department_code, o.year, o.selected_count, o.created_at,
        s.name AS subject_name, s.subject_type, s.semester, s.max_enrollments, f.full_name AS faculty_name`

// FindDetailByID returns an offering with subject and faculty context.
func (r *OfferingRepository) FindDetailByID(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM subject_offerings o
        JOIN subjects s ON s.id = o.subject_id
        JOIN faculty f ON f.id = o.faculty_id
        WHERE o.id = $1`, offeringDetailColumns)
	var detail models.OfferingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns offerings filtered by the provided criteria with total count.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	base := `FROM subject_offerings o
        JOIN subjects s ON s.id = o.subject_id
        JOIN faculty f ON f.id = o.faculty_id`

	var conditions []string
	var args []interface{}

	if filter.DepartmentCode != "" {
		conditions = append(conditions, fmt.Sprintf("o.department_code = $%d", len(args)+1))
		args = append(args, filter.DepartmentCode)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("o.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.SubjectID != 0 {
		conditions = append(conditions, fmt.Sprintf("o.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("o.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s %s ORDER BY s.name ASC, f.full_name ASC LIMIT %d OFFSET %d`,
		offeringDetailColumns, base+clause, size, (page-1)*size)

	var offerings []models.OfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// Exists reports whether an offering already links the subject and
// faculty for the department and year.
func (r *OfferingRepository) Exists(ctx context.Context, subjectID int64, facultyID, departmentCode string, year int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_offerings
        WHERE subject_id = $1 AND faculty_id = $2 AND department_code = $3 AND year = $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, subjectID, facultyID, departmentCode, year); err != nil {
		return false, fmt.Errorf("check offering existence: %w", err)
	}
	return exists, nil
}

// Create persists a new offering with a zeroed counter.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.SubjectOffering) error {
	const query = `INSERT INTO subject_offerings (subject_id, faculty_id, department_code, year, selected_count)
        VALUES ($1, $2, $3, $4, 0)
        RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query,
		offering.SubjectID, offering.FacultyID, offering.DepartmentCode, offering.Year,
	).Scan(&offering.ID, &offering.CreatedAt); err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// HasEnrollments reports whether any enrollment references the offering.
func (r *OfferingRepository) HasEnrollments(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM enrollments WHERE offering_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check offering enrollments: %w", err)
	}
	return exists, nil
}

// Delete removes an offering row.
func (r *OfferingRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subject_offerings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	return nil
}
