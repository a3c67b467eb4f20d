package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/dept-admin-api/internal/models"
)

// FacultyRepository handles persistence of faculty members.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByID returns a faculty member by id.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, full_name, email, department_code, created_at, updated_at FROM faculty WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// List returns faculty filtered by the provided criteria with total count.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	base := `FROM faculty`
	var conditions []string
	var args []interface{}

	if filter.DepartmentCode != "" {
		conditions = append(conditions, fmt.Sprintf("department_code = $%d", len(args)+1))
		args = append(args, filter.DepartmentCode)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf(`SELECT id, full_name, email, department_code, created_at, updated_at
        %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, base+clause, size, (page-1)*size)

	var members []models.Faculty
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return members, total, nil
}

// Create persists a new faculty member.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	const query = `INSERT INTO faculty (id, full_name, email, department_code)
        VALUES (:id, :full_name, :email, :department_code)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Update mutates an existing faculty member.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	const query = `UPDATE faculty SET full_name = :full_name, email = :email,
        department_code = :department_code, updated_at = NOW() WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}

// HasOfferings reports whether the faculty member holds any offering.
func (r *FacultyRepository) HasOfferings(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM subject_offerings WHERE faculty_id = $1)`, id); err != nil {
		return false, fmt.Errorf("check faculty offerings: %w", err)
	}
	return exists, nil
}

// Delete removes a faculty member.
func (r *FacultyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM faculty WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return nil
}
