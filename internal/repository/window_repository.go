package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/dept-admin-api/internal/models"
)

// WindowRepository handles enrollment window configuration rows.
type WindowRepository struct {
	db *sqlx.DB
}

// NewWindowRepository constructs the repository.
func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// FindFor returns the most specific window for a department and year:
// a year-scoped row wins over a department-wide one. Nil means no
// window is configured.
func (r *WindowRepository) FindFor(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error) {
	const query = `SELECT id, department_code, year, enabled, starts_at, ends_at, disabled_message, updated_at
        FROM enrollment_windows
        WHERE department_code = $1 AND (year = $2 OR year IS NULL)
        ORDER BY year NULLS LAST
        LIMIT 1`
	var window models.EnrollmentWindow
	if err := r.db.GetContext(ctx, &window, query, departmentCode, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment window: %w", err)
	}
	return &window, nil
}

// List returns every configured window.
func (r *WindowRepository) List(ctx context.Context) ([]models.EnrollmentWindow, error) {
	const query = `SELECT id, department_code, year, enabled, starts_at, ends_at, disabled_message, updated_at
        FROM enrollment_windows ORDER BY department_code, year NULLS FIRST`
	var windows []models.EnrollmentWindow
	if err := r.db.SelectContext(ctx, &windows, query); err != nil {
		return nil, fmt.Errorf("list enrollment windows: %w", err)
	}
	return windows, nil
}

// Upsert creates or replaces the window for (department, year).
func (r *WindowRepository) Upsert(ctx context.Context, window *models.EnrollmentWindow) error {
	const query = `INSERT INTO enrollment_windows (department_code, year, enabled, starts_at, ends_at, disabled_message, updated_at)
        VALUES (:department_code, :year, :enabled, :starts_at, :ends_at, :disabled_message, NOW())
        ON CONFLICT (department_code, COALESCE(year, -1)) DO UPDATE SET
            enabled = EXCLUDED.enabled,
            starts_at = EXCLUDED.starts_at,
            ends_at = EXCLUDED.ends_at,
            disabled_message = EXCLUDED.disabled_message,
            updated_at = NOW()`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("upsert enrollment window: %w", err)
	}
	return nil
}

// Delete removes a window row.
func (r *WindowRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollment_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment window: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
