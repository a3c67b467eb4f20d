package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type windowStore interface {
	FindFor(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error)
	List(ctx context.Context) ([]models.EnrollmentWindow, error)
	Upsert(ctx context.Context, window *models.EnrollmentWindow) error
	Delete(ctx context.Context, id int64) error
}

// EvaluateWindow decides whether enrollment is accepted under the given
// window at the given instant. A nil window means nothing is configured
// and enrollment is open: absence of configuration never blocks
// students. The time range is inclusive on both ends.
func EvaluateWindow(window *models.EnrollmentWindow, fallbackMessage string, now time.Time) models.WindowStatus {
	if window == nil {
		return models.WindowStatus{Open: true, Reason: "subject selection is open"}
	}
	if !window.Enabled {
		reason := window.DisabledMessage
		if reason == "" {
			reason = fallbackMessage
		}
		return models.WindowStatus{Open: false, Reason: reason}
	}
	if window.StartsAt == nil && window.EndsAt == nil {
		return models.WindowStatus{Open: true, Reason: "subject selection is open"}
	}
	if window.StartsAt != nil && now.Before(*window.StartsAt) {
		return models.WindowStatus{
			Open:   false,
			Reason: fmt.Sprintf("subject selection has not yet opened (opens %s)", window.StartsAt.Format(time.RFC3339)),
		}
	}
	if window.EndsAt != nil && now.After(*window.EndsAt) {
		return models.WindowStatus{Open: false, Reason: "subject selection has closed"}
	}
	return models.WindowStatus{Open: true, Reason: "subject selection is open"}
}

// UpsertWindowRequest configures a window for one department, optionally
// scoped to a single year.
type UpsertWindowRequest struct {
	DepartmentCode  string     `json:"department_code" validate:"required"`
	Year            *string    `json:"year,omitempty"`
	Enabled         bool       `json:"enabled"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	DisabledMessage string     `json:"disabled_message,omitempty"`
}

// WindowService answers window-status queries and manages window
// configuration. Status is evaluated freshly on each call; the
// enrollment transaction re-reads the window inside the transaction so
// a window closing between page render and submission is still caught.
type WindowService struct {
	repo            windowStore
	fallbackMessage string
	logger          *zap.Logger
	now             func() time.Time
}

// NewWindowService constructs WindowService.
func NewWindowService(repo windowStore, fallbackMessage string, logger *zap.Logger) *WindowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowService{repo: repo, fallbackMessage: fallbackMessage, logger: logger, now: time.Now}
}

// Status reports whether enrollment is currently open for the
// department (and year). The department value is normalized first.
func (s *WindowService) Status(ctx context.Context, departmentCode string, year int) (models.WindowStatus, error) {
	window, err := s.repo.FindFor(ctx, department.Normalize(departmentCode), year)
	if err != nil {
		return models.WindowStatus{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment window")
	}
	return EvaluateWindow(window, s.fallbackMessage, s.now().UTC()), nil
}

// List returns every configured window.
func (s *WindowService) List(ctx context.Context) ([]models.EnrollmentWindow, error) {
	windows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment windows")
	}
	return windows, nil
}

// Upsert creates or replaces the window for (department, year).
func (s *WindowService) Upsert(ctx context.Context, req UpsertWindowRequest) (*models.EnrollmentWindow, error) {
	if req.DepartmentCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department code is required")
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window end precedes its start")
	}

	window := &models.EnrollmentWindow{
		DepartmentCode:  department.Normalize(req.DepartmentCode),
		Enabled:         req.Enabled,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		DisabledMessage: req.DisabledMessage,
	}
	if req.Year != nil {
		year, err := department.ParseYear(*req.Year)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year of study")
		}
		window.Year = &year
	}

	if err := s.repo.Upsert(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollment window")
	}
	s.logger.Info("enrollment window saved",
		zap.String("department", window.DepartmentCode),
		zap.Bool("enabled", window.Enabled),
	)
	return window, nil
}

// Delete removes a configured window. Deleting a window reopens
// enrollment for its scope.
func (s *WindowService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment window")
	}
	s.logger.Info("enrollment window deleted", zap.Int64("window_id", id))
	return nil
}
