package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type facultyStore interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
	HasOfferings(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// FacultyRequest carries faculty profile fields.
type FacultyRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	DepartmentCode string `json:"department_code" validate:"required"`
}

// FacultyService manages faculty records.
type FacultyService struct {
	repo   facultyStore
	logger *zap.Logger
}

// NewFacultyService constructs FacultyService.
func NewFacultyService(repo facultyStore, logger *zap.Logger) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, logger: logger}
}

// Create adds a faculty member.
func (s *FacultyService) Create(ctx context.Context, req FacultyRequest) (*models.Faculty, error) {
	faculty := &models.Faculty{
		ID:             uuid.NewString(),
		FullName:       req.FullName,
		Email:          req.Email,
		DepartmentCode: department.Normalize(req.DepartmentCode),
	}
	if err := s.repo.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	s.logger.Info("faculty created",
		zap.String("faculty_id", faculty.ID),
		zap.String("department", faculty.DepartmentCode),
	)
	return faculty, nil
}

// Get returns one faculty member.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.Faculty, error) {
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// List returns faculty matching the filter.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error) {
	if filter.DepartmentCode != "" {
		filter.DepartmentCode = department.Normalize(filter.DepartmentCode)
	}
	members, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return members, total, nil
}

// Update mutates a faculty member's profile.
func (s *FacultyService) Update(ctx context.Context, id string, req FacultyRequest) (*models.Faculty, error) {
	faculty, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	faculty.FullName = req.FullName
	faculty.Email = req.Email
	faculty.DepartmentCode = department.Normalize(req.DepartmentCode)

	if err := s.repo.Update(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty")
	}
	return faculty, nil
}

// Delete removes a faculty member. Members still holding offerings are
// protected; their offerings must be removed first.
func (s *FacultyService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	has, err := s.repo.HasOfferings(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offerings")
	}
	if has {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "faculty member still holds subject offerings")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	s.logger.Info("faculty deleted", zap.String("faculty_id", id))
	return nil
}
