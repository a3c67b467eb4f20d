package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type subjectStore interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	HasOfferings(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// SubjectRequest carries catalog entry fields. MaxEnrollments nil
// leaves the capacity to the policy defaults.
type SubjectRequest struct {
	Name           string             `json:"name" validate:"required"`
	DepartmentCode string             `json:"department_code" validate:"required"`
	Year           string             `json:"year" validate:"required"`
	Semester       string             `json:"semester" validate:"required,semester"`
	Type           models.SubjectType `json:"subject_type" validate:"required,subject_type"`
	MaxEnrollments *int               `json:"max_enrollments,omitempty"`
}

// SubjectService manages the subject catalog.
type SubjectService struct {
	repo      subjectStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectStore, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SubjectService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("subject_type", func(fl validator.FieldLevel) bool {
		return models.SubjectType(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("semester", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "ODD", "EVEN":
			return true
		default:
			return false
		}
	})
	return svc
}

// Create adds a catalog entry.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	subject, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created",
		zap.Int64("subject_id", subject.ID),
		zap.String("name", subject.Name),
		zap.String("type", string(subject.Type)),
	)
	return subject, nil
}

// Get returns one catalog entry.
func (s *SubjectService) Get(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// List returns subjects matching the filter.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	if filter.DepartmentCode != "" {
		filter.DepartmentCode = department.Normalize(filter.DepartmentCode)
	}
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, total, nil
}

// Update mutates an existing catalog entry.
func (s *SubjectService) Update(ctx context.Context, id int64, req SubjectRequest) (*models.Subject, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subject, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	subject.ID = existing.ID
	subject.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a catalog entry. Entries with offerings are protected.
func (s *SubjectService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	has, err := s.repo.HasOfferings(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offerings")
	}
	if has {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "subject still has offerings")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.logger.Info("subject deleted", zap.Int64("subject_id", id))
	return nil
}

func (s *SubjectService) fromRequest(req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid subject payload: %v", err))
	}
	year, err := department.ParseYear(req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year of study")
	}
	if req.MaxEnrollments != nil && *req.MaxEnrollments <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max enrollments must be positive when set")
	}
	return &models.Subject{
		Name:           req.Name,
		DepartmentCode: department.Normalize(req.DepartmentCode),
		Year:           year,
		Semester:       req.Semester,
		Type:           req.Type,
		MaxEnrollments: req.MaxEnrollments,
	}, nil
}
