package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type offeringStore interface {
	FindDetailByID(ctx context.Context, id int64) (*models.OfferingDetail, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error)
	Exists(ctx context.Context, subjectID int64, facultyID, departmentCode string, year int) (bool, error)
	Create(ctx context.Context, offering *models.SubjectOffering) error
	HasEnrollments(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type offeringSubjectReader interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type offeringFacultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

// CreateOfferingRequest assigns a faculty member to teach a subject for
// one department and year.
type CreateOfferingRequest struct {
	SubjectID      int64  `json:"subject_id" validate:"required"`
	FacultyID      string `json:"faculty_id" validate:"required"`
	DepartmentCode string `json:"department_code" validate:"required"`
	Year           string `json:"year" validate:"required"`
}

// OfferingService manages subject offerings. Creation enforces that the
// offering's department matches the subject's and the faculty member's,
// using normalized codes, so the invariant checks downstream never see
// mixed spellings.
type OfferingService struct {
	repo     offeringStore
	subjects offeringSubjectReader
	faculty  offeringFacultyReader
	policy   CapacityPolicy
	logger   *zap.Logger
}

// NewOfferingService constructs OfferingService.
func NewOfferingService(
	repo offeringStore,
	subjects offeringSubjectReader,
	faculty offeringFacultyReader,
	policy CapacityPolicy,
	logger *zap.Logger,
) *OfferingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, subjects: subjects, faculty: faculty, policy: policy, logger: logger}
}

// Create assigns a faculty member to a subject.
func (s *OfferingService) Create(ctx context.Context, req CreateOfferingRequest) (*models.SubjectOffering, error) {
	year, err := department.ParseYear(req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year of study")
	}
	code := department.Normalize(req.DepartmentCode)

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !department.Equal(subject.DepartmentCode, code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject belongs to a different department")
	}

	member, err := s.faculty.FindByID(ctx, req.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if !department.Equal(member.DepartmentCode, code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty member belongs to a different department")
	}

	exists, err := s.repo.Exists(ctx, req.SubjectID, req.FacultyID, code, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing offerings")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "this faculty member already offers this subject for the year")
	}

	offering := &models.SubjectOffering{
		SubjectID:      req.SubjectID,
		FacultyID:      req.FacultyID,
		DepartmentCode: code,
		Year:           year,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}
	s.logger.Info("offering created",
		zap.Int64("offering_id", offering.ID),
		zap.Int64("subject_id", offering.SubjectID),
		zap.String("faculty_id", offering.FacultyID),
		zap.String("department", offering.DepartmentCode),
		zap.Int("year", offering.Year),
	)
	return offering, nil
}

// Get returns one offering with subject and faculty context.
func (s *OfferingService) Get(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrOfferingNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return detail, nil
}

// List returns offerings matching the filter.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	if filter.DepartmentCode != "" {
		filter.DepartmentCode = department.Normalize(filter.DepartmentCode)
	}
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	return offerings, total, nil
}

// EffectiveCapacity exposes the resolved ceiling for one offering.
func (s *OfferingService) EffectiveCapacity(detail *models.OfferingDetail) int {
	return s.policy.EffectiveCapacity(detail)
}

// Delete removes an offering. Offerings with committed enrollments are
// protected: removing one would strand enrollment rows, and slots once
// granted are final.
func (s *OfferingService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	has, err := s.repo.HasEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
	}
	if has {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "offering has committed enrollments")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	s.logger.Info("offering deleted", zap.Int64("offering_id", id))
	return nil
}
