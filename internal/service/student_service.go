package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	HasEnrollments(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// RegisterStudentRequest carries the fields accepted at registration.
// Year accepts Roman numerals or digits; the department code accepts
// any known spelling. Both are normalized here, once, so nothing past
// this boundary compares raw strings.
type RegisterStudentRequest struct {
	ID             string `json:"id" validate:"required"`
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Year           string `json:"year" validate:"required"`
	DepartmentCode string `json:"department_code" validate:"required"`
	Semester       string `json:"semester" validate:"required"`
	Password       string `json:"password" validate:"required,min=6"`
}

// UpdateStudentRequest carries mutable profile fields.
type UpdateStudentRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Year           string `json:"year" validate:"required"`
	DepartmentCode string `json:"department_code" validate:"required"`
	Semester       string `json:"semester" validate:"required"`
}

// StudentService manages student records.
type StudentService struct {
	repo      studentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Register creates a new student record.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	year, err := department.ParseYear(req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year of study")
	}

	if _, err := s.repo.FindByID(ctx, req.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this registration number already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		ID:             req.ID,
		FullName:       req.FullName,
		Email:          req.Email,
		Year:           year,
		DepartmentCode: department.Normalize(req.DepartmentCode),
		Semester:       req.Semester,
		PasswordHash:   string(hash),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("department", student.DepartmentCode),
		zap.Int("year", student.Year),
	)
	return student, nil
}

// Get returns one student by registration number.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// List returns students matching the filter. The department filter is
// normalized so either spelling finds the same rows.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if filter.DepartmentCode != "" {
		filter.DepartmentCode = department.Normalize(filter.DepartmentCode)
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Update mutates a student's profile.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	year, err := department.ParseYear(req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year of study")
	}

	student.FullName = req.FullName
	student.Email = req.Email
	student.Year = year
	student.DepartmentCode = department.Normalize(req.DepartmentCode)
	student.Semester = req.Semester

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student. Students holding committed enrollments are
// protected unless cascade is requested explicitly; cascading removes
// their enrollment rows at the schema level.
func (s *StudentService) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if !cascade {
		has, err := s.repo.HasEnrollments(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
		}
		if has {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "student holds committed enrollments")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id), zap.Bool("cascade", cascade))
	return nil
}
