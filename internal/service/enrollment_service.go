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
	"github.com/campuskit/dept-admin-api/internal/repository"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/notify"
)

type enrollmentStore interface {
	InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	StudentSelections(ctx context.Context, studentID string) ([]models.Selection, error)
	RequiredSelections(ctx context.Context, departmentCode string, year int) (*models.RequirementSet, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentNotifier interface {
	Publish(event notify.Event)
}

type enrollmentMetrics interface {
	ObserveEnrollmentAttempt(outcome string)
	ObserveOfferingFull()
}

// CapacityPolicy holds the fallback ceilings applied when a subject has
// no explicit enrollment limit of its own.
type CapacityPolicy struct {
	Default     int
	YearTwoCore int
}

// EffectiveCapacity resolves the ceiling for one offering. A subject
// with its own limit always wins; otherwise the policy default applies,
// tightened for second-year core subjects.
func (p CapacityPolicy) EffectiveCapacity(detail *models.OfferingDetail) int {
	if detail.MaxEnrollments != nil && *detail.MaxEnrollments > 0 {
		return *detail.MaxEnrollments
	}
	if detail.SubjectType == models.SubjectTypeCore && detail.Year == 2 && p.YearTwoCore > 0 {
		return p.YearTwoCore
	}
	return p.Default
}

// EnrollmentService implements the capacity-checked enrollment
// transaction plus the read models built on committed enrollments.
// Every validation runs inside one database transaction with the
// offering row locked, so concurrent attempts against the same offering
// serialise and committed enrollments never exceed capacity.
type EnrollmentService struct {
	repo      enrollmentStore
	students  studentReader
	notifier  enrollmentNotifier
	metrics   enrollmentMetrics
	policy    CapacityPolicy
	fallback  string
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. notifier and
// metrics may be nil.
func NewEnrollmentService(
	repo enrollmentStore,
	students studentReader,
	notifier enrollmentNotifier,
	metrics enrollmentMetrics,
	policy CapacityPolicy,
	closedFallbackMessage string,
	logger *zap.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:     repo,
		students: students,
		notifier: notifier,
		metrics:  metrics,
		policy:   policy,
		fallback: closedFallbackMessage,
		logger:   logger,
		now:      time.Now,
	}
}

// Enroll commits one enrollment of the student into the offering, or
// returns exactly one domain error naming the first violated rule. The
// transaction either commits with all of its effects or leaves no
// trace.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, offeringID int64) (*models.EnrollmentConfirmation, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe(appErrors.ErrStudentNotFound.Code)
			return nil, appErrors.ErrStudentNotFound
		}
		s.observe(appErrors.ErrTransactionFailed.Code)
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, appErrors.ErrTransactionFailed.Message)
	}

	var (
		detail     *models.OfferingDetail
		enrolledAt time.Time
		seatsTaken int
		capacity   int
	)

	txErr := s.repo.InTx(ctx, func(tx repository.EnrollmentTx) error {
		var err error
		detail, err = tx.OfferingForUpdate(ctx, offeringID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrOfferingNotFound
			}
			return fmt.Errorf("lock offering: %w", err)
		}

		window, err := tx.Window(ctx, student.DepartmentCode, student.Year)
		if err != nil {
			return err
		}
		if status := EvaluateWindow(window, s.fallback, s.now().UTC()); !status.Open {
			return appErrors.Clone(appErrors.ErrWindowClosed, status.Reason)
		}

		if !department.Equal(detail.DepartmentCode, student.DepartmentCode) {
			return appErrors.ErrDepartmentMismatch
		}

		if detail.SubjectType.IsElective() {
			taken, err := tx.HasElectiveEnrollment(ctx, student.ID, detail.SubjectType)
			if err != nil {
				return err
			}
			if taken {
				return appErrors.ErrElectiveGroupTaken
			}
		}

		enrolled, err := tx.HasOfferingEnrollment(ctx, student.ID, offeringID)
		if err != nil {
			return err
		}
		if enrolled {
			return appErrors.ErrAlreadyEnrolledOffering
		}

		if detail.SubjectType == models.SubjectTypeCore {
			taken, err := tx.HasSubjectEnrollment(ctx, student.ID, detail.SubjectID)
			if err != nil {
				return err
			}
			if taken {
				return appErrors.ErrAlreadyEnrolledSubject
			}
		}

		count, err := tx.CommittedCount(ctx, offeringID)
		if err != nil {
			return err
		}
		capacity = s.policy.EffectiveCapacity(detail)
		if count >= capacity {
			return appErrors.Clone(appErrors.ErrCapacityExceeded,
				fmt.Sprintf("subject offering is full (capacity %d)", capacity))
		}

		enrolledAt = s.now().UTC()
		if err := tx.Insert(ctx, &models.Enrollment{
			StudentID:  student.ID,
			OfferingID: offeringID,
			EnrolledAt: enrolledAt,
		}); err != nil {
			return err
		}

		seatsTaken = count + 1
		if err := tx.SetOfferingCount(ctx, offeringID, seatsTaken); err != nil {
			return err
		}
		return tx.RefreshStudentSelections(ctx, student.ID)
	})
	if txErr != nil {
		var domainErr *appErrors.Error
		if errors.As(txErr, &domainErr) {
			s.observe(domainErr.Code)
			return nil, domainErr
		}
		s.observe(appErrors.ErrTransactionFailed.Code)
		s.logger.Error("enrollment transaction failed",
			zap.String("student_id", studentID),
			zap.Int64("offering_id", offeringID),
			zap.Error(txErr),
		)
		return nil, appErrors.Wrap(txErr, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, appErrors.ErrTransactionFailed.Message)
	}

	s.observe("COMMITTED")
	s.logger.Info("enrollment committed",
		zap.String("student_id", student.ID),
		zap.Int64("offering_id", offeringID),
		zap.String("subject", detail.SubjectName),
		zap.Int("seats_taken", seatsTaken),
		zap.Int("capacity", capacity),
	)

	s.broadcast(student, detail, seatsTaken, capacity, enrolledAt)

	completed, err := s.HasCompletedAllSelections(ctx, student.ID, student.DepartmentCode, student.Year)
	if err != nil {
		// The enrollment already committed; a read-model failure must
		// not turn it into a caller-visible error.
		s.logger.Warn("completion check failed after commit",
			zap.String("student_id", student.ID), zap.Error(err))
		completed = false
	}

	return &models.EnrollmentConfirmation{
		StudentID:              student.ID,
		OfferingID:             offeringID,
		SubjectName:            detail.SubjectName,
		FacultyName:            detail.FacultyName,
		EnrolledAt:             enrolledAt,
		SeatsTaken:             seatsTaken,
		Capacity:               capacity,
		CompletedAllSelections: completed,
	}, nil
}

// Unenroll rejects every removal attempt. Slots are handed out
// first-come-first-served and are final once committed.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID string, offeringID int64) error {
	s.logger.Info("unenroll attempt rejected",
		zap.String("student_id", studentID),
		zap.Int64("offering_id", offeringID),
	)
	return appErrors.ErrUnenrollNotPermitted
}

// ListByStudent returns the student's committed enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// HasCompletedAllSelections reports whether the student holds an
// enrollment for every required slot of their department and year: each
// distinct core subject on offer, plus one pick per elective tag group
// present. With no requirements on offer the student is trivially
// complete.
func (s *EnrollmentService) HasCompletedAllSelections(ctx context.Context, studentID, departmentCode string, year int) (bool, error) {
	required, err := s.repo.RequiredSelections(ctx, department.Normalize(departmentCode), year)
	if err != nil {
		return false, err
	}
	if len(required.CoreSubjectIDs) == 0 && len(required.ElectiveTags) == 0 {
		return true, nil
	}

	selections, err := s.repo.StudentSelections(ctx, studentID)
	if err != nil {
		return false, err
	}

	subjects := make(map[int64]struct{}, len(selections))
	tags := make(map[models.SubjectType]struct{}, len(selections))
	for _, sel := range selections {
		subjects[sel.SubjectID] = struct{}{}
		if sel.SubjectType.IsElective() {
			tags[sel.SubjectType] = struct{}{}
		}
	}

	for _, id := range required.CoreSubjectIDs {
		if _, ok := subjects[id]; !ok {
			return false, nil
		}
	}
	for _, tag := range required.ElectiveTags {
		if _, ok := tags[tag]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// CompletionForStudent resolves the student and reports their
// completion state.
func (s *EnrollmentService) CompletionForStudent(ctx context.Context, studentID string) (bool, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.ErrStudentNotFound
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	completed, err := s.HasCompletedAllSelections(ctx, student.ID, student.DepartmentCode, student.Year)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute completion state")
	}
	return completed, nil
}

func (s *EnrollmentService) broadcast(student *models.Student, detail *models.OfferingDetail, seatsTaken, capacity int, enrolledAt time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(notify.Event{
		Kind:           notify.KindEnrollment,
		StudentID:      student.ID,
		OfferingID:     detail.ID,
		SubjectName:    detail.SubjectName,
		FacultyName:    detail.FacultyName,
		DepartmentCode: detail.DepartmentCode,
		SeatsTaken:     seatsTaken,
		Capacity:       capacity,
		OccurredAt:     enrolledAt,
	})
	if seatsTaken >= capacity {
		if s.metrics != nil {
			s.metrics.ObserveOfferingFull()
		}
		s.notifier.Publish(notify.Event{
			Kind:           notify.KindCapacityReached,
			OfferingID:     detail.ID,
			SubjectName:    detail.SubjectName,
			FacultyName:    detail.FacultyName,
			DepartmentCode: detail.DepartmentCode,
			SeatsTaken:     seatsTaken,
			Capacity:       capacity,
			OccurredAt:     enrolledAt,
		})
	}
}

func (s *EnrollmentService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveEnrollmentAttempt(outcome)
	}
}
