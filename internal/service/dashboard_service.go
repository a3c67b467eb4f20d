package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/department"
	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type dashboardOfferingLister interface {
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error)
}

type dashboardStudentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

// OfferingSeatUsage summarises seat consumption for one offering.
type OfferingSeatUsage struct {
	OfferingID  int64  `json:"offering_id"`
	SubjectName string `json:"subject_name"`
	FacultyName string `json:"faculty_name"`
	Year        int    `json:"year"`
	SeatsTaken  int    `json:"seats_taken"`
	Capacity    int    `json:"capacity"`
	Full        bool   `json:"full"`
}

// DashboardSnapshot is the per-department overview served to admins.
type DashboardSnapshot struct {
	DepartmentCode   string              `json:"department_code"`
	TotalStudents    int                 `json:"total_students"`
	TotalOfferings   int                 `json:"total_offerings"`
	TotalEnrollments int                 `json:"total_enrollments"`
	FullOfferings    int                 `json:"full_offerings"`
	Offerings        []OfferingSeatUsage `json:"offerings"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

// DashboardService builds department snapshots, cached in Redis with a
// short TTL. The snapshot uses the display counters, not transactional
// reads; it is an overview, not the capacity source of truth.
type DashboardService struct {
	offerings dashboardOfferingLister
	students  dashboardStudentLister
	cache     *redis.Client
	policy    CapacityPolicy
	ttl       time.Duration
	logger    *zap.Logger
}

// NewDashboardService constructs DashboardService. cache may be nil,
// in which case every call rebuilds the snapshot.
func NewDashboardService(
	offerings dashboardOfferingLister,
	students dashboardStudentLister,
	cache *redis.Client,
	policy CapacityPolicy,
	ttl time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		offerings: offerings,
		students:  students,
		cache:     cache,
		policy:    policy,
		ttl:       ttl,
		logger:    logger,
	}
}

// Snapshot returns the department overview, serving from cache when a
// fresh copy exists.
func (s *DashboardService) Snapshot(ctx context.Context, departmentCode string) (*DashboardSnapshot, error) {
	code := department.Normalize(departmentCode)
	cacheKey := "dashboard:" + code

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var snapshot DashboardSnapshot
			if err := json.Unmarshal(raw, &snapshot); err == nil {
				return &snapshot, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.String("department", code), zap.Error(err))
		}
	}

	snapshot, err := s.build(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(snapshot); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.String("department", code), zap.Error(err))
			}
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot for a department.
func (s *DashboardService) Invalidate(ctx context.Context, departmentCode string) {
	if s.cache == nil {
		return
	}
	code := department.Normalize(departmentCode)
	if err := s.cache.Del(ctx, "dashboard:"+code).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("department", code), zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context, code string) (*DashboardSnapshot, error) {
	_, totalStudents, err := s.students.List(ctx, models.StudentFilter{DepartmentCode: code, PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	snapshot := &DashboardSnapshot{
		DepartmentCode: code,
		TotalStudents:  totalStudents,
		GeneratedAt:    time.Now().UTC(),
	}

	for page := 1; ; page++ {
		offerings, total, err := s.offerings.List(ctx, models.OfferingFilter{
			DepartmentCode: code,
			Page:           page,
			PageSize:       100,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
		}
		snapshot.TotalOfferings = total

		for i := range offerings {
			detail := &offerings[i]
			capacity := s.policy.EffectiveCapacity(detail)
			usage := OfferingSeatUsage{
				OfferingID:  detail.ID,
				SubjectName: detail.SubjectName,
				FacultyName: detail.FacultyName,
				Year:        detail.Year,
				SeatsTaken:  detail.SelectedCount,
				Capacity:    capacity,
				Full:        detail.SelectedCount >= capacity,
			}
			snapshot.TotalEnrollments += usage.SeatsTaken
			if usage.Full {
				snapshot.FullOfferings++
			}
			snapshot.Offerings = append(snapshot.Offerings, usage)
		}

		if len(offerings) == 0 || len(snapshot.Offerings) >= total {
			break
		}
	}
	return snapshot, nil
}
