package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/repository"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/notify"
)

type fakeEnrollmentStore struct {
	offerings   map[int64]models.OfferingDetail
	windows     []models.EnrollmentWindow
	enrollments []models.Enrollment
	required    models.RequirementSet
	counters    map[int64]int
	refreshed   []string
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
	return &fakeEnrollmentStore{
		offerings: make(map[int64]models.OfferingDetail),
		counters:  make(map[int64]int),
	}
}

func (f *fakeEnrollmentStore) InTx(ctx context.Context, fn func(tx repository.EnrollmentTx) error) error {
	snapshot := make([]models.Enrollment, len(f.enrollments))
	copy(snapshot, f.enrollments)
	counters := make(map[int64]int, len(f.counters))
	for k, v := range f.counters {
		counters[k] = v
	}
	refreshed := make([]string, len(f.refreshed))
	copy(refreshed, f.refreshed)

	if err := fn(&fakeEnrollmentTx{store: f}); err != nil {
		f.enrollments = snapshot
		f.counters = counters
		f.refreshed = refreshed
		return err
	}
	return nil
}

func (f *fakeEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var details []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if e.StudentID != studentID {
			continue
		}
		detail := f.offerings[e.OfferingID]
		details = append(details, models.EnrollmentDetail{
			Enrollment:  e,
			SubjectID:   detail.SubjectID,
			SubjectName: detail.SubjectName,
			SubjectType: detail.SubjectType,
			FacultyName: detail.FacultyName,
		})
	}
	return details, nil
}

func (f *fakeEnrollmentStore) StudentSelections(ctx context.Context, studentID string) ([]models.Selection, error) {
	var selections []models.Selection
	for _, e := range f.enrollments {
		if e.StudentID != studentID {
			continue
		}
		detail := f.offerings[e.OfferingID]
		selections = append(selections, models.Selection{
			SubjectID:   detail.SubjectID,
			SubjectType: detail.SubjectType,
		})
	}
	return selections, nil
}

func (f *fakeEnrollmentStore) RequiredSelections(ctx context.Context, departmentCode string, year int) (*models.RequirementSet, error) {
	required := f.required
	return &required, nil
}

type fakeEnrollmentTx struct {
	store *fakeEnrollmentStore
}

func (t *fakeEnrollmentTx) OfferingForUpdate(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	detail, ok := t.store.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func (t *fakeEnrollmentTx) Window(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error) {
	var fallback *models.EnrollmentWindow
	for i := range t.store.windows {
		w := &t.store.windows[i]
		if w.DepartmentCode != departmentCode {
			continue
		}
		if w.Year != nil && *w.Year == year {
			return w, nil
		}
		if w.Year == nil {
			fallback = w
		}
	}
	return fallback, nil
}

func (t *fakeEnrollmentTx) HasOfferingEnrollment(ctx context.Context, studentID string, offeringID int64) (bool, error) {
	for _, e := range t.store.enrollments {
		if e.StudentID == studentID && e.OfferingID == offeringID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeEnrollmentTx) HasSubjectEnrollment(ctx context.Context, studentID string, subjectID int64) (bool, error) {
	for _, e := range t.store.enrollments {
		if e.StudentID == studentID && t.store.offerings[e.OfferingID].SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeEnrollmentTx) HasElectiveEnrollment(ctx context.Context, studentID string, tag models.SubjectType) (bool, error) {
	for _, e := range t.store.enrollments {
		if e.StudentID == studentID && t.store.offerings[e.OfferingID].SubjectType == tag {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeEnrollmentTx) CommittedCount(ctx context.Context, offeringID int64) (int, error) {
	count := 0
	for _, e := range t.store.enrollments {
		if e.OfferingID == offeringID {
			count++
		}
	}
	return count, nil
}

func (t *fakeEnrollmentTx) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	for _, e := range t.store.enrollments {
		if e.StudentID == enrollment.StudentID && e.OfferingID == enrollment.OfferingID {
			return appErrors.ErrAlreadyEnrolledOffering
		}
	}
	t.store.enrollments = append(t.store.enrollments, *enrollment)
	return nil
}

func (t *fakeEnrollmentTx) SetOfferingCount(ctx context.Context, offeringID int64, count int) error {
	t.store.counters[offeringID] = count
	return nil
}

func (t *fakeEnrollmentTx) RefreshStudentSelections(ctx context.Context, studentID string) error {
	t.store.refreshed = append(t.store.refreshed, studentID)
	return nil
}

type fakeStudentReader struct {
	students map[string]*models.Student
}

func (f *fakeStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := f.students[id]; ok {
		copied := *student
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Publish(event notify.Event) {
	r.events = append(r.events, event)
}

type recordingMetrics struct {
	outcomes []string
	full     int
}

func (r *recordingMetrics) ObserveEnrollmentAttempt(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) ObserveOfferingFull() { r.full++ }

func intPtr(v int) *int { return &v }

func testOffering(id, subjectID int64, dept string, year int, subjectType models.SubjectType, max *int) models.OfferingDetail {
	return models.OfferingDetail{
		SubjectOffering: models.SubjectOffering{
			ID:             id,
			SubjectID:      subjectID,
			FacultyID:      "fac-1",
			DepartmentCode: dept,
			Year:           year,
		},
		SubjectName:    fmt.Sprintf("Subject %d", subjectID),
		SubjectType:    subjectType,
		Semester:       "ODD",
		MaxEnrollments: max,
		FacultyName:    "Dr. Rao",
	}
}

func newTestEnrollmentService(store *fakeEnrollmentStore, students *fakeStudentReader, notifier *recordingNotifier, metrics *recordingMetrics) *EnrollmentService {
	// Pass true nil interfaces when the concrete pointers are nil, so the
	// service's nil checks see them as absent rather than typed-nil.
	var n enrollmentNotifier
	if notifier != nil {
		n = notifier
	}
	var m enrollmentMetrics
	if metrics != nil {
		m = metrics
	}
	return NewEnrollmentService(
		store, students, n, m,
		CapacityPolicy{Default: 70, YearTwoCore: 60},
		"subject selection has been disabled by the department",
		nil,
	)
}

func TestEnrollSuccess(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	store.required = models.RequirementSet{CoreSubjectIDs: []int64{100}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	svc := newTestEnrollmentService(store, students, notifier, metrics)

	confirmation, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)

	assert.Equal(t, "20CS001", confirmation.StudentID)
	assert.Equal(t, int64(10), confirmation.OfferingID)
	assert.Equal(t, 1, confirmation.SeatsTaken)
	assert.Equal(t, 70, confirmation.Capacity)
	assert.True(t, confirmation.CompletedAllSelections)
	assert.Equal(t, time.UTC, confirmation.EnrolledAt.Location())
	assert.False(t, confirmation.EnrolledAt.IsZero())

	assert.Equal(t, 1, store.counters[10])
	assert.Equal(t, []string{"20CS001"}, store.refreshed)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.KindEnrollment, notifier.events[0].Kind)
	assert.Contains(t, metrics.outcomes, "COMMITTED")
}

func TestEnrollStudentNotFound(t *testing.T) {
	svc := newTestEnrollmentService(newFakeEnrollmentStore(), &fakeStudentReader{}, nil, nil)

	_, err := svc.Enroll(context.Background(), "missing", 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrStudentNotFound))
}

func TestEnrollOfferingNotFound(t *testing.T) {
	store := newFakeEnrollmentStore()
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 99)
	assert.True(t, appErrors.Is(err, appErrors.ErrOfferingNotFound))
}

func TestEnrollWindowClosed(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	store.offerings[20] = testOffering(20, 200, "ECE", 3, models.SubjectTypeCore, nil)
	store.windows = []models.EnrollmentWindow{{
		DepartmentCode:  "CSE",
		Enabled:         false,
		DisabledMessage: "selection opens next week",
	}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
		"20EC001": {ID: "20EC001", DepartmentCode: "ECE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.True(t, appErrors.Is(err, appErrors.ErrWindowClosed))
	assert.Contains(t, appErrors.FromError(err).Message, "selection opens next week")
	assert.Empty(t, store.enrollments)

	// Another department is not affected by this window.
	_, err = svc.Enroll(context.Background(), "20EC001", 20)
	assert.NoError(t, err)
}

func TestEnrollDepartmentMismatch(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "ECE", 3, models.SubjectTypeCore, nil)
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	assert.True(t, appErrors.Is(err, appErrors.ErrDepartmentMismatch))
	assert.Empty(t, store.enrollments)
}

func TestEnrollDepartmentSpellingsMatch(t *testing.T) {
	// Both spellings of the data-science branch identify one department.
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE(DS)", 3, models.SubjectTypeCore, nil)
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CD001": {ID: "20CD001", DepartmentCode: "CSEDS", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CD001", 10)
	assert.NoError(t, err)
}

func TestEnrollElectiveGroupTaken(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeElective1, nil)
	store.offerings[11] = testOffering(11, 101, "CSE", 3, models.SubjectTypeElective1, nil)
	store.enrollments = []models.Enrollment{{StudentID: "20CS001", OfferingID: 10, EnrolledAt: time.Now().UTC()}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 11)
	assert.True(t, appErrors.Is(err, appErrors.ErrElectiveGroupTaken))
	assert.Len(t, store.enrollments, 1)
}

func TestEnrollDifferentElectiveGroupAllowed(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeElective1, nil)
	store.offerings[12] = testOffering(12, 102, "CSE", 3, models.SubjectTypeElective2, nil)
	store.enrollments = []models.Enrollment{{StudentID: "20CS001", OfferingID: 10, EnrolledAt: time.Now().UTC()}}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 12)
	assert.NoError(t, err)
}

func TestEnrollDuplicateOffering(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), "20CS001", 10)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyEnrolledOffering))
	assert.Len(t, store.enrollments, 1)
}

func TestEnrollCoreSubjectWithSecondFaculty(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	store.offerings[11] = testOffering(11, 100, "CSE", 3, models.SubjectTypeCore, nil)
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), "20CS001", 11)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyEnrolledSubject))
}

func TestEnrollCapacityExceeded(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, intPtr(2))
	store.enrollments = []models.Enrollment{
		{StudentID: "20CS001", OfferingID: 10},
		{StudentID: "20CS002", OfferingID: 10},
	}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS003": {ID: "20CS003", DepartmentCode: "CSE", Year: 3},
	}}
	notifier := &recordingNotifier{}
	svc := newTestEnrollmentService(store, students, notifier, nil)

	_, err := svc.Enroll(context.Background(), "20CS003", 10)
	require.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Contains(t, appErrors.FromError(err).Message, "capacity 2")
	assert.Len(t, store.enrollments, 2)
	assert.Empty(t, notifier.events)
}

func TestEnrollCapacityCeilingHolds(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, intPtr(3))
	students := &fakeStudentReader{students: map[string]*models.Student{}}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("20CS%03d", i)
		students.students[id] = &models.Student{ID: id, DepartmentCode: "CSE", Year: 3}
	}
	svc := newTestEnrollmentService(store, students, nil, nil)

	succeeded, rejected := 0, 0
	for i := 1; i <= 5; i++ {
		_, err := svc.Enroll(context.Background(), fmt.Sprintf("20CS%03d", i), 10)
		switch {
		case err == nil:
			succeeded++
		case appErrors.Is(err, appErrors.ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 2, rejected)
	assert.Len(t, store.enrollments, 3)
}

func TestEnrollCapacityReachedNotification(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, intPtr(1))
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{}
	svc := newTestEnrollmentService(store, students, notifier, metrics)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, notify.KindEnrollment, notifier.events[0].Kind)
	assert.Equal(t, notify.KindCapacityReached, notifier.events[1].Kind)
	assert.Equal(t, 1, metrics.full)
}

func TestEffectiveCapacityDefaults(t *testing.T) {
	policy := CapacityPolicy{Default: 70, YearTwoCore: 60}

	tests := []struct {
		name     string
		offering models.OfferingDetail
		want     int
	}{
		{"explicit limit wins", testOffering(1, 1, "CSE", 2, models.SubjectTypeCore, intPtr(40)), 40},
		{"core year two", testOffering(1, 1, "CSE", 2, models.SubjectTypeCore, nil), 60},
		{"core other year", testOffering(1, 1, "CSE", 3, models.SubjectTypeCore, nil), 70},
		{"elective year two", testOffering(1, 1, "CSE", 2, models.SubjectTypeElective1, nil), 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offering := tt.offering
			assert.Equal(t, tt.want, policy.EffectiveCapacity(&offering))
		})
	}
}

func TestUnenrollAlwaysRejected(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)

	err = svc.Unenroll(context.Background(), "20CS001", 10)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnenrollNotPermitted))
	assert.Len(t, store.enrollments, 1)
}

func TestHasCompletedAllSelections(t *testing.T) {
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 3, models.SubjectTypeCore, nil)
	store.offerings[11] = testOffering(11, 101, "CSE", 3, models.SubjectTypeElective1, nil)
	store.required = models.RequirementSet{
		CoreSubjectIDs: []int64{100},
		ElectiveTags:   []models.SubjectType{models.SubjectTypeElective1},
	}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	completed, err := svc.HasCompletedAllSelections(context.Background(), "20CS001", "CSE", 3)
	require.NoError(t, err)
	assert.False(t, completed)

	_, err = svc.Enroll(context.Background(), "20CS001", 10)
	require.NoError(t, err)
	completed, err = svc.HasCompletedAllSelections(context.Background(), "20CS001", "CSE", 3)
	require.NoError(t, err)
	assert.False(t, completed)

	_, err = svc.Enroll(context.Background(), "20CS001", 11)
	require.NoError(t, err)
	completed, err = svc.HasCompletedAllSelections(context.Background(), "20CS001", "CSE", 3)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestHasCompletedAllSelectionsNoRequirements(t *testing.T) {
	store := newFakeEnrollmentStore()
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 3},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	completed, err := svc.HasCompletedAllSelections(context.Background(), "20CS001", "CSE", 3)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestYearScopedWindowTakesPrecedence(t *testing.T) {
	yearTwo := 2
	store := newFakeEnrollmentStore()
	store.offerings[10] = testOffering(10, 100, "CSE", 2, models.SubjectTypeCore, nil)
	store.windows = []models.EnrollmentWindow{
		{DepartmentCode: "CSE", Enabled: true},
		{DepartmentCode: "CSE", Year: &yearTwo, Enabled: false, DisabledMessage: "second years wait"},
	}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"20CS001": {ID: "20CS001", DepartmentCode: "CSE", Year: 2},
	}}
	svc := newTestEnrollmentService(store, students, nil, nil)

	_, err := svc.Enroll(context.Background(), "20CS001", 10)
	require.True(t, appErrors.Is(err, appErrors.ErrWindowClosed))
	assert.Contains(t, appErrors.FromError(err).Message, "second years wait")
}
