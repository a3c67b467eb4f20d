package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

const fallbackMessage = "subject selection has been disabled by the department"

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluateWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		window     *models.EnrollmentWindow
		wantOpen   bool
		wantReason string
	}{
		{
			name:     "no window configured",
			window:   nil,
			wantOpen: true,
		},
		{
			name:       "disabled with custom message",
			window:     &models.EnrollmentWindow{Enabled: false, DisabledMessage: "maintenance until Friday"},
			wantOpen:   false,
			wantReason: "maintenance until Friday",
		},
		{
			name:       "disabled without message uses fallback",
			window:     &models.EnrollmentWindow{Enabled: false},
			wantOpen:   false,
			wantReason: fallbackMessage,
		},
		{
			name:     "enabled without range",
			window:   &models.EnrollmentWindow{Enabled: true},
			wantOpen: true,
		},
		{
			name: "before start",
			window: &models.EnrollmentWindow{
				Enabled:  true,
				StartsAt: timePtr(now.Add(time.Hour)),
			},
			wantOpen: false,
		},
		{
			name: "after end",
			window: &models.EnrollmentWindow{
				Enabled: true,
				EndsAt:  timePtr(now.Add(-time.Hour)),
			},
			wantOpen:   false,
			wantReason: "subject selection has closed",
		},
		{
			name: "inside range",
			window: &models.EnrollmentWindow{
				Enabled:  true,
				StartsAt: timePtr(now.Add(-time.Hour)),
				EndsAt:   timePtr(now.Add(time.Hour)),
			},
			wantOpen: true,
		},
		{
			name: "boundaries are inclusive",
			window: &models.EnrollmentWindow{
				Enabled:  true,
				StartsAt: timePtr(now),
				EndsAt:   timePtr(now),
			},
			wantOpen: true,
		},
		{
			name: "open ended after start",
			window: &models.EnrollmentWindow{
				Enabled:  true,
				StartsAt: timePtr(now.Add(-time.Hour)),
			},
			wantOpen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := EvaluateWindow(tt.window, fallbackMessage, now)
			assert.Equal(t, tt.wantOpen, status.Open)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, status.Reason)
			}
			assert.NotEmpty(t, status.Reason)
		})
	}
}

type fakeWindowStore struct {
	byDept  map[string]*models.EnrollmentWindow
	saved   *models.EnrollmentWindow
	deleted []int64
}

func (f *fakeWindowStore) FindFor(ctx context.Context, departmentCode string, year int) (*models.EnrollmentWindow, error) {
	return f.byDept[departmentCode], nil
}

func (f *fakeWindowStore) List(ctx context.Context) ([]models.EnrollmentWindow, error) {
	var windows []models.EnrollmentWindow
	for _, w := range f.byDept {
		windows = append(windows, *w)
	}
	return windows, nil
}

func (f *fakeWindowStore) Upsert(ctx context.Context, window *models.EnrollmentWindow) error {
	f.saved = window
	return nil
}

func (f *fakeWindowStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestWindowStatusNormalizesDepartment(t *testing.T) {
	store := &fakeWindowStore{byDept: map[string]*models.EnrollmentWindow{
		"CSD": {DepartmentCode: "CSD", Enabled: false, DisabledMessage: "closed for data science"},
	}}
	svc := NewWindowService(store, fallbackMessage, nil)

	status, err := svc.Status(context.Background(), "cse(ds)", 3)
	require.NoError(t, err)
	assert.False(t, status.Open)
	assert.Equal(t, "closed for data science", status.Reason)
}

func TestWindowUpsertValidation(t *testing.T) {
	store := &fakeWindowStore{}
	svc := NewWindowService(store, fallbackMessage, nil)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.Upsert(context.Background(), UpsertWindowRequest{
		DepartmentCode: "CSE",
		Enabled:        true,
		StartsAt:       &start,
		EndsAt:         &end,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	badYear := "9"
	_, err = svc.Upsert(context.Background(), UpsertWindowRequest{
		DepartmentCode: "CSE",
		Year:           &badYear,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestWindowUpsertNormalizesAndParses(t *testing.T) {
	store := &fakeWindowStore{}
	svc := NewWindowService(store, fallbackMessage, nil)

	year := "III"
	window, err := svc.Upsert(context.Background(), UpsertWindowRequest{
		DepartmentCode: "cse (ds)",
		Year:           &year,
		Enabled:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "CSD", window.DepartmentCode)
	require.NotNil(t, window.Year)
	assert.Equal(t, 3, *window.Year)
	assert.Same(t, window, store.saved)
}
