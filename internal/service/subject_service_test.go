package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type fakeSubjectStore struct {
	subjects  map[int64]*models.Subject
	created   *models.Subject
	offerings map[int64]bool
	deleted   []int64
}

func (f *fakeSubjectStore) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if s, ok := f.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubjectStore) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	return nil, 0, nil
}

func (f *fakeSubjectStore) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = 1
	f.created = subject
	return nil
}

func (f *fakeSubjectStore) Update(ctx context.Context, subject *models.Subject) error { return nil }

func (f *fakeSubjectStore) HasOfferings(ctx context.Context, id int64) (bool, error) {
	return f.offerings[id], nil
}

func (f *fakeSubjectStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func validSubjectRequest() SubjectRequest {
	return SubjectRequest{
		Name:           "Operating Systems",
		DepartmentCode: "cse",
		Year:           "III",
		Semester:       "ODD",
		Type:           models.SubjectTypeCore,
	}
}

func TestSubjectCreateNormalizes(t *testing.T) {
	store := &fakeSubjectStore{}
	svc := NewSubjectService(store, validator.New(), nil)

	subject, err := svc.Create(context.Background(), validSubjectRequest())
	require.NoError(t, err)
	assert.Equal(t, "CSE", subject.DepartmentCode)
	assert.Equal(t, 3, subject.Year)
	assert.Same(t, subject, store.created)
}

func TestSubjectCreateRejectsBadPayloads(t *testing.T) {
	store := &fakeSubjectStore{}
	svc := NewSubjectService(store, validator.New(), nil)

	tests := []struct {
		name   string
		mutate func(*SubjectRequest)
	}{
		{"missing name", func(r *SubjectRequest) { r.Name = "" }},
		{"unknown subject type", func(r *SubjectRequest) { r.Type = "LAB" }},
		{"bad semester", func(r *SubjectRequest) { r.Semester = "SUMMER" }},
		{"bad year", func(r *SubjectRequest) { r.Year = "V" }},
		{"zero capacity", func(r *SubjectRequest) { zero := 0; r.MaxEnrollments = &zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSubjectRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestSubjectDeleteProtectedByOfferings(t *testing.T) {
	store := &fakeSubjectStore{
		subjects:  map[int64]*models.Subject{1: {ID: 1, Name: "Operating Systems"}},
		offerings: map[int64]bool{1: true},
	}
	svc := NewSubjectService(store, validator.New(), nil)

	err := svc.Delete(context.Background(), 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Empty(t, store.deleted)
}
