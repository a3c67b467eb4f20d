package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

type fakeReportStore struct {
	rows []models.ReportRow
	err  error
}

func (f *fakeReportStore) Rows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRow, error) {
	return f.rows, f.err
}

func TestReportTableFormatting(t *testing.T) {
	enrolledAt := time.Date(2026, 3, 10, 14, 30, 5, 123456000, time.FixedZone("IST", 5*3600+1800))
	store := &fakeReportStore{rows: []models.ReportRow{
		{
			StudentName:    "Anil Kumar",
			RegNumber:      "20CS001",
			Email:          "anil@example.edu",
			Year:           3,
			SubjectName:    "Operating Systems",
			FacultyName:    "Dr. Rao",
			Semester:       "ODD",
			DepartmentCode: "CSE",
			EnrolledAt:     enrolledAt,
		},
	}}
	svc := NewReportService(store)

	table, err := svc.Table(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, reportColumns, table.Columns)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "Anil Kumar", row[0])
	assert.Equal(t, "3", row[3])
	assert.Equal(t, "2026-03-10 09:00:05.123456", row[8])
}

func TestReportRowsWrapsStoreError(t *testing.T) {
	store := &fakeReportStore{err: errors.New("connection reset")}
	svc := NewReportService(store)

	_, err := svc.Rows(context.Background(), models.ReportFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
