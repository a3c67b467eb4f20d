package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
)

func reportRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"student_name", "reg_number", "email", "year",
		"subject_name", "faculty_name", "semester", "department_code", "enrolled_at",
	}).
		AddRow("Anil Kumar", "20CS001", "anil@example.edu", 3, "Operating Systems", "Dr. Rao", "ODD", "CSE", time.Now()).
		AddRow("Bhavna Iyer", "20CS002", "bhavna@example.edu", 3, "Operating Systems", "Dr. Rao", "ODD", "CSE", time.Now())
}

func TestReportRowsUnfilteredPreservesEnrollmentOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.enrolled_at ASC, st.full_name ASC")).
		WillReturnRows(reportRows())

	rows, err := repo.Rows(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Anil Kumar", rows[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRowsAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("o.subject_id = $1")).
		WithArgs(int64(100), "fac-1", 3, "ODD").
		WillReturnRows(reportRows())

	_, err := repo.Rows(context.Background(), models.ReportFilter{
		SubjectID: 100,
		FacultyID: "fac-1",
		Year:      3,
		Semester:  "ODD",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
