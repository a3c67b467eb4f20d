package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func offeringDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject_id", "faculty_id", "department_code", "year", "selected_count", "created_at",
		"subject_name", "subject_type", "semester", "max_enrollments", "faculty_name",
	}).AddRow(int64(10), int64(100), "fac-1", "CSE", 3, 5, time.Now(), "Operating Systems", "CORE", "ODD", nil, "Dr. Rao")
}

func TestEnrollmentTxLocksOfferingFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF o")).
		WithArgs(int64(10)).
		WillReturnRows(offeringDetailRows())
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		detail, err := tx.OfferingForUpdate(context.Background(), 10)
		require.NoError(t, err)
		require.Equal(t, int64(10), detail.ID)
		require.Equal(t, "Operating Systems", detail.SubjectName)
		require.Equal(t, models.SubjectTypeCore, detail.SubjectType)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("validation failed")
	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxCommittedCountReReads(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE offering_id")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(69))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		count, err := tx.CommittedCount(context.Background(), 10)
		require.NoError(t, err)
		require.Equal(t, 69, count)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxInsertMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		return tx.Insert(context.Background(), &models.Enrollment{
			StudentID:  "20CS001",
			OfferingID: 10,
			EnrolledAt: time.Now().UTC(),
		})
	})
	require.True(t, appErrors.Is(err, appErrors.ErrAlreadyEnrolledOffering))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxWindowAbsenceFailsOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY year NULLS LAST")).
		WithArgs("CSE", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		window, err := tx.Window(context.Background(), "CSE", 3)
		require.NoError(t, err)
		require.Nil(t, window)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxInsertAndCounterUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	enrolledAt := time.Date(2026, 3, 10, 9, 30, 0, 123456000, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs("20CS001", int64(10), enrolledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_offerings SET selected_count")).
		WithArgs(int64(10), 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET selected_subjects")).
		WithArgs("20CS001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx EnrollmentTx) error {
		if err := tx.Insert(context.Background(), &models.Enrollment{
			StudentID: "20CS001", OfferingID: 10, EnrolledAt: enrolledAt,
		}); err != nil {
			return err
		}
		if err := tx.SetOfferingCount(context.Background(), 10, 6); err != nil {
			return err
		}
		return tx.RefreshStudentSelections(context.Background(), "20CS001")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentSelectionsJoinsOfferings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"subject_id", "subject_type"}).
		AddRow(int64(100), "CORE").
		AddRow(int64(101), "PROFESSIONAL_ELECTIVE_1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT o.subject_id, s.subject_type")).
		WithArgs("20CS001").
		WillReturnRows(rows)

	selections, err := repo.StudentSelections(context.Background(), "20CS001")
	require.NoError(t, err)
	require.Len(t, selections, 2)
	require.Equal(t, models.SubjectTypeElective1, selections[1].SubjectType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequiredSelectionsSplitsCoreAndTags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"subject_id", "subject_type"}).
		AddRow(int64(100), "CORE").
		AddRow(int64(101), "PROFESSIONAL_ELECTIVE_1").
		AddRow(int64(102), "PROFESSIONAL_ELECTIVE_1").
		AddRow(int64(103), "OPEN_ELECTIVE")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT s.id AS subject_id")).
		WithArgs("CSE", 3).
		WillReturnRows(rows)

	set, err := repo.RequiredSelections(context.Background(), "CSE", 3)
	require.NoError(t, err)
	require.Equal(t, []int64{100}, set.CoreSubjectIDs)
	require.ElementsMatch(t, []models.SubjectType{models.SubjectTypeElective1, models.SubjectTypeOpenElective}, set.ElectiveTags)
	require.NoError(t, mock.ExpectationsWereMet())
}
