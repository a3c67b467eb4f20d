package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestWindowFindForReturnsNilWhenUnconfigured(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWindowRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_windows")).
		WithArgs("CSE", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	window, err := repo.FindFor(context.Background(), "CSE", 2)
	require.NoError(t, err)
	require.Nil(t, window)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowFindForPrefersYearScopedRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWindowRepository(db)
	year := 2
	rows := sqlmock.NewRows([]string{"id", "department_code", "year", "enabled", "starts_at", "ends_at", "disabled_message", "updated_at"}).
		AddRow(int64(7), "CSE", year, false, nil, nil, "second years wait", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY year NULLS LAST")).
		WithArgs("CSE", 2).
		WillReturnRows(rows)

	window, err := repo.FindFor(context.Background(), "CSE", 2)
	require.NoError(t, err)
	require.NotNil(t, window)
	require.NotNil(t, window.Year)
	require.Equal(t, 2, *window.Year)
	require.False(t, window.Enabled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWindowRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollment_windows")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
