package service

import (
	"context"
	"strconv"

	"github.com/campuskit/dept-admin-api/internal/models"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/export"
)

type reportStore interface {
	Rows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRow, error)
}

// ReportService projects committed enrollments to flat report rows.
type ReportService struct {
	repo reportStore
}

// NewReportService constructs ReportService.
func NewReportService(repo reportStore) *ReportService {
	return &ReportService{repo: repo}
}

// reportColumns is the fixed column order used by both the JSON
// response and the exported files.
var reportColumns = []string{
	"Student Name", "Reg Number", "Email", "Year",
	"Subject", "Faculty", "Semester", "Department", "Enrolled At",
}

// Rows returns every committed enrollment matching the filter, ordered
// by enrollment time then student name.
func (s *ReportService) Rows(ctx context.Context, filter models.ReportFilter) ([]models.ReportRow, error) {
	rows, err := s.repo.Rows(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query enrollment report")
	}
	return rows, nil
}

// Table renders the filtered report into the tabular form consumed by
// the file exporters.
func (s *ReportService) Table(ctx context.Context, filter models.ReportFilter) (export.Table, error) {
	rows, err := s.Rows(ctx, filter)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{Columns: reportColumns, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.StudentName,
			row.RegNumber,
			row.Email,
			strconv.Itoa(row.Year),
			row.SubjectName,
			row.FacultyName,
			row.Semester,
			row.DepartmentCode,
			row.EnrolledAt.UTC().Format("2006-01-02 15:04:05.000000"),
		})
	}
	return table, nil
}
