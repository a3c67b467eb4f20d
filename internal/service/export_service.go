package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/repository"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/export"
	"github.com/campuskit/dept-admin-api/pkg/jobs"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
}

type reportTabler interface {
	Table(ctx context.Context, filter models.ReportFilter) (export.Table, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ExportService runs enrollment-report exports as background jobs.
// Callers enqueue a job and poll its status; finished jobs expose a
// signed download token so files are never served from a guessable
// path.
type ExportService struct {
	repo    exportJobStore
	reports reportTabler
	storage exportStorage
	signer  urlSigner
	queue   jobEnqueuer
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs ExportService. Attach the returned
// service's Process method as the queue handler before starting the
// queue.
func NewExportService(
	repo exportJobStore,
	reports reportTabler,
	storage exportStorage,
	signer urlSigner,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		reports: reports,
		storage: storage,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// SetQueue wires the dispatch queue. Kept separate from the constructor
// because the queue handler needs the service first.
func (s *ExportService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Request persists a new export job and enqueues it for processing.
func (s *ExportService) Request(ctx context.Context, createdBy string, filter models.ReportFilter, format models.ExportFormat) (*models.ExportJob, error) {
	switch format {
	case models.ExportFormatCSV, models.ExportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}

	job := &models.ExportJob{
		Params:    models.ExportJobParams{Filter: filter, Format: format},
		Status:    models.ExportStatusQueued,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report-export"}); err != nil {
		s.markFailed(ctx, job.ID, "export queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Status returns the job with a signed download token when finished.
func (s *ExportService) Status(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status == models.ExportStatusFinished && job.ResultURL != nil {
		token, _, err := s.signer.Generate(job.ID, *job.ResultURL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		job.ResultURL = &token
	}
	return job, nil
}

// OpenDownload validates a signed token and opens the stored file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}
	return file, relPath, nil
}

// Process is the queue handler: it renders the report for one job and
// stores the result. Returned errors trigger the queue's retry policy.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}

	table, err := s.reports.Table(ctx, record.Params.Filter)
	if err != nil {
		s.markFailed(ctx, record.ID, "report query failed")
		return fmt.Errorf("build export table: %w", err)
	}

	var data []byte
	switch record.Params.Format {
	case models.ExportFormatPDF:
		data, err = s.pdf.Render(table, "Enrollment Report")
	default:
		data, err = s.csv.Render(table)
	}
	if err != nil {
		s.markFailed(ctx, record.ID, "render failed")
		return fmt.Errorf("render export: %w", err)
	}

	filename := fmt.Sprintf("%s/enrollments-%s.%s",
		time.Now().UTC().Format("2006-01"), record.ID, record.Params.Format)
	relPath, err := s.storage.Save(filename, data)
	if err != nil {
		s.markFailed(ctx, record.ID, "storage write failed")
		return fmt.Errorf("store export: %w", err)
	}

	finished := models.ExportStatusFinished
	done := 100
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportJobParams{
		Status:     &finished,
		Progress:   &done,
		ResultURL:  &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}

	s.logger.Info("export finished",
		zap.String("job_id", record.ID),
		zap.String("format", string(record.Params.Format)),
		zap.Int("rows", len(table.Rows)),
	)
	return nil
}

func (s *ExportService) markFailed(ctx context.Context, id, message string) {
	failed := models.ExportStatusFailed
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		FinishedAt:   &now,
		ErrorMessage: &message,
	}); err != nil {
		s.logger.Error("failed to mark export job failed", zap.String("job_id", id), zap.Error(err))
	}
}
