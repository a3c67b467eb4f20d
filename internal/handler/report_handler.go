package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/middleware"
	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/service"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/response"
)

// ReportHandler exposes enrollment reporting and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

func reportFilterFromQuery(c *gin.Context) models.ReportFilter {
	var filter models.ReportFilter
	if subjectID, err := strconv.ParseInt(c.Query("subjectId"), 10, 64); err == nil {
		filter.SubjectID = subjectID
	}
	filter.FacultyID = c.Query("facultyId")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	filter.Semester = c.Query("semester")
	return filter
}

// Rows godoc
// @Summary Query the enrollment report
// @Tags Reports
// @Produce json
// @Param subjectId query int false "Filter by subject"
// @Param facultyId query string false "Filter by faculty"
// @Param year query int false "Filter by year"
// @Param semester query string false "Filter by semester"
// @Success 200 {object} response.Envelope
// @Router /reports/enrollments [get]
func (h *ReportHandler) Rows(c *gin.Context) {
	rows, err := h.reports.Rows(c.Request.Context(), reportFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RequestExport godoc
// @Summary Queue a report export
// @Tags Reports
// @Produce json
// @Param format query string false "Export format (csv or pdf)"
// @Param subjectId query int false "Filter by subject"
// @Param facultyId query string false "Filter by faculty"
// @Param year query int false "Filter by year"
// @Param semester query string false "Filter by semester"
// @Success 202 {object} response.Envelope
// @Router /reports/enrollments/export [post]
func (h *ReportHandler) RequestExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	createdBy, _ := middleware.UserIDFrom(c)

	job, err := h.exports.Request(c.Request.Context(), createdBy, reportFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Get export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	job, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /reports/exports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "exports are disabled"))
		return
	}
	file, relPath, err := h.exports.OpenDownload(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(relPath)+`"`)
	c.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(c.Writer, file); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
