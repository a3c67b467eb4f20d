package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/middleware"
	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/service"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/response"
)

// EnrollRequest is the enrollment submission payload. Admin callers may
// enroll on behalf of a student; student callers always act as
// themselves.
type EnrollRequest struct {
	StudentID  string `json:"student_id"`
	OfferingID int64  `json:"offering_id" binding:"required"`
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll a student into a subject offering
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	studentID := req.StudentID
	if role, _ := middleware.RoleFrom(c); role == models.RoleStudent {
		own, ok := middleware.StudentIDFrom(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student record"))
			return
		}
		studentID = own
	}
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}

	confirmation, err := h.enrollments.Enroll(c.Request.Context(), studentID, req.OfferingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, confirmation)
}

// Unenroll godoc
// @Summary Remove an enrollment (always rejected)
// @Tags Enrollments
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{offeringId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	offeringID, err := strconv.ParseInt(c.Param("offeringId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid offering id"))
		return
	}
	studentID, _ := middleware.StudentIDFrom(c)
	response.Error(c, h.enrollments.Unenroll(c.Request.Context(), studentID, offeringID))
}

// ListMine godoc
// @Summary List the caller's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	studentID, ok := middleware.StudentIDFrom(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student record"))
		return
	}
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Completion godoc
// @Summary Report whether the caller has filled every required slot
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/me/completion [get]
func (h *EnrollmentHandler) Completion(c *gin.Context) {
	studentID, ok := middleware.StudentIDFrom(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a student record"))
		return
	}
	completed, err := h.enrollments.CompletionForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"completed_all_selections": completed}, nil)
}

// ListByStudent godoc
// @Summary List a student's enrollments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student registration number"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
