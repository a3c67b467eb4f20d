package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/models"
	"github.com/campuskit/dept-admin-api/internal/service"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/response"
)

// OfferingHandler exposes subject offering endpoints.
type OfferingHandler struct {
	offerings *service.OfferingService
}

// NewOfferingHandler constructs OfferingHandler.
func NewOfferingHandler(offerings *service.OfferingService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings}
}

// Create godoc
// @Summary Assign a faculty member to a subject
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body service.CreateOfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	var req service.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// List godoc
// @Summary List offerings
// @Tags Offerings
// @Produce json
// @Param department query string false "Filter by department"
// @Param year query int false "Filter by year"
// @Param subjectId query int false "Filter by subject"
// @Param facultyId query string false "Filter by faculty"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	var filter models.OfferingFilter
	filter.DepartmentCode = c.Query("department")
	filter.FacultyID = c.Query("facultyId")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if subjectID, err := strconv.ParseInt(c.Query("subjectId"), 10, 64); err == nil {
		filter.SubjectID = subjectID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	offerings, total, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get an offering with seat availability
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid offering id"))
		return
	}
	detail, err := h.offerings.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil, map[string]interface{}{
		"effective_capacity": h.offerings.EffectiveCapacity(detail),
	})
}

// Delete godoc
// @Summary Delete an offering
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Success 204
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid offering id"))
		return
	}
	if err := h.offerings.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
