package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/middleware"
	"github.com/campuskit/dept-admin-api/internal/service"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/response"
)

// DashboardHandler exposes the department overview endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Snapshot godoc
// @Summary Department enrollment overview
// @Tags Dashboard
// @Produce json
// @Param department query string false "Department code (defaults to the caller's)"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	if h.dashboard == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "dashboard is disabled"))
		return
	}
	code := c.Query("department")
	if code == "" {
		code, _ = middleware.DepartmentFrom(c)
	}
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department code is required"))
		return
	}
	snapshot, err := h.dashboard.Snapshot(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
