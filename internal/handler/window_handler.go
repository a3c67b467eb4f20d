package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/dept-admin-api/internal/middleware"
	"github.com/campuskit/dept-admin-api/internal/service"
	appErrors "github.com/campuskit/dept-admin-api/pkg/errors"
	"github.com/campuskit/dept-admin-api/pkg/response"
)

// WindowHandler exposes enrollment window endpoints.
type WindowHandler struct {
	windows *service.WindowService
}

// NewWindowHandler constructs WindowHandler.
func NewWindowHandler(windows *service.WindowService) *WindowHandler {
	return &WindowHandler{windows: windows}
}

// Status godoc
// @Summary Report whether subject selection is open
// @Tags Windows
// @Produce json
// @Param department query string false "Department code (defaults to the caller's)"
// @Param year query int false "Year of study"
// @Success 200 {object} response.Envelope
// @Router /windows/status [get]
func (h *WindowHandler) Status(c *gin.Context) {
	code := c.Query("department")
	if code == "" {
		code, _ = middleware.DepartmentFrom(c)
	}
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department code is required"))
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))

	status, err := h.windows.Status(c.Request.Context(), code, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List configured enrollment windows
// @Tags Windows
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /windows [get]
func (h *WindowHandler) List(c *gin.Context) {
	windows, err := h.windows.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Upsert godoc
// @Summary Create or replace an enrollment window
// @Tags Windows
// @Accept json
// @Produce json
// @Param payload body service.UpsertWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Router /windows [put]
func (h *WindowHandler) Upsert(c *gin.Context) {
	var req service.UpsertWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	window, err := h.windows.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Remove an enrollment window
// @Tags Windows
// @Produce json
// @Param id path int true "Window ID"
// @Success 204
// @Router /windows/{id} [delete]
func (h *WindowHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid window id"))
		return
	}
	if err := h.windows.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
