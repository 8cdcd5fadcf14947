package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/service"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
	"github.com/autoescuela/scheduling-api/pkg/response"
)

// ScheduleHandler manages instructor weekly schedules and one-off
// overrides.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// ListByInstructor godoc
// @Summary List an instructor's weekly schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/schedules [get]
func (h *ScheduleHandler) ListByInstructor(c *gin.Context) {
	rows, err := h.service.ListForInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Create godoc
// @Summary Create weekly schedule row
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateWeeklyScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateWeeklyScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	row, err := h.service.CreateWeekly(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// SetActive godoc
// @Summary Toggle a weekly schedule row
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param active query bool true "Active flag"
// @Success 204
// @Router /schedules/{id}/active [put]
func (h *ScheduleHandler) SetActive(c *gin.Context) {
	active, err := strconv.ParseBool(c.Query("active"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
		return
	}
	if err := h.service.SetActive(c.Request.Context(), c.Param("id"), active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete weekly schedule row
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteWeekly(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateOverride godoc
// @Summary Create one-off schedule override
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /schedules/overrides [post]
func (h *ScheduleHandler) CreateOverride(c *gin.Context) {
	var req dto.CreateScheduleOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	row, err := h.service.CreateOverride(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}
