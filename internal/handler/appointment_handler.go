package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	"github.com/autoescuela/scheduling-api/internal/service"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
	"github.com/autoescuela/scheduling-api/pkg/response"
)

type appointmentService interface {
	Get(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	Create(ctx context.Context, cand dto.AppointmentCandidate, opts service.CreateOptions) (*models.Appointment, error)
	Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error)
	SetStatus(ctx context.Context, id string, next models.AppointmentStatus) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
	MarkAttendance(ctx context.Context, appointmentID string, req dto.MarkAttendanceRequest) (*models.Attendance, error)
}

// AppointmentHandler exposes appointment lifecycle endpoints for staff.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(svc appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// List godoc
// @Summary List appointments
// @Tags Appointments
// @Produce json
// @Param instructor_id query string false "Filter by instructor"
// @Param student_id query string false "Filter by student"
// @Param class_type_id query string false "Filter by class type"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	var filter models.AppointmentFilter
	filter.InstructorID = c.Query("instructor_id")
	filter.StudentID = c.Query("student_id")
	filter.ClassTypeID = c.Query("class_type_id")
	filter.ResourceID = c.Query("resource_id")
	filter.Status = c.Query("status")

	dateFrom, err := parseDateQuery(c, "date_from")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DateFrom = dateFrom
	dateTo, err := parseDateQuery(c, "date_to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.DateTo = dateTo

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	appts, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, appts, pagination)
}

// Get godoc
// @Summary Get appointment by ID
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Create godoc
// @Summary Create appointment (staff)
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	cand := dto.AppointmentCandidate{
		InstructorID: req.InstructorID,
		StudentID:    req.StudentID,
		ClassTypeID:  req.ClassTypeID,
		ResourceID:   req.ResourceID,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	appt, err := h.service.Create(c.Request.Context(), cand, service.CreateOptions{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Update godoc
// @Summary Update appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentRequest true "Partial appointment payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	patch := models.AppointmentPatch{
		InstructorID: req.InstructorID,
		StudentID:    req.StudentID,
		ClassTypeID:  req.ClassTypeID,
		ResourceID:   req.ResourceID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		patch.Date = &date
	}

	appt, err := h.service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// SetStatus godoc
// @Summary Transition appointment status
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.authorizeTransition(c); err != nil {
		response.Error(c, err)
		return
	}
	appt, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), models.AppointmentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// authorizeTransition lets staff transition any appointment while a
// student may only transition their own. The role middleware cannot
// express this: the path param is the appointment id, so ownership is
// only known after loading the row.
func (h *AppointmentHandler) authorizeTransition(c *gin.Context) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin || claims.Role == models.RoleInstructor {
		return nil
	}
	appt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if appt.StudentID == nil || *appt.StudentID != claims.UserID {
		return appErrors.ErrForbidden
	}
	return nil
}

// Delete godoc
// @Summary Delete appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAttendance godoc
// @Summary Record attendance for an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /appointments/{id}/attendance [post]
func (h *AppointmentHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.service.MarkAttendance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
