package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/service"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
	"github.com/autoescuela/scheduling-api/pkg/response"
)

type bookingEligibilityService interface {
	CanStudentBook(ctx context.Context, studentID string) (dto.BookingEligibility, error)
	GetStudentDebt(ctx context.Context, studentID string) (dto.StudentDebtSummary, error)
}

// BookingHandler exposes the student-facing booking path: the debt and
// no-show gates apply and the booking horizon cannot be skipped.
type BookingHandler struct {
	appointments appointmentService
	penalties    bookingEligibilityService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(appointments appointmentService, penalties bookingEligibilityService) *BookingHandler {
	return &BookingHandler{appointments: appointments, penalties: penalties}
}

// Create godoc
// @Summary Book an appointment (student)
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	studentID := claims.UserID
	cand := dto.AppointmentCandidate{
		InstructorID: req.InstructorID,
		StudentID:    &studentID,
		ClassTypeID:  req.ClassTypeID,
		ResourceID:   req.ResourceID,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	appt, err := h.appointments.Create(c.Request.Context(), cand, service.CreateOptions{FromStudentPath: true})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Eligibility godoc
// @Summary Check whether a student may book
// @Tags Bookings
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/booking-eligibility [get]
func (h *BookingHandler) Eligibility(c *gin.Context) {
	eligibility, err := h.penalties.CanStudentBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligibility, nil)
}

// Debt godoc
// @Summary Get a student's outstanding debt
// @Tags Bookings
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/debt [get]
func (h *BookingHandler) Debt(c *gin.Context) {
	debt, err := h.penalties.GetStudentDebt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, debt, nil)
}
