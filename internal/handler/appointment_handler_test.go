package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/middleware"
	"github.com/autoescuela/scheduling-api/internal/models"
	"github.com/autoescuela/scheduling-api/internal/service"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type appointmentServiceMock struct {
	appt      *models.Appointment
	appts     []models.Appointment
	record    *models.Attendance
	err       error
	lastCand  dto.AppointmentCandidate
	lastOpts  service.CreateOptions
	setStatus models.AppointmentStatus
}

func (m *appointmentServiceMock) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return m.appt, m.err
}

func (m *appointmentServiceMock) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	return m.appts, len(m.appts), m.err
}

func (m *appointmentServiceMock) Create(ctx context.Context, cand dto.AppointmentCandidate, opts service.CreateOptions) (*models.Appointment, error) {
	m.lastCand = cand
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error) {
	return m.appt, m.err
}

func (m *appointmentServiceMock) SetStatus(ctx context.Context, id string, next models.AppointmentStatus) (*models.Appointment, error) {
	m.setStatus = next
	return m.appt, m.err
}

func (m *appointmentServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *appointmentServiceMock) MarkAttendance(ctx context.Context, appointmentID string, req dto.MarkAttendanceRequest) (*models.Attendance, error) {
	return m.record, m.err
}

func appointmentTestContext(t *testing.T, method, target string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	return c, w
}

func TestAppointmentHandlerCreate(t *testing.T) {
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", Status: models.AppointmentScheduled}}
	handler := NewAppointmentHandler(mock)

	payload := dto.CreateAppointmentRequest{
		InstructorID: "inst-1",
		ClassTypeID:  "ct-theory",
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
	}
	c, w := appointmentTestContext(t, http.MethodPost, "/appointments", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "inst-1", mock.lastCand.InstructorID)
	assert.False(t, mock.lastOpts.FromStudentPath, "staff endpoint never takes the student path")
}

func TestAppointmentHandlerCreateRejectsBadDate(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{})

	payload := dto.CreateAppointmentRequest{
		InstructorID: "inst-1",
		ClassTypeID:  "ct-theory",
		Date:         "07/09/2026",
		StartTime:    "10:00",
		EndTime:      "11:00",
	}
	c, w := appointmentTestContext(t, http.MethodPost, "/appointments", payload)
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerCreateMapsConflict(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{err: appErrors.ErrInstructorConflict})

	payload := dto.CreateAppointmentRequest{
		InstructorID: "inst-1",
		ClassTypeID:  "ct-theory",
		Date:         "2026-09-07",
		StartTime:    "10:00",
		EndTime:      "11:00",
	}
	c, w := appointmentTestContext(t, http.MethodPost, "/appointments", payload)
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInstructorConflict.Code, envelope.Error.Code)
}

func TestAppointmentHandlerGetNotFound(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{err: appErrors.ErrNotFound})

	c, w := appointmentTestContext(t, http.MethodGet, "/appointments/appt-1", nil)
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func withClaims(c *gin.Context, userID string, role models.Role) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func TestAppointmentHandlerSetStatus(t *testing.T) {
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", Status: models.AppointmentConfirmed}}
	handler := NewAppointmentHandler(mock)

	c, w := appointmentTestContext(t, http.MethodPut, "/appointments/appt-1/status", dto.SetStatusRequest{Status: "confirmed"})
	withClaims(c, "inst-1", models.RoleInstructor)
	handler.SetStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AppointmentConfirmed, mock.setStatus)
}

func TestAppointmentHandlerSetStatusStudentOwnsAppointment(t *testing.T) {
	owner := "stu-1"
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", StudentID: &owner, Status: models.AppointmentCancelled}}
	handler := NewAppointmentHandler(mock)

	c, w := appointmentTestContext(t, http.MethodPut, "/appointments/appt-1/status", dto.SetStatusRequest{Status: "cancelled"})
	withClaims(c, "stu-1", models.RoleStudent)
	handler.SetStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AppointmentCancelled, mock.setStatus)
}

func TestAppointmentHandlerSetStatusRejectsForeignStudent(t *testing.T) {
	owner := "stu-1"
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", StudentID: &owner, Status: models.AppointmentScheduled}}
	handler := NewAppointmentHandler(mock)

	c, w := appointmentTestContext(t, http.MethodPut, "/appointments/appt-1/status", dto.SetStatusRequest{Status: "cancelled"})
	withClaims(c, "stu-2", models.RoleStudent)
	handler.SetStatus(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mock.setStatus, "transition must not reach the service")
}

func TestAppointmentHandlerSetStatusRequiresActor(t *testing.T) {
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", Status: models.AppointmentScheduled}}
	handler := NewAppointmentHandler(mock)

	c, w := appointmentTestContext(t, http.MethodPut, "/appointments/appt-1/status", dto.SetStatusRequest{Status: "cancelled"})
	handler.SetStatus(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mock.setStatus)
}

func TestAppointmentHandlerDelete(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{})

	c, w := appointmentTestContext(t, http.MethodDelete, "/appointments/appt-1", nil)
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
}
