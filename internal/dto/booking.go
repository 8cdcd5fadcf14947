package dto

import "time"

// AvailableSlot is a bookable interval surfaced by the availability
// endpoint. Times are half-open [start, end).
type AvailableSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AppointmentCandidate is a proposed appointment submitted for
// validation and creation.
type AppointmentCandidate struct {
	InstructorID string    `json:"instructor_id" validate:"required"`
	StudentID    *string   `json:"student_id,omitempty"`
	ClassTypeID  string    `json:"class_type_id" validate:"required"`
	ResourceID   *string   `json:"resource_id,omitempty"`
	Date         time.Time `json:"date" validate:"required"`
	StartTime    string    `json:"start_time" validate:"required"`
	EndTime      string    `json:"end_time" validate:"required"`
}

// CreateAppointmentRequest is the admin/instructor creation payload.
type CreateAppointmentRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required"`
	StudentID    *string `json:"student_id,omitempty"`
	ClassTypeID  string  `json:"class_type_id" validate:"required"`
	ResourceID   *string `json:"resource_id,omitempty"`
	Date         string  `json:"date" validate:"required"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
}

// CreateBookingRequest is the student booking payload. The student
// identity comes from the token, not the body.
type CreateBookingRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required"`
	ClassTypeID  string  `json:"class_type_id" validate:"required"`
	ResourceID   *string `json:"resource_id,omitempty"`
	Date         string  `json:"date" validate:"required"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
}

// UpdateAppointmentRequest carries a partial update; absent fields are
// left untouched.
type UpdateAppointmentRequest struct {
	InstructorID *string `json:"instructor_id,omitempty"`
	StudentID    *string `json:"student_id,omitempty"`
	ClassTypeID  *string `json:"class_type_id,omitempty"`
	ResourceID   *string `json:"resource_id,omitempty"`
	Date         *string `json:"date,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
}

// SetStatusRequest requests a lifecycle transition.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// MarkAttendanceRequest records whether the student showed up.
type MarkAttendanceRequest struct {
	Attended  bool    `json:"attended"`
	ArrivedAt *string `json:"arrived_at,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// BookingEligibility is the advisory answer to "can this student book".
type BookingEligibility struct {
	CanBook bool   `json:"can_book"`
	Reason  string `json:"reason,omitempty"`
}

// StudentDebtSummary aggregates a student's outstanding penalties.
type StudentDebtSummary struct {
	TotalDebt        int64 `json:"total_debt"`
	OutstandingFines int   `json:"outstanding_fines"`
	PendingPayments  int   `json:"pending_payments"`
}
