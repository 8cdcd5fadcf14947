package models

import "time"

// AppointmentStatus enumerates the appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Valid reports whether the status is a known lifecycle state.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no outgoing transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCancelled || s == AppointmentCompleted
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case AppointmentScheduled:
		return next == AppointmentConfirmed || next == AppointmentCancelled || next == AppointmentCompleted
	case AppointmentConfirmed:
		return next == AppointmentCancelled || next == AppointmentCompleted
	}
	return false
}

// Appointment is the central scheduling entity. Date carries the calendar
// day (UTC midnight); StartTime/EndTime are zero-padded "HH:MM" clock
// values interpreted as a half-open interval [start, end).
type Appointment struct {
	ID           string            `db:"id" json:"id"`
	InstructorID string            `db:"instructor_id" json:"instructor_id"`
	StudentID    *string           `db:"student_id" json:"student_id,omitempty"`
	ClassTypeID  string            `db:"class_type_id" json:"class_type_id"`
	ResourceID   *string           `db:"resource_id" json:"resource_id,omitempty"`
	Date         time.Time         `db:"date" json:"date"`
	StartTime    string            `db:"start_time" json:"start_time"`
	EndTime      string            `db:"end_time" json:"end_time"`
	Status       AppointmentStatus `db:"status" json:"status"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter describes query params for listing appointments.
type AppointmentFilter struct {
	InstructorID string
	StudentID    string
	ClassTypeID  string
	ResourceID   string
	Status       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}

// AppointmentPatch carries partial updates; nil fields are untouched.
type AppointmentPatch struct {
	InstructorID *string    `json:"instructor_id,omitempty"`
	StudentID    *string    `json:"student_id,omitempty"`
	ClassTypeID  *string    `json:"class_type_id,omitempty"`
	ResourceID   *string    `json:"resource_id,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	StartTime    *string    `json:"start_time,omitempty"`
	EndTime      *string    `json:"end_time,omitempty"`
}

// TouchesSchedule reports whether the patch changes any field that
// participates in time/instructor conflict checks.
func (p AppointmentPatch) TouchesSchedule() bool {
	return p.InstructorID != nil || p.Date != nil || p.StartTime != nil || p.EndTime != nil
}

// TouchesResource reports whether the patch changes the class type or
// resource, requiring the resource-requirement check to re-run.
func (p AppointmentPatch) TouchesResource() bool {
	return p.ClassTypeID != nil || p.ResourceID != nil
}
