package models

import "time"

// Attendance records whether the student showed up for an appointment.
// An absent record feeds the no-show count consulted by the booking gate.
type Attendance struct {
	ID            string     `db:"id" json:"id"`
	AppointmentID string     `db:"appointment_id" json:"appointment_id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	Attended      bool       `db:"attended" json:"attended"`
	ArrivedAt     *time.Time `db:"arrived_at" json:"arrived_at,omitempty"`
	Late          bool       `db:"late" json:"late"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
