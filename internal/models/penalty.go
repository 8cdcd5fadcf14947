package models

import "time"

// Penalty reasons.
const (
	PenaltyReasonLateCancellation = "late_cancellation"
	PenaltyReasonNoShow           = "no_show"
)

// Penalty is a monetary charge applied to a student. Immutable after
// creation except for the paid/paid_at fields set when settled.
type Penalty struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	AppointmentID *string    `db:"appointment_id" json:"appointment_id,omitempty"`
	Amount        int64      `db:"amount" json:"amount"`
	Reason        string     `db:"reason" json:"reason"`
	Paid          bool       `db:"paid" json:"paid"`
	PaidAt        *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
