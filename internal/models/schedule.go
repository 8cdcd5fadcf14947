package models

import "time"

// Slot granularities accepted for weekly schedules and overrides.
var AllowedSlotMinutes = []int{15, 30, 60, 120}

// ValidSlotMinutes reports whether the granularity is one of the
// supported values.
func ValidSlotMinutes(minutes int) bool {
	for _, m := range AllowedSlotMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}

// WeeklySchedule is a recurring availability row for an instructor.
// DayOfWeek follows time.Weekday numbering (0 = Sunday). An optional
// class-type restriction limits which classes may book the window.
type WeeklySchedule struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	SlotMinutes  int       `db:"slot_minutes" json:"slot_minutes"`
	ClassTypeID  *string   `db:"class_type_id" json:"class_type_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleOverride is a one-off exception for a concrete date. When
// Available is true the window is offered in addition to the weekly
// rows; when false it removes any weekly slots it covers.
type ScheduleOverride struct {
	ID           string    `db:"id" json:"id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Date         time.Time `db:"date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	SlotMinutes  int       `db:"slot_minutes" json:"slot_minutes"`
	Available    bool      `db:"available" json:"available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
