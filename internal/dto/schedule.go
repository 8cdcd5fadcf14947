package dto

// CreateWeeklyScheduleRequest declares a recurring availability window
// for an instructor.
type CreateWeeklyScheduleRequest struct {
	InstructorID string  `json:"instructor_id" validate:"required"`
	DayOfWeek    int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	SlotMinutes  int     `json:"slot_minutes" validate:"required"`
	ClassTypeID  *string `json:"class_type_id,omitempty"`
}

// CreateScheduleOverrideRequest declares a one-off exception for a
// concrete date. available=false blocks the window, true offers it in
// addition to the weekly rows.
type CreateScheduleOverrideRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
	Date         string `json:"date" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	SlotMinutes  int    `json:"slot_minutes"`
	Available    bool   `json:"available"`
}
