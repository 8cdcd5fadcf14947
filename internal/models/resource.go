package models

import "time"

// ResourceType distinguishes classrooms from vehicles.
type ResourceType string

const (
	ResourceClassroom ResourceType = "classroom"
	ResourceVehicle   ResourceType = "vehicle"
)

// Resource is a classroom or vehicle bookable alongside an appointment.
// Vehicle-specific fields are nil for classrooms.
type Resource struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Type      ResourceType `db:"type" json:"type"`
	Plate     *string      `db:"plate" json:"plate,omitempty"`
	Brand     *string      `db:"brand" json:"brand,omitempty"`
	Model     *string      `db:"model" json:"model,omitempty"`
	Year      *int         `db:"year" json:"year,omitempty"`
	Color     *string      `db:"color" json:"color,omitempty"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// InstructorResource links an instructor to a resource explicitly
// assigned to them.
type InstructorResource struct {
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	ResourceID   string    `db:"resource_id" json:"resource_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ResourceBlock marks a resource unavailable for a time window
// (maintenance, inspection).
type ResourceBlock struct {
	ID         string    `db:"id" json:"id"`
	ResourceID string    `db:"resource_id" json:"resource_id"`
	Date       time.Time `db:"date" json:"date"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
