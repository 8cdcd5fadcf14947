package models

import "time"

// ClassType categorises classes (theoretical, practical) and declares
// whether appointments of this type must carry a resource.
type ClassType struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	RequiresResource bool      `db:"requires_resource" json:"requires_resource"`
	ResourceType     *string   `db:"resource_type" json:"resource_type,omitempty"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
