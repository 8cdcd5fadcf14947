package models

import "github.com/golang-jwt/jwt/v5"

// Role enumerates actor roles recognised by the API.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// JWTClaims carries the authenticated actor identity issued by the
// surrounding auth system.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the actor may bypass student-path checks.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
