// Package model defines domain entities for the application.
package model

import "time"

// Role represents a user's access level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthContext carries the verified identity of a request.
// Populated by the auth middleware from JWT claims.
type AuthContext struct {
	UserID   string
	Username string
	Role     Role
}

// IsAdmin returns true if the authenticated caller is an admin.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
