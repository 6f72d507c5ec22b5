// Package models defines the database model types for the deployment platform.
// Each type corresponds to a database table.
// Models are pure data types — business logic belongs in the handlers and jobs, query logic belongs in the repositories layer.
package models

import "time"

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform account
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         string // "user" or "admin"
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin returns true if the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
