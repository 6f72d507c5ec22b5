package models

import "time"

// Function runtimes
const (
	RuntimePython = "python"
	RuntimeNodeJS = "nodejs"
)

// ValidRuntime reports whether s is a recognised function runtime
func ValidRuntime(s string) bool {
	return s == RuntimePython || s == RuntimeNodeJS
}

// Function represents a serverless function owned by a user
type Function struct {
	ID              string
	OwnerID         string
	Name            string
	Runtime         string // "python" or "nodejs"
	Code            string
	Endpoint        *string // Invocation URL, assigned at creation
	InvocationCount int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
