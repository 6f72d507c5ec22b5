package models

import "time"

// APIKey represents a long-lived programmatic credential tied to a user.
// The full secret is returned to the caller exactly once, at creation time;
// list endpoints only ever expose a masked form.
type APIKey struct {
	ID         string
	UserID     string
	Name       string // Friendly name (e.g., "CI/CD Pipeline Key")
	Secret     string // Full key material, matched exactly on lookup
	IsActive   bool
	LastUsedAt *time.Time // Track last usage
	CreatedAt  time.Time
}
