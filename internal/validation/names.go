// Package validation provides input validation for signup, app, function, and
// API key payloads. Validators run in the handlers before any data is
// persisted so invalid requests are rejected early without touching storage.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const (
	minNameLength     = 3
	maxNameLength     = 50
	minPasswordLength = 8
	maxKeyNameLength  = 100
)

var (
	usernameRe     = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	resourceNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// ValidateUsername checks signup username rules: 3-50 characters,
// alphanumeric with optional underscores
func ValidateUsername(username string) error {
	if len(username) < minNameLength || len(username) > maxNameLength {
		return fmt.Errorf("username must be between %d and %d characters", minNameLength, maxNameLength)
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be alphanumeric with optional underscores")
	}
	return nil
}

// ValidateEmail checks that the address parses as RFC 5322 and is a bare
// address (no display name)
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// NormalizeResourceName validates and canonicalises an app or function name:
// 3-50 characters, alphanumeric with hyphens or underscores, lowercased.
// Names become DNS labels in generated URLs, so case is folded away here.
func NormalizeResourceName(name string) (string, error) {
	name = strings.ToLower(name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		return "", fmt.Errorf("name must be between %d and %d characters", minNameLength, maxNameLength)
	}
	if !resourceNameRe.MatchString(name) {
		return "", fmt.Errorf("name must be alphanumeric with hyphens or underscores")
	}
	return name, nil
}

// ValidateAPIKeyName checks the display name attached to an API key
func ValidateAPIKeyName(name string) error {
	if name == "" {
		return fmt.Errorf("key name is required")
	}
	if len(name) > maxKeyNameLength {
		return fmt.Errorf("key name must be at most %d characters", maxKeyNameLength)
	}
	return nil
}
