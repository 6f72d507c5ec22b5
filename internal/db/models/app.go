package models

import "time"

// App source types
const (
	SourceGitHub       = "github"
	SourceDocker       = "docker"
	SourcePythonScript = "python_script"
)

// App statuses
const (
	AppStatusPending   = "pending"
	AppStatusDeploying = "deploying"
	AppStatusRunning   = "running"
	AppStatusStopped   = "stopped"
	AppStatusFailed    = "failed"
)

// ValidSourceType reports whether s is a recognised app source type
func ValidSourceType(s string) bool {
	switch s {
	case SourceGitHub, SourceDocker, SourcePythonScript:
		return true
	}
	return false
}

// App represents a deployable application owned by a user
type App struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	SourceType  string // "github", "docker", or "python_script"
	SourceRef   string // repo URL, image reference, or script entrypoint
	Status      string
	URL         *string // Public URL, assigned when the first deployment succeeds
	EnvVars     map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
