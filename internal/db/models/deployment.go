package models

import "time"

// Deployment statuses. A deployment starts as pending, moves to deploying when
// a worker picks it up, and ends in exactly one of running or failed.
const (
	DeploymentStatusPending   = "pending"
	DeploymentStatusDeploying = "deploying"
	DeploymentStatusRunning   = "running"
	DeploymentStatusFailed    = "failed"
)

// DeploymentStatusTerminal reports whether s is a terminal deployment status
func DeploymentStatusTerminal(s string) bool {
	return s == DeploymentStatusRunning || s == DeploymentStatusFailed
}

// Deployment represents a single pipeline run for an app
type Deployment struct {
	ID          string
	AppID       string
	CommitSHA   *string // Git revision being deployed, when the source is a repo
	DockerImage *string // Image reference being deployed, when the source is an image
	Status      string
	Logs        []string // Append-only pipeline stage log lines
	StartedAt   time.Time
	CompletedAt *time.Time // Set exactly when status becomes terminal
}
