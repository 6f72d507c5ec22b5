package models

import "testing"

func TestValidSourceType(t *testing.T) {
	valid := []string{SourceGitHub, SourceDocker, SourcePythonScript}
	for _, s := range valid {
		if !ValidSourceType(s) {
			t.Errorf("ValidSourceType(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "git", "GITHUB", "kubernetes"} {
		if ValidSourceType(s) {
			t.Errorf("ValidSourceType(%q) = true, want false", s)
		}
	}
}

func TestValidRuntime(t *testing.T) {
	for _, s := range []string{RuntimePython, RuntimeNodeJS} {
		if !ValidRuntime(s) {
			t.Errorf("ValidRuntime(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "go", "Python", "node"} {
		if ValidRuntime(s) {
			t.Errorf("ValidRuntime(%q) = true, want false", s)
		}
	}
}

func TestDeploymentStatusTerminal(t *testing.T) {
	terminal := map[string]bool{
		DeploymentStatusPending:   false,
		DeploymentStatusDeploying: false,
		DeploymentStatusRunning:   true,
		DeploymentStatusFailed:    true,
		"stopped":                 false,
	}
	for status, want := range terminal {
		if got := DeploymentStatusTerminal(status); got != want {
			t.Errorf("DeploymentStatusTerminal(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestUserIsAdmin(t *testing.T) {
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("user role should not be admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role should be admin")
	}
}
