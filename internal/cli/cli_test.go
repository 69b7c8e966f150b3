package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"demo-studio/internal/bootstrap"
	"demo-studio/internal/domain"
)

func appWithReport(hasFailures bool) *bootstrap.App {
	status := domain.DiagnosticStatusPass
	if hasFailures {
		status = domain.DiagnosticStatusFail
	}
	return &bootstrap.App{
		Diagnostics: domain.DiagnosticReport{
			GeneratedAt: time.Now(),
			HasFailures: hasFailures,
			Items: []domain.DiagnosticItem{
				{ID: "platform_api_key", Name: "Platform API key", Status: status, Message: "checked", Hint: "set the key"},
			},
		},
	}
}

// TestDoctorReportsPass checks the healthy report and exit path.
func TestDoctorReportsPass(t *testing.T) {
	root := NewRootCmd(&Dependencies{App: appWithReport(false)})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"doctor"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Platform API key") {
		t.Fatalf("output missing check line: %q", out.String())
	}
	if !strings.Contains(out.String(), "Ready to record") {
		t.Fatalf("output missing summary: %q", out.String())
	}
}

// TestDoctorFailsOnMissingPrerequisites checks the non-zero exit path.
func TestDoctorFailsOnMissingPrerequisites(t *testing.T) {
	root := NewRootCmd(&Dependencies{App: appWithReport(true)})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"doctor"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for failing report")
	}
	if !strings.Contains(out.String(), "hint: set the key") {
		t.Fatalf("output missing hint: %q", out.String())
	}
}

// TestRunRefusesWhenPreflightFails checks run never reaches the orchestrator
// with missing prerequisites.
func TestRunRefusesWhenPreflightFails(t *testing.T) {
	root := NewRootCmd(&Dependencies{App: appWithReport(true)})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"run", "--pipeline", "walkthrough"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected preflight error")
	}
}
