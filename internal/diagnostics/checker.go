package diagnostics

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"demo-studio/internal/domain"
)

// chromeCandidates lists binary names probed for browser automation.
var chromeCandidates = []string{"google-chrome", "chromium", "chromium-browser", "chrome"}

// Checker validates credentials, external tools, and filesystem paths before
// a run starts.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// Run executes all preflight checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkKey("platform_api_key", "Platform API key", settings.PlatformAPIKey, "DEMO_STUDIO_PLATFORM_API_KEY"),
		c.checkKey("speech_api_key", "Speech API key", settings.SpeechAPIKey, "DEMO_STUDIO_SPEECH_API_KEY"),
		c.checkURL("platform_url", "Platform base URL", settings.PlatformBaseURL),
		c.checkURL("speech_url", "Speech base URL", settings.SpeechBaseURL),
		c.checkBrowser(),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkKey verifies a credential is configured without revealing it.
func (c *Checker) checkKey(id, name, value, envVar string) domain.DiagnosticItem {
	if strings.TrimSpace(value) == "" {
		return domain.DiagnosticItem{
			ID:      id,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("%s is not set.", name),
			Hint:    fmt.Sprintf("Set %s or add it to the settings file.", envVar),
		}
	}

	return domain.DiagnosticItem{
		ID:      id,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: "Configured.",
	}
}

// checkURL validates a provider base URL parses with an http scheme.
func (c *Checker) checkURL(id, name, raw string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Invalid base URL: %q", raw)
		item.Hint = "Use an absolute http(s) URL."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Valid: %s", raw)
	return item
}

// checkBrowser verifies a Chrome-family binary is on PATH.
func (c *Checker) checkBrowser() domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "browser", Name: "Browser binary"}

	for _, name := range chromeCandidates {
		if path, err := c.lookPath(name); err == nil {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Found at %s", path)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = "No Chrome or Chromium binary found in PATH."
	item.Hint = "Install Chrome or Chromium; agents run inside an automated browser."
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "output_dir", Name: "Output directory"}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where recordings can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for recording downloads."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}
