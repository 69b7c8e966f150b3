// Package bootstrap wires configuration, diagnostics, and the run components
// into one application object for the CLI.
package bootstrap

import (
	"fmt"
	"path/filepath"
	"time"

	"demo-studio/internal/agent"
	"demo-studio/internal/browser"
	"demo-studio/internal/config"
	"demo-studio/internal/diagnostics"
	"demo-studio/internal/dialogue"
	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
	"demo-studio/internal/orchestrator"
	"demo-studio/internal/platform"
	"demo-studio/internal/recording"
	"demo-studio/internal/rooms"
	"demo-studio/internal/scripts"
	"demo-studio/internal/speech"
)

// App holds everything a CLI command needs for one invocation.
type App struct {
	Settings     domain.Settings
	Store        config.Store
	Diagnostics  domain.DiagnosticReport
	Orchestrator *orchestrator.Orchestrator
}

// New loads persisted settings, runs startup diagnostics, and wires the run
// components.
func New() (*App, error) {
	logging.Configure(logging.Config{})

	store := config.NewJSONStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:     settings,
		Store:        store,
		Diagnostics:  report,
		Orchestrator: buildOrchestrator(settings),
	}, nil
}

// ApplyOutputDir redirects the run's artifacts to dir and rewires the
// component graph to match.
func (a *App) ApplyOutputDir(dir string) {
	if dir == "" || dir == a.Settings.OutputDir {
		return
	}
	a.Settings.OutputDir = dir
	a.Orchestrator = buildOrchestrator(a.Settings)
}

// buildOrchestrator assembles the production component graph from settings.
func buildOrchestrator(settings domain.Settings) *orchestrator.Orchestrator {
	platformClient := platform.New(settings.PlatformBaseURL, settings.PlatformAPIKey)
	sessionTTL := time.Duration(settings.RoomTTLHours) * time.Hour
	sessions := rooms.NewManagerWithTTL(platformClient, sessionTTL)
	recorder := recording.NewController(platformClient)
	speechClient := speech.New(settings.SpeechBaseURL, settings.SpeechAPIKey)

	var dialogueSource orchestrator.DialogueSource
	if settings.TextGenAPIKey != "" {
		transcriptPath := filepath.Join(settings.OutputDir, "dialogue-transcript.txt")
		dialogueSource = dialogue.New(settings.TextGenBaseURL, settings.TextGenAPIKey, transcriptPath)
	}

	factory := func(cast scripts.Cast) orchestrator.Participant {
		return agent.New(agent.Config{
			Role:          cast.Role,
			DisplayName:   cast.DisplayName,
			Voice:         cast.Voice,
			EmotionVoices: cast.EmotionVoices,
			Timeline:      cast.Timeline,
		}, browser.NewChrome(), speechClient)
	}

	return orchestrator.New(sessions, recorder, factory, dialogueSource, settings.OutputDir)
}
