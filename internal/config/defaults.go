package config

import (
	"os"
	"path/filepath"

	"demo-studio/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		PlatformBaseURL: "https://api.daily.co/v1",
		SpeechBaseURL:   "https://api.openai.com",
		TextGenBaseURL:  "https://api.anthropic.com",
		OutputDir:       filepath.Join(homeDir, "Videos", "Demos"),
		RoomTTLHours:    24,
	}
}
