package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"demo-studio/internal/domain"
)

// Store defines persistence operations for runtime settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk. Secrets are
// normally supplied through the environment, not the file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// DefaultPath is the conventional settings location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".demo-studio", "settings.json")
}

// Load reads settings from disk, falling back to defaults when missing, then
// applies environment overrides.
func (s *JSONStore) Load() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return domain.Settings{}, err
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return domain.Settings{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// applyEnv overlays DEMO_STUDIO_* environment variables onto cfg. Environment
// always wins over the file.
func applyEnv(cfg *domain.Settings) {
	overrides := map[string]*string{
		"DEMO_STUDIO_PLATFORM_URL":     &cfg.PlatformBaseURL,
		"DEMO_STUDIO_PLATFORM_API_KEY": &cfg.PlatformAPIKey,
		"DEMO_STUDIO_SPEECH_URL":       &cfg.SpeechBaseURL,
		"DEMO_STUDIO_SPEECH_API_KEY":   &cfg.SpeechAPIKey,
		"DEMO_STUDIO_TEXTGEN_URL":      &cfg.TextGenBaseURL,
		"DEMO_STUDIO_TEXTGEN_API_KEY":  &cfg.TextGenAPIKey,
		"DEMO_STUDIO_OUTPUT_DIR":       &cfg.OutputDir,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	if v := os.Getenv("DEMO_STUDIO_ROOM_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			cfg.RoomTTLHours = hours
		}
	}
}
