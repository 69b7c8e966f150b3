package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies which participant persona an agent plays in a session.
type Role string

const (
	RoleCustomer  Role = "customer"
	RolePresenter Role = "presenter"
	RoleDisplay   Role = "display"
)

// SessionState tracks the lifecycle of an ephemeral room.
type SessionState string

const (
	SessionPending SessionState = "pending"
	SessionActive  SessionState = "active"
	SessionClosing SessionState = "closing"
	SessionClosed  SessionState = "closed"
)

// Session is the ephemeral multi-party room hosting one demo run.
type Session struct {
	ID        string       `json:"id"`
	Label     string       `json:"label"`
	JoinURL   string       `json:"joinUrl"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
	State     SessionState `json:"state"`
}

// RecordingState tracks the platform-side capture job lifecycle.
type RecordingState string

const (
	RecordingRequested  RecordingState = "requested"
	RecordingActive     RecordingState = "active"
	RecordingStopped    RecordingState = "stopped"
	RecordingProcessing RecordingState = "processing"
	RecordingReady      RecordingState = "ready"
	RecordingError      RecordingState = "error"
	RecordingTimedOut   RecordingState = "timed_out"
)

// Recording is the capture job for a session and its download artifact.
type Recording struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"sessionId"`
	State           RecordingState `json:"state"`
	DownloadRef     string         `json:"downloadRef,omitempty"`
	LocalPath       string         `json:"localPath,omitempty"`
	DurationSeconds float64        `json:"durationSeconds,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	StoppedAt       time.Time      `json:"stoppedAt,omitempty"`
}

// RecordingMetadata is the sidecar written next to a downloaded artifact.
// Written once, after a complete download, and never mutated afterwards;
// its presence is the durable completion signal for a pipeline run.
type RecordingMetadata struct {
	RecordingID     string    `json:"recordingId"`
	SessionID       string    `json:"sessionId"`
	Filename        string    `json:"filename"`
	DurationSeconds float64   `json:"durationSeconds"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DownloadedAt    time.Time `json:"downloadedAt"`
}

// Utterance is one timed unit of speech within an agent's timeline.
// Emotion is advisory and only influences voice selection.
type Utterance struct {
	OffsetSeconds float64 `json:"offsetSeconds"`
	Text          string  `json:"text"`
	Emotion       string  `json:"emotion,omitempty"`
	Voice         string  `json:"voice,omitempty"`
}

// Timeline is an ordered sequence of utterances for one agent.
type Timeline []Utterance

// Validate checks offsets are non-decreasing and every utterance has text.
func (t Timeline) Validate() error {
	prev := 0.0
	for i, u := range t {
		if strings.TrimSpace(u.Text) == "" {
			return fmt.Errorf("timeline step %d: empty utterance text", i)
		}
		if u.OffsetSeconds < 0 {
			return fmt.Errorf("timeline step %d: negative offset %.2f", i, u.OffsetSeconds)
		}
		if u.OffsetSeconds < prev {
			return fmt.Errorf("timeline step %d: offset %.2f decreases below %.2f", i, u.OffsetSeconds, prev)
		}
		prev = u.OffsetSeconds
	}
	return nil
}

// Settings contains runtime configuration persisted between runs.
type Settings struct {
	PlatformBaseURL string `json:"platformBaseUrl"`
	PlatformAPIKey  string `json:"platformApiKey"`
	SpeechBaseURL   string `json:"speechBaseUrl"`
	SpeechAPIKey    string `json:"speechApiKey"`
	TextGenBaseURL  string `json:"textGenBaseUrl"`
	TextGenAPIKey   string `json:"textGenApiKey"`
	OutputDir       string `json:"outputDir"`
	RoomTTLHours    int    `json:"roomTtlHours"`
}
