package rooms

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
	"demo-studio/internal/platform"
)

// DefaultTTL bounds how long an abandoned room can outlive a crashed run.
const DefaultTTL = 24 * time.Hour

// roomAPI is the slice of the platform client the manager needs.
type roomAPI interface {
	CreateRoom(ctx context.Context, req platform.RoomRequest) (platform.RoomInfo, error)
	DeleteRoom(ctx context.Context, name string) error
}

// Manager creates and deletes the ephemeral session room for one demo run.
type Manager struct {
	api roomAPI
	ttl time.Duration
	log zerolog.Logger
}

// NewManager builds a session lifecycle manager with the default TTL.
func NewManager(api roomAPI) *Manager {
	return &Manager{
		api: api,
		ttl: DefaultTTL,
		log: logging.WithComponent("rooms"),
	}
}

// NewManagerWithTTL builds a manager with a custom room TTL.
func NewManagerWithTTL(api roomAPI, ttl time.Duration) *Manager {
	m := NewManager(api)
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// Create requests a new room with recording and screenshare enabled and chat
// disabled. Failure aborts the whole pipeline: nothing has been created yet,
// so there is no retry and no cleanup.
func (m *Manager) Create(ctx context.Context, label string) (*domain.Session, error) {
	info, err := m.api.CreateRoom(ctx, platform.RoomRequest{
		Name:              label,
		TTL:               m.ttl,
		EnableRecording:   true,
		EnableChat:        false,
		EnableScreenshare: true,
	})
	if err != nil {
		return nil, err
	}

	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	expiresAt := info.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = createdAt.Add(m.ttl)
	}

	return &domain.Session{
		ID:        info.ID,
		Label:     info.Name,
		JoinURL:   info.URL,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		State:     domain.SessionPending,
	}, nil
}

// Delete removes the room best-effort. It always runs from a path where a
// second error would mask the original failure, so remote errors are logged
// and the session is forced to Closed either way. Calling Delete again on a
// Closed session is a no-op.
func (m *Manager) Delete(ctx context.Context, session *domain.Session) {
	if session == nil || session.State == domain.SessionClosed {
		return
	}

	session.State = domain.SessionClosing
	if err := m.api.DeleteRoom(ctx, session.Label); err != nil {
		m.log.Warn().Err(err).Str("room", session.Label).Msg("room delete failed; relying on TTL expiry")
	} else {
		m.log.Info().Str("room", session.Label).Msg("room deleted")
	}
	session.State = domain.SessionClosed
}
