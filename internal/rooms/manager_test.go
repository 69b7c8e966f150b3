package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"demo-studio/internal/domain"
	"demo-studio/internal/platform"
)

// fakeRoomAPI records calls and returns scripted results.
type fakeRoomAPI struct {
	createErr   error
	deleteErr   error
	created     []platform.RoomRequest
	deleteCalls int
}

func (f *fakeRoomAPI) CreateRoom(_ context.Context, req platform.RoomRequest) (platform.RoomInfo, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return platform.RoomInfo{}, f.createErr
	}
	return platform.RoomInfo{
		ID:   "room-1",
		Name: req.Name,
		URL:  "https://rooms.example/" + req.Name,
	}, nil
}

func (f *fakeRoomAPI) DeleteRoom(context.Context, string) error {
	f.deleteCalls++
	return f.deleteErr
}

// TestCreateBuildsPendingSession verifies capability flags and state mapping.
func TestCreateBuildsPendingSession(t *testing.T) {
	api := &fakeRoomAPI{}
	m := NewManagerWithTTL(api, time.Hour)

	session, err := m.Create(context.Background(), "demo-run")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if session.State != domain.SessionPending {
		t.Fatalf("state = %s, want pending", session.State)
	}
	if session.JoinURL == "" {
		t.Fatal("expected join URL")
	}
	if remaining := time.Until(session.ExpiresAt); remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Fatalf("ttl window = %s, want about 1h", remaining)
	}

	req := api.created[0]
	if !req.EnableRecording || req.EnableChat || !req.EnableScreenshare {
		t.Fatalf("capability flags = %+v", req)
	}
}

// TestCreateFailurePropagates checks create is fail-fast with no retry.
func TestCreateFailurePropagates(t *testing.T) {
	sentinel := &domain.PlatformError{Operation: "POST /rooms", StatusCode: 500}
	api := &fakeRoomAPI{createErr: sentinel}
	m := NewManager(api)

	_, err := m.Create(context.Background(), "demo-run")
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want %v", err, sentinel)
	}
	if len(api.created) != 1 {
		t.Fatalf("create calls = %d, want 1", len(api.created))
	}
}

// TestDeleteSwallowsRemoteError verifies best-effort delete semantics.
func TestDeleteSwallowsRemoteError(t *testing.T) {
	api := &fakeRoomAPI{deleteErr: errors.New("remote unavailable")}
	m := NewManager(api)
	session := &domain.Session{Label: "demo-run", State: domain.SessionActive}

	m.Delete(context.Background(), session)
	if session.State != domain.SessionClosed {
		t.Fatalf("state = %s, want closed", session.State)
	}
}

// TestDeleteIsIdempotent checks a second delete on a closed session is a no-op.
func TestDeleteIsIdempotent(t *testing.T) {
	api := &fakeRoomAPI{}
	m := NewManager(api)
	session := &domain.Session{Label: "demo-run", State: domain.SessionActive}

	m.Delete(context.Background(), session)
	m.Delete(context.Background(), session)
	if api.deleteCalls != 1 {
		t.Fatalf("delete calls = %d, want 1", api.deleteCalls)
	}

	m.Delete(context.Background(), nil)
	if api.deleteCalls != 1 {
		t.Fatalf("delete calls after nil = %d, want 1", api.deleteCalls)
	}
}
