package browser

import (
	"context"
	"errors"
	"testing"

	"demo-studio/internal/agent"
)

// TestControlsResolveNotFoundAfterRelease verifies the post-failed-Open
// state: the leave flow still operates the browser handle after release, and
// every control call must resolve to NotFound instead of touching a dead
// context.
func TestControlsResolveNotFoundAfterRelease(t *testing.T) {
	c := NewChrome()
	c.release()

	if got := c.Click(context.Background(), "button.leave-call"); got != agent.ControlNotFound {
		t.Fatalf("Click() = %v, want ControlNotFound", got)
	}
	if got := c.SetText(context.Background(), `input[name="displayName"]`, "Sam"); got != agent.ControlNotFound {
		t.Fatalf("SetText() = %v, want ControlNotFound", got)
	}
}

// TestPageOperationsFailBeforeOpen verifies fatal operations error cleanly on
// an unopened browser.
func TestPageOperationsFailBeforeOpen(t *testing.T) {
	c := NewChrome()

	if err := c.RenderAvatar(context.Background(), "<html></html>"); !errors.Is(err, errNotOpen) {
		t.Fatalf("RenderAvatar() error = %v, want errNotOpen", err)
	}
	if err := c.Navigate(context.Background(), "https://rooms.example/demo"); !errors.Is(err, errNotOpen) {
		t.Fatalf("Navigate() error = %v, want errNotOpen", err)
	}
}

// TestCloseIsSafeWithoutOpen verifies release tolerates a handle that never
// launched, and repeated closes.
func TestCloseIsSafeWithoutOpen(t *testing.T) {
	c := NewChrome()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
