package run

import (
	"errors"
	"fmt"
	"sync"
)

// State tracks each stage of one orchestrated demo run.
type State string

const (
	StateIdle              State = "idle"
	StateSessionCreated    State = "session_created"
	StateAgentsJoined      State = "agents_joined"
	StateRecordingArmed    State = "recording_armed"
	StateScriptRunning     State = "script_running"
	StateAgentsLeft        State = "agents_left"
	StateRecordingStopped  State = "recording_stopped"
	StateRecordingReady    State = "recording_ready"
	StateDownloaded        State = "downloaded"
	StateFailing           State = "failing"
	StateCleanupInProgress State = "cleanup_in_progress"
	StateTornDown          State = "torn_down"
)

// ErrRunAlreadyActive is returned when beginning a second run.
var ErrRunAlreadyActive = errors.New("run already active")

// Machine validates and applies state transitions for a single demo run.
// The failure path (Failing → CleanupInProgress → TornDown) is reachable from
// every non-terminal state.
type Machine struct {
	mu    sync.RWMutex
	runID string
	state State
}

// NewMachine creates a machine in idle state.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// Begin starts a new run from idle.
func (m *Machine) Begin(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle && m.state != StateTornDown {
		return ErrRunAlreadyActive
	}
	m.runID = runID
	m.state = StateIdle
	return nil
}

// Transition validates and applies one state machine edge.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.state {
		return nil
	}
	if !isValidTransition(m.state, to) {
		return fmt.Errorf("invalid transition: %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}

// Fail moves any non-terminal state onto the failure path.
func (m *Machine) Fail() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateTornDown {
		return fmt.Errorf("cannot fail a torn-down run")
	}
	m.state = StateFailing
	return nil
}

// Current returns the run identity and state.
func (m *Machine) Current() (string, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runID, m.state
}

// isValidTransition enforces the allowed forward and failure edges.
func isValidTransition(from, to State) bool {
	if to == StateFailing {
		return from != StateTornDown
	}

	switch from {
	case StateIdle:
		return to == StateSessionCreated
	case StateSessionCreated:
		return to == StateAgentsJoined
	case StateAgentsJoined:
		return to == StateRecordingArmed
	case StateRecordingArmed:
		return to == StateScriptRunning
	case StateScriptRunning:
		return to == StateAgentsLeft
	case StateAgentsLeft:
		return to == StateRecordingStopped
	case StateRecordingStopped:
		return to == StateRecordingReady
	case StateRecordingReady:
		return to == StateDownloaded
	case StateDownloaded:
		return to == StateTornDown
	case StateFailing:
		return to == StateCleanupInProgress
	case StateCleanupInProgress:
		return to == StateTornDown
	default:
		return false
	}
}
