package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demo-studio/internal/dialogue"
	"demo-studio/internal/domain"
	"demo-studio/internal/run"
	"demo-studio/internal/scripts"
)

// callLog records cross-component call order for ordering assertions.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) index(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (l *callLog) count(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeSessions scripts the room lifecycle.
type fakeSessions struct {
	log       *callLog
	createErr error
	ttl       time.Duration
	deletes   int
}

func (f *fakeSessions) Create(_ context.Context, label string) (*domain.Session, error) {
	f.log.add("session.create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &domain.Session{
		ID:        "session-1",
		Label:     label,
		JoinURL:   "https://rooms.example/" + label,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
		State:     domain.SessionPending,
	}, nil
}

func (f *fakeSessions) Delete(_ context.Context, session *domain.Session) {
	if session == nil || session.State == domain.SessionClosed {
		return
	}
	f.log.add("session.delete")
	f.deletes++
	session.State = domain.SessionClosed
}

// fakeRecorder scripts the capture lifecycle.
type fakeRecorder struct {
	log         *callLog
	startErr    error
	waitErr     error
	downloadErr error
	waitBudget  time.Duration
	starts      int
	stops       int
}

func (f *fakeRecorder) Start(_ context.Context, session *domain.Session) (*domain.Recording, error) {
	f.log.add("recording.start")
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &domain.Recording{ID: "rec-1", SessionID: session.ID, State: domain.RecordingActive}, nil
}

func (f *fakeRecorder) Stop(_ context.Context, rec *domain.Recording) {
	if rec == nil || rec.State != domain.RecordingActive {
		return
	}
	f.log.add("recording.stop")
	f.stops++
	rec.State = domain.RecordingStopped
}

func (f *fakeRecorder) WaitUntilReady(_ context.Context, rec *domain.Recording, budget time.Duration) error {
	f.log.add("recording.wait")
	f.waitBudget = budget
	if f.waitErr != nil {
		return f.waitErr
	}
	rec.State = domain.RecordingReady
	return nil
}

func (f *fakeRecorder) Download(_ context.Context, rec *domain.Recording, dir string) (string, error) {
	f.log.add("recording.download")
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	rec.LocalPath = dir + "/demo-rec-1.mp4"
	return rec.LocalPath, nil
}

// fakeParticipant scripts one agent.
type fakeParticipant struct {
	log         *callLog
	role        domain.Role
	joinErr     error
	timelineErr error
	joined      bool
	leaves      int
}

func (f *fakeParticipant) Role() domain.Role { return f.role }

func (f *fakeParticipant) Join(context.Context, *domain.Session) error {
	f.log.add("join." + string(f.role))
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = true
	return nil
}

func (f *fakeParticipant) RunTimeline(context.Context) error {
	f.log.add("timeline." + string(f.role))
	return f.timelineErr
}

func (f *fakeParticipant) Leave(context.Context) {
	if f.leaves == 0 {
		f.log.add("leave." + string(f.role))
	}
	f.leaves++
}

// fakeDialogue returns a canned two-turn exchange.
type fakeDialogue struct {
	initialized bool
	err         error
}

func (f *fakeDialogue) Initialize(dialogue.Persona, dialogue.Persona) { f.initialized = true }

func (f *fakeDialogue) GenerateAll(context.Context) ([]dialogue.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []dialogue.Turn{
		{Speaker: "Morgan", Voice: "nova", Text: "Welcome to the demo."},
		{Speaker: "Casey", Voice: "onyx", Text: "Glad to be here."},
	}, nil
}

type fixture struct {
	log      *callLog
	sessions *fakeSessions
	recorder *fakeRecorder
	agents   map[domain.Role]*fakeParticipant
	casts    []scripts.Cast
}

func newFixture() *fixture {
	log := &callLog{}
	return &fixture{
		log:      log,
		sessions: &fakeSessions{log: log},
		recorder: &fakeRecorder{log: log},
		agents:   map[domain.Role]*fakeParticipant{},
	}
}

func (f *fixture) factory(cast scripts.Cast) Participant {
	f.casts = append(f.casts, cast)
	if a, ok := f.agents[cast.Role]; ok {
		return a
	}
	a := &fakeParticipant{log: f.log, role: cast.Role}
	f.agents[cast.Role] = a
	return a
}

func (f *fixture) orchestrator(dialogueSource DialogueSource) *Orchestrator {
	return NewForTests(f.sessions, f.recorder, f.factory, dialogueSource, "/tmp/out", 0, nil)
}

// TestRunRecordsOnlyAfterFirstJoin verifies the recording-after-presence call
// order across a full successful walkthrough run.
func TestRunRecordsOnlyAfterFirstJoin(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	result, err := o.Run(context.Background(), PipelineWalkthrough)
	require.NoError(t, err)
	require.NotNil(t, result)

	start := f.log.index("recording.start")
	require.GreaterOrEqual(t, start, 0)
	assert.Greater(t, start, f.log.index("join.presenter"))
	assert.Greater(t, start, f.log.index("join.customer"))
	assert.Greater(t, f.log.index("recording.stop"), f.log.index("leave.presenter"))

	_, state := o.machine.Current()
	assert.Equal(t, run.StateTornDown, state)
	assert.Equal(t, 1, f.sessions.deletes)
	assert.Equal(t, "/tmp/out/demo-rec-1.mp4", result.ArtifactPath)
}

// TestRunCreateFailureStartsNothing verifies a room-creation failure aborts
// before any downstream resource exists.
func TestRunCreateFailureStartsNothing(t *testing.T) {
	f := newFixture()
	f.sessions.createErr = errors.New("platform unavailable")
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), PipelineConversation)
	require.ErrorIs(t, err, f.sessions.createErr)

	assert.Equal(t, 0, f.recorder.starts)
	assert.Equal(t, -1, f.log.index("join.presenter"))
	assert.Equal(t, -1, f.log.index("join.customer"))
	assert.Equal(t, 0, f.sessions.deletes, "nothing to delete")

	_, state := o.machine.Current()
	assert.Equal(t, run.StateTornDown, state)
}

// TestRunTimelineFailureLetsOtherAgentFinish verifies join-all semantics: one
// failing timeline does not interrupt the other, both agents leave, and the
// original error survives cleanup.
func TestRunTimelineFailureLetsOtherAgentFinish(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	boom := errors.New("synthesis exhausted")
	// Prime the agents so the factory reuses the scripted ones.
	f.agents[domain.RolePresenter] = &fakeParticipant{log: f.log, role: domain.RolePresenter, timelineErr: boom}
	f.agents[domain.RoleCustomer] = &fakeParticipant{log: f.log, role: domain.RoleCustomer}

	_, err := o.Run(context.Background(), PipelineConversation)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1, f.log.count("timeline.presenter"))
	assert.Equal(t, 1, f.log.count("timeline.customer"), "other timeline must still run")
	assert.GreaterOrEqual(t, f.agents[domain.RolePresenter].leaves, 1)
	assert.GreaterOrEqual(t, f.agents[domain.RoleCustomer].leaves, 1)
	assert.Equal(t, 1, f.recorder.stops)
	assert.Equal(t, 1, f.sessions.deletes)

	_, state := o.machine.Current()
	assert.Equal(t, run.StateTornDown, state)
}

// TestRunEverySessionGetsDeleteAttempt verifies compensation covers failures
// at each later stage.
func TestRunEverySessionGetsDeleteAttempt(t *testing.T) {
	cases := map[string]func(f *fixture){
		"recording start fails": func(f *fixture) { f.recorder.startErr = errors.New("no capacity") },
		"wait times out":        func(f *fixture) { f.recorder.waitErr = &domain.RecordingTimeoutError{RecordingID: "rec-1"} },
		"download fails":        func(f *fixture) { f.recorder.downloadErr = errors.New("stream reset") },
	}

	for name, arrange := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			arrange(f)
			o := f.orchestrator(nil)

			_, err := o.Run(context.Background(), PipelineWalkthrough)
			require.Error(t, err)
			assert.Equal(t, 1, f.sessions.deletes, "session must get exactly one delete attempt")

			_, state := o.machine.Current()
			assert.Equal(t, run.StateTornDown, state)
		})
	}
}

// TestRunJoinFailureReleasesJoinedAgents verifies a second-agent join failure
// still unwinds the first agent's browser.
func TestRunJoinFailureReleasesJoinedAgents(t *testing.T) {
	f := newFixture()
	boom := errors.New("navigation timeout")
	f.agents[domain.RolePresenter] = &fakeParticipant{log: f.log, role: domain.RolePresenter}
	f.agents[domain.RoleCustomer] = &fakeParticipant{log: f.log, role: domain.RoleCustomer, joinErr: boom}
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), PipelineWalkthrough)
	require.ErrorIs(t, err, boom)

	assert.GreaterOrEqual(t, f.agents[domain.RolePresenter].leaves, 1)
	assert.GreaterOrEqual(t, f.agents[domain.RoleCustomer].leaves, 1, "partial join still holds a browser")
	assert.Equal(t, 0, f.recorder.starts)
	assert.Equal(t, 1, f.sessions.deletes)
}

// TestWaitBudgetClampedToSessionTTL verifies a recording never outwaits its
// own room.
func TestWaitBudgetClampedToSessionTTL(t *testing.T) {
	f := newFixture()
	f.sessions.ttl = 2 * time.Minute
	o := NewForTests(f.sessions, f.recorder, f.factory, nil, "/tmp/out", time.Hour, nil)

	_, err := o.Run(context.Background(), PipelineWalkthrough)
	require.NoError(t, err)
	assert.LessOrEqual(t, f.recorder.waitBudget, 2*time.Minute)
	assert.Greater(t, f.recorder.waitBudget, time.Minute)
}

// TestRunDialoguePipelineBuildsDisplayCast verifies generated turns become a
// single zero-offset display timeline.
func TestRunDialoguePipelineBuildsDisplayCast(t *testing.T) {
	f := newFixture()
	source := &fakeDialogue{}
	o := f.orchestrator(source)

	_, err := o.Run(context.Background(), PipelineDialogue)
	require.NoError(t, err)

	assert.True(t, source.initialized)
	require.Len(t, f.casts, 1)
	assert.Equal(t, domain.RoleDisplay, f.casts[0].Role)
	require.Len(t, f.casts[0].Timeline, 2)
	assert.Zero(t, f.casts[0].Timeline[0].OffsetSeconds)
	assert.Equal(t, "Welcome to the demo.", f.casts[0].Timeline[0].Text)
}

// TestRunDialogueGenerationFailureCreatesNothing verifies generation happens
// before any platform resource exists.
func TestRunDialogueGenerationFailureCreatesNothing(t *testing.T) {
	f := newFixture()
	source := &fakeDialogue{err: errors.New("provider overloaded")}
	o := f.orchestrator(source)

	_, err := o.Run(context.Background(), PipelineDialogue)
	require.Error(t, err)
	assert.Equal(t, -1, f.log.index("session.create"))
}

// TestRunRejectsUnknownPipeline verifies pipeline-name validation.
func TestRunRejectsUnknownPipeline(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), "keynote")
	require.Error(t, err)
	assert.Equal(t, -1, f.log.index("session.create"))
}

// TestEventsCarryStateProgression verifies the bus records the forward path.
func TestEventsCarryStateProgression(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(nil)

	_, err := o.Run(context.Background(), PipelineWalkthrough)
	require.NoError(t, err)

	var states []run.State
	for _, ev := range o.Events().Since(0) {
		if ev.Type == run.EventTypeStatus {
			states = append(states, ev.State)
		}
	}
	assert.Equal(t, []run.State{
		run.StateSessionCreated,
		run.StateAgentsJoined,
		run.StateRecordingArmed,
		run.StateScriptRunning,
		run.StateAgentsLeft,
		run.StateRecordingStopped,
		run.StateRecordingReady,
		run.StateDownloaded,
		run.StateTornDown,
	}, states)
}
