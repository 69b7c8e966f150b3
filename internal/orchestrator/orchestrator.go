// Package orchestrator sequences one demo run end to end: room creation,
// agent joins, recording, scripted playback, artifact download, and teardown.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"demo-studio/internal/dialogue"
	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
	"demo-studio/internal/run"
	"demo-studio/internal/scripts"
)

// Pipeline names selectable from the CLI.
const (
	PipelineWalkthrough  = "walkthrough"
	PipelineConversation = "conversation"
	PipelineDialogue     = "dialogue"
)

const (
	// DefaultWaitBudget bounds how long a run waits for the rendered artifact.
	DefaultWaitBudget = 10 * time.Minute
	// cleanupTimeout bounds the compensating-action pass. Cleanup runs on a
	// fresh context: the run context may already be cancelled by the failure
	// that triggered cleanup.
	cleanupTimeout = 30 * time.Second
)

// SessionManager creates and tears down the ephemeral room.
type SessionManager interface {
	Create(ctx context.Context, label string) (*domain.Session, error)
	Delete(ctx context.Context, session *domain.Session)
}

// Recorder drives the platform capture lifecycle.
type Recorder interface {
	Start(ctx context.Context, session *domain.Session) (*domain.Recording, error)
	Stop(ctx context.Context, rec *domain.Recording)
	WaitUntilReady(ctx context.Context, rec *domain.Recording, budget time.Duration) error
	Download(ctx context.Context, rec *domain.Recording, destinationDir string) (string, error)
}

// Participant is one simulated session member.
type Participant interface {
	Role() domain.Role
	Join(ctx context.Context, session *domain.Session) error
	RunTimeline(ctx context.Context) error
	Leave(ctx context.Context)
}

// AgentFactory builds a participant for one cast entry. Each call must return
// a participant owning its own browser resource.
type AgentFactory func(cast scripts.Cast) Participant

// DialogueSource generates the turns for the dialogue pipeline.
type DialogueSource interface {
	Initialize(first, second dialogue.Persona)
	GenerateAll(ctx context.Context) ([]dialogue.Turn, error)
}

// Result describes a completed run.
type Result struct {
	RunID        string
	Session      *domain.Session
	Recording    *domain.Recording
	ArtifactPath string
}

// Orchestrator owns the run state machine and the compensation stack for a
// single demo run at a time.
type Orchestrator struct {
	sessions   SessionManager
	recorder   Recorder
	newAgent   AgentFactory
	dialogue   DialogueSource
	outputDir  string
	waitBudget time.Duration

	machine *run.Machine
	events  *run.EventBus
	log     zerolog.Logger
	now     func() time.Time
}

// New wires an orchestrator. The dialogue source may be nil when only the
// scripted pipelines are used.
func New(sessions SessionManager, recorder Recorder, newAgent AgentFactory, dialogueSource DialogueSource, outputDir string) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		recorder:   recorder,
		newAgent:   newAgent,
		dialogue:   dialogueSource,
		outputDir:  outputDir,
		waitBudget: DefaultWaitBudget,
		machine:    run.NewMachine(),
		events:     run.NewEventBus(0),
		log:        logging.WithComponent("orchestrator"),
		now:        time.Now,
	}
}

// NewForTests wires an orchestrator with an injectable clock and wait budget.
func NewForTests(sessions SessionManager, recorder Recorder, newAgent AgentFactory, dialogueSource DialogueSource, outputDir string, waitBudget time.Duration, now func() time.Time) *Orchestrator {
	o := New(sessions, recorder, newAgent, dialogueSource, outputDir)
	if waitBudget > 0 {
		o.waitBudget = waitBudget
	}
	if now != nil {
		o.now = now
	}
	return o
}

// Events exposes the run's sequenced event history.
func (o *Orchestrator) Events() *run.EventBus {
	return o.events
}

// Run executes the named pipeline once. On any failure the compensation stack
// unwinds in reverse acquisition order, compensation errors are logged and
// swallowed, and the original error is returned unchanged.
func (o *Orchestrator) Run(ctx context.Context, pipeline string) (*Result, error) {
	cast, err := o.castFor(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := o.machine.Begin(runID); err != nil {
		return nil, err
	}
	log := o.log.With().Str("run", runID).Str("pipeline", pipeline).Logger()

	comp := &compensations{log: log}
	result, err := o.execute(ctx, runID, cast, comp, log)
	if err != nil {
		o.failAndCleanup(comp, log, err)
		return nil, err
	}

	o.transition(runID, run.StateTornDown)
	return result, nil
}

// execute advances the success path, registering a compensating action for
// every resource as soon as it exists.
func (o *Orchestrator) execute(ctx context.Context, runID string, cast []scripts.Cast, comp *compensations, log zerolog.Logger) (*Result, error) {
	session, err := o.sessions.Create(ctx, "demo-"+runID[:8])
	if err != nil {
		return nil, err
	}
	comp.push("delete session", func(ctx context.Context) {
		o.sessions.Delete(ctx, session)
	})
	o.transition(runID, run.StateSessionCreated)
	log.Info().Str("session", session.ID).Str("joinUrl", session.JoinURL).Msg("session created")

	agents := make([]Participant, 0, len(cast))
	for _, member := range cast {
		agents = append(agents, o.newAgent(member))
	}
	for _, a := range agents {
		agent := a
		// Registered before Join: a partially joined agent still holds a
		// browser that must be released.
		comp.push(fmt.Sprintf("leave agent %s", agent.Role()), func(ctx context.Context) {
			agent.Leave(ctx)
		})
		if err := agent.Join(ctx, session); err != nil {
			return nil, err
		}
		session.State = domain.SessionActive
	}
	o.transition(runID, run.StateAgentsJoined)

	rec, err := o.recorder.Start(ctx, session)
	if err != nil {
		return nil, err
	}
	comp.push("stop recording", func(ctx context.Context) {
		o.recorder.Stop(ctx, rec)
	})
	o.transition(runID, run.StateRecordingArmed)

	o.transition(runID, run.StateScriptRunning)
	timelineErr := runTimelines(ctx, agents)

	// Agents leave on both outcomes so a failed timeline on one side never
	// strands the other mid-call.
	for i := len(agents) - 1; i >= 0; i-- {
		agents[i].Leave(ctx)
	}
	if timelineErr != nil {
		return nil, timelineErr
	}
	o.transition(runID, run.StateAgentsLeft)

	o.recorder.Stop(ctx, rec)
	o.transition(runID, run.StateRecordingStopped)

	if err := o.recorder.WaitUntilReady(ctx, rec, o.waitBudgetFor(session)); err != nil {
		return nil, err
	}
	o.transition(runID, run.StateRecordingReady)

	artifactPath, err := o.recorder.Download(ctx, rec, o.outputDir)
	if err != nil {
		return nil, err
	}
	o.events.Publish(run.Event{RunID: runID, Type: run.EventTypeArtifact, Path: artifactPath})
	o.transition(runID, run.StateDownloaded)

	o.sessions.Delete(ctx, session)
	log.Info().Str("artifact", artifactPath).Msg("run complete")
	return &Result{RunID: runID, Session: session, Recording: rec, ArtifactPath: artifactPath}, nil
}

// castFor resolves a pipeline name to its cast, generating the dialogue
// timeline up front when needed.
func (o *Orchestrator) castFor(ctx context.Context, pipeline string) ([]scripts.Cast, error) {
	switch pipeline {
	case PipelineWalkthrough:
		return scripts.Walkthrough(), nil
	case PipelineConversation:
		return scripts.Conversation(), nil
	case PipelineDialogue:
		if o.dialogue == nil {
			return nil, fmt.Errorf("pipeline %q requires a text-generation provider", pipeline)
		}
		first, second := scripts.DialoguePersonas()
		o.dialogue.Initialize(first, second)
		turns, err := o.dialogue.GenerateAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate dialogue: %w", err)
		}
		return []scripts.Cast{scripts.DisplayCast(scripts.TimelineFromTurns(turns))}, nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q", pipeline)
	}
}

// runTimelines plays every agent timeline concurrently with join-all
// semantics: a plain errgroup without context cancellation, so one failing
// timeline never interrupts the others.
func runTimelines(ctx context.Context, agents []Participant) error {
	var g errgroup.Group
	for _, a := range agents {
		agent := a
		g.Go(func() error {
			return agent.RunTimeline(ctx)
		})
	}
	return g.Wait()
}

// waitBudgetFor clamps the artifact wait budget to the session TTL remaining,
// so a recording never outwaits its own room.
func (o *Orchestrator) waitBudgetFor(session *domain.Session) time.Duration {
	budget := o.waitBudget
	if !session.ExpiresAt.IsZero() {
		if remaining := session.ExpiresAt.Sub(o.now()); remaining < budget {
			budget = remaining
		}
	}
	return budget
}

// failAndCleanup moves the machine onto the failure path and unwinds the
// compensation stack on a fresh bounded context.
func (o *Orchestrator) failAndCleanup(comp *compensations, log zerolog.Logger, cause error) {
	runID, _ := o.machine.Current()
	if err := o.machine.Fail(); err != nil {
		log.Warn().Err(err).Msg("state machine fail rejected")
	}
	o.events.Publish(run.Event{RunID: runID, Type: run.EventTypeError, State: run.StateFailing, Error: cause.Error()})
	o.transition(runID, run.StateCleanupInProgress)

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	comp.unwind(ctx)

	o.transition(runID, run.StateTornDown)
}

// transition applies a state edge and publishes it. An invalid edge is a
// programming error in the pipeline ordering and is logged, not thrown.
func (o *Orchestrator) transition(runID string, to run.State) {
	if err := o.machine.Transition(to); err != nil {
		o.log.Error().Err(err).Str("run", runID).Msg("state transition rejected")
		return
	}
	o.events.Publish(run.Event{RunID: runID, Type: run.EventTypeStatus, State: to})
}

// compensations is a LIFO stack of cleanup actions. Each action must be
// idempotent: success-path teardown and failure-path unwind may both touch
// the same resource.
type compensations struct {
	log     zerolog.Logger
	actions []compensation
}

type compensation struct {
	name string
	fn   func(ctx context.Context)
}

func (c *compensations) push(name string, fn func(ctx context.Context)) {
	c.actions = append(c.actions, compensation{name: name, fn: fn})
}

// unwind runs every action in reverse acquisition order. Actions do not
// return errors; anything recoverable is logged inside the action itself.
func (c *compensations) unwind(ctx context.Context) {
	for i := len(c.actions) - 1; i >= 0; i-- {
		c.log.Info().Str("action", c.actions[i].name).Msg("compensating")
		c.actions[i].fn(ctx)
	}
	c.actions = nil
}
