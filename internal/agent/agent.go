package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
)

// ControlResult reports best-effort UI control discovery. NotFound is a
// normal outcome, never an error: the call page may already be in a state
// where the control is unnecessary.
type ControlResult int

const (
	ControlFound ControlResult = iota
	ControlNotFound
)

// Browser abstracts the automated browser context an agent owns exclusively.
type Browser interface {
	Open(ctx context.Context) error
	RenderAvatar(ctx context.Context, html string) error
	Navigate(ctx context.Context, url string) error
	SetText(ctx context.Context, selector, value string) ControlResult
	Click(ctx context.Context, selector string) ControlResult
	Close() error
}

// SpeechService is the slice of the synthesis client an agent needs.
type SpeechService interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	WriteScratch(audio []byte) (string, func(), error)
}

// ConnectionState tracks one agent's position in the join/speak/leave lifecycle.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateSpeaking     ConnectionState = "speaking"
	StateLeaving      ConnectionState = "leaving"
	StateLeft         ConnectionState = "left"
)

// Candidate selectors for the call page controls, tried in order.
var (
	displayNameSelectors = []string{`input[name="displayName"]`, `#display-name`}
	joinSelectors        = []string{`button[data-testid="join-call"]`, `button.join-call`}
	leaveSelectors       = []string{`button[data-testid="leave-call"]`, `button.leave-call`}
)

// Config describes one agent: its persona, timeline, and pacing constants.
// Timelines are immutable data; the same engine drives every role.
type Config struct {
	Role        domain.Role
	DisplayName string
	Voice       string
	// EmotionVoices optionally maps an utterance emotion tag to a voice.
	EmotionVoices map[string]string
	Timeline      domain.Timeline

	// MinHold is the floor for per-utterance speaking time.
	MinHold time.Duration
	// PerChar scales speaking time with utterance length.
	PerChar time.Duration
	// PostPause is the fixed pause after each utterance.
	PostPause time.Duration
}

// withDefaults fills zero pacing values with production constants.
func (c Config) withDefaults() Config {
	if c.MinHold == 0 {
		c.MinHold = 3 * time.Second
	}
	if c.PerChar == 0 {
		c.PerChar = 55 * time.Millisecond
	}
	if c.PostPause == 0 {
		c.PostPause = time.Second
	}
	return c
}

// Agent drives one simulated participant through a session: join, a timed
// timeline of utterances, and leave. Each agent exclusively owns its browser
// resource and timeline; nothing is shared across agents.
type Agent struct {
	cfg     Config
	browser Browser
	speech  SpeechService
	log     zerolog.Logger

	mu    sync.Mutex
	state ConnectionState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs an agent bound to its own browser and speech client.
func New(cfg Config, browser Browser, speech SpeechService) *Agent {
	return &Agent{
		cfg:     cfg.withDefaults(),
		browser: browser,
		speech:  speech,
		log:     logging.WithComponent("agent").With().Str("role", string(cfg.Role)).Logger(),
		state:   StateDisconnected,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// NewForTests constructs an agent with an injectable clock and sleeper.
func NewForTests(cfg Config, browser Browser, speech SpeechService, now func() time.Time, sleep func(context.Context, time.Duration) error) *Agent {
	a := New(cfg, browser, speech)
	if now != nil {
		a.now = now
	}
	if sleep != nil {
		a.sleep = sleep
	}
	return a
}

// Role returns the participant persona this agent plays.
func (a *Agent) Role() domain.Role {
	return a.cfg.Role
}

// State returns the agent's current connection state.
func (a *Agent) State() ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s ConnectionState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Join acquires the browser, renders the role avatar surface, navigates to
// the session, and best-effort operates the pre-call controls. A missing
// display-name input or join button is logged and skipped; browser and
// navigation failures are fatal.
func (a *Agent) Join(ctx context.Context, session *domain.Session) error {
	a.setState(StateConnecting)

	if err := a.browser.Open(ctx); err != nil {
		return fmt.Errorf("agent %s: open browser: %w", a.cfg.Role, err)
	}
	if err := a.browser.RenderAvatar(ctx, avatarHTML(a.cfg.Role, a.cfg.DisplayName)); err != nil {
		return fmt.Errorf("agent %s: render avatar: %w", a.cfg.Role, err)
	}
	if err := a.browser.Navigate(ctx, session.JoinURL); err != nil {
		return fmt.Errorf("agent %s: navigate to session: %w", a.cfg.Role, err)
	}

	if a.tryControls(ctx, displayNameSelectors, func(sel string) ControlResult {
		return a.browser.SetText(ctx, sel, a.cfg.DisplayName)
	}) == ControlNotFound {
		a.log.Info().Msg("display name input not found; continuing")
	}
	if a.tryControls(ctx, joinSelectors, a.clickFn(ctx)) == ControlNotFound {
		a.log.Info().Msg("join control not found; assuming already in call")
	}

	a.setState(StateConnected)
	return nil
}

// RunTimeline advances through the agent's utterances in offset order. A step
// behind schedule runs immediately (lateness only accumulates); a step never
// starts before its offset. Each step synthesizes, holds for the expected
// speaking time, then pauses.
func (a *Agent) RunTimeline(ctx context.Context) error {
	if a.State() != StateConnected {
		return fmt.Errorf("agent %s: timeline started before join", a.cfg.Role)
	}
	if err := a.cfg.Timeline.Validate(); err != nil {
		return fmt.Errorf("agent %s: %w", a.cfg.Role, err)
	}

	start := a.now()
	for i, u := range a.cfg.Timeline {
		offset := time.Duration(u.OffsetSeconds * float64(time.Second))
		if wait := offset - a.now().Sub(start); wait > 0 {
			if err := a.sleep(ctx, wait); err != nil {
				return fmt.Errorf("agent %s: step %d wait: %w", a.cfg.Role, i, err)
			}
		}

		if err := a.performUtterance(ctx, u); err != nil {
			return fmt.Errorf("agent %s: step %d: %w", a.cfg.Role, i, err)
		}

		if err := a.sleep(ctx, a.cfg.PostPause); err != nil {
			return fmt.Errorf("agent %s: step %d pause: %w", a.cfg.Role, i, err)
		}
	}
	return nil
}

// performUtterance synthesizes one utterance and holds for its speaking time.
// The scratch audio is deleted unconditionally once the hold completes.
func (a *Agent) performUtterance(ctx context.Context, u domain.Utterance) error {
	a.setState(StateSpeaking)
	defer a.setState(StateConnected)

	audio, err := a.speech.Synthesize(ctx, u.Text, a.voiceFor(u))
	if err != nil {
		return err
	}

	path, cleanup, err := a.speech.WriteScratch(audio)
	if err != nil {
		return err
	}
	defer cleanup()

	a.log.Debug().Str("scratch", path).Int("chars", len(u.Text)).Msg("speaking")
	return a.sleep(ctx, a.holdFor(u.Text))
}

// Leave best-effort clicks the leave control and releases the browser
// unconditionally, even after a partial join. Safe to call more than once.
func (a *Agent) Leave(ctx context.Context) {
	if a.State() == StateLeft {
		return
	}
	a.setState(StateLeaving)

	if a.tryControls(ctx, leaveSelectors, a.clickFn(ctx)) == ControlNotFound {
		a.log.Info().Msg("leave control not found; releasing browser anyway")
	}
	if err := a.browser.Close(); err != nil {
		a.log.Warn().Err(err).Msg("browser release failed")
	}

	a.setState(StateLeft)
}

// tryControls attempts each candidate selector until one is found.
func (a *Agent) tryControls(ctx context.Context, selectors []string, op func(sel string) ControlResult) ControlResult {
	for _, sel := range selectors {
		if ctx.Err() != nil {
			return ControlNotFound
		}
		if op(sel) == ControlFound {
			return ControlFound
		}
	}
	return ControlNotFound
}

func (a *Agent) clickFn(ctx context.Context) func(sel string) ControlResult {
	return func(sel string) ControlResult {
		return a.browser.Click(ctx, sel)
	}
}

// voiceFor picks the utterance voice, falling back from explicit voice to an
// emotion-mapped voice to the agent default.
func (a *Agent) voiceFor(u domain.Utterance) string {
	if u.Voice != "" {
		return u.Voice
	}
	if v, ok := a.cfg.EmotionVoices[u.Emotion]; ok {
		return v
	}
	return a.cfg.Voice
}

// holdFor estimates speaking time as a conservative floor on length.
func (a *Agent) holdFor(text string) time.Duration {
	hold := time.Duration(len(text)) * a.cfg.PerChar
	if hold < a.cfg.MinHold {
		hold = a.cfg.MinHold
	}
	return hold
}

// sleepContext suspends for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
