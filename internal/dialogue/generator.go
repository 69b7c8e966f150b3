package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"demo-studio/internal/logging"
)

const (
	// DefaultMaxTurns bounds dialogue cost and running time.
	DefaultMaxTurns = 8
	// maxReplyChars truncates runaway provider replies.
	maxReplyChars = 280
)

// httpDoer abstracts the HTTP transport for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Persona describes one of the two logical speakers.
type Persona struct {
	Name   string
	Voice  string
	System string
}

// Turn is one generated line of dialogue attributed to a speaker.
type Turn struct {
	Speaker string
	Voice   string
	Text    string
}

// ErrDialogueExhausted signals the fixed turn bound has been reached.
var ErrDialogueExhausted = fmt.Errorf("dialogue: turn budget exhausted")

// Generator produces an alternating two-speaker dialogue from a
// text-generation provider and persists an append-only transcript.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	maxTurns   int
	httpClient httpDoer
	log        zerolog.Logger

	personas       [2]Persona
	history        []Turn
	transcriptPath string
}

// New creates a generator with the default turn budget.
func New(baseURL, apiKey, transcriptPath string) *Generator {
	return &Generator{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		model:          "claude-haiku-4-5",
		maxTurns:       DefaultMaxTurns,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		log:            logging.WithComponent("dialogue"),
		transcriptPath: transcriptPath,
	}
}

// NewWithOptions creates a generator with injected transport and turn budget.
func NewWithOptions(baseURL, apiKey, transcriptPath string, doer httpDoer, maxTurns int) *Generator {
	g := New(baseURL, apiKey, transcriptPath)
	if doer != nil {
		g.httpClient = doer
	}
	if maxTurns > 0 {
		g.maxTurns = maxTurns
	}
	return g
}

// Initialize seeds the system context for the two speakers and resets history.
func (g *Generator) Initialize(first, second Persona) {
	g.personas = [2]Persona{first, second}
	g.history = nil
}

// Exhausted reports whether the fixed turn budget has been used up.
func (g *Generator) Exhausted() bool {
	return len(g.history) >= g.maxTurns
}

// Turns returns the accumulated dialogue so far.
func (g *Generator) Turns() []Turn {
	out := make([]Turn, len(g.history))
	copy(out, g.history)
	return out
}

// NextTurn generates one bounded-length reply for the speaker whose turn it
// is, appends it to the transcript file, and alternates the active speaker.
func (g *Generator) NextTurn(ctx context.Context) (Turn, error) {
	if g.Exhausted() {
		return Turn{}, ErrDialogueExhausted
	}

	persona := g.personas[len(g.history)%2]
	text, err := g.complete(ctx, persona)
	if err != nil {
		return Turn{}, fmt.Errorf("dialogue turn %d: %w", len(g.history)+1, err)
	}

	text = truncateReply(text)

	turn := Turn{Speaker: persona.Name, Voice: persona.Voice, Text: text}
	g.history = append(g.history, turn)

	if err := g.appendTranscript(turn); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

// GenerateAll runs the dialogue to its turn budget and returns every turn.
func (g *Generator) GenerateAll(ctx context.Context) ([]Turn, error) {
	for !g.Exhausted() {
		if _, err := g.NextTurn(ctx); err != nil {
			return nil, err
		}
	}
	return g.Turns(), nil
}

// truncateReply bounds a runaway reply, cutting on a rune boundary so the
// transcript and the synthesis provider never see split UTF-8.
func truncateReply(text string) string {
	if len(text) <= maxReplyChars {
		return text
	}

	cut := maxReplyChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimSpace(text[:cut])
}

// appendTranscript writes one line per turn; the file is never rewritten.
func (g *Generator) appendTranscript(turn Turn) error {
	if g.transcriptPath == "" {
		return nil
	}

	f, err := os.OpenFile(g.transcriptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "[%s] %s\n", turn.Speaker, turn.Text); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// messagesRequest is the provider wire format for one completion call.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// complete calls the text-generation provider with the accumulated transcript
// seen from the active persona's side of the conversation.
func (g *Generator) complete(ctx context.Context, persona Persona) (string, error) {
	messages := g.providerMessages(persona)

	encoded, err := json.Marshal(messagesRequest{
		Model:     g.model,
		MaxTokens: 200,
		System:    persona.System,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("text provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(decoded.Content) == 0 || strings.TrimSpace(decoded.Content[0].Text) == "" {
		return "", fmt.Errorf("text provider returned empty reply")
	}
	return strings.TrimSpace(decoded.Content[0].Text), nil
}

// providerMessages maps the shared history to user/assistant roles from the
// active persona's perspective; the other speaker's lines become user turns.
func (g *Generator) providerMessages(active Persona) []message {
	messages := make([]message, 0, len(g.history)+1)
	for _, turn := range g.history {
		role := "user"
		if turn.Speaker == active.Name {
			role = "assistant"
		}
		messages = append(messages, message{Role: role, Content: turn.Text})
	}

	if len(messages) == 0 || messages[len(messages)-1].Role == "assistant" {
		messages = append(messages, message{Role: "user", Content: "Continue the conversation naturally."})
	}
	return messages
}
