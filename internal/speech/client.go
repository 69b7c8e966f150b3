package speech

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

	"github.com/rs/zerolog"

	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
	"demo-studio/internal/retry"
)

// httpDoer abstracts the HTTP transport for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the speech synthesis provider with a bounded retry policy and
// scratch-file handling for the transient per-utterance audio artifact.
type Client struct {
	baseURL    string
	apiKey     string
	speed      float64
	policy     retry.Policy
	scratchDir string
	httpClient httpDoer
	log        zerolog.Logger
}

// New creates a synthesis client with the default retry policy.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		speed:      1.0,
		policy:     retry.Default(),
		scratchDir: os.TempDir(),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logging.WithComponent("speech"),
	}
}

// NewWithOptions creates a client with injected transport and policy for tests.
func NewWithOptions(baseURL, apiKey string, doer httpDoer, policy retry.Policy, scratchDir string) *Client {
	c := New(baseURL, apiKey)
	if doer != nil {
		c.httpClient = doer
	}
	c.policy = policy
	if scratchDir != "" {
		c.scratchDir = scratchDir
	}
	return c
}

// Synthesize converts text to audio bytes with the configured voice. Blank
// text is a programmer error and fails immediately without touching the
// provider; provider failures are retried up to the policy bound and the last
// error surfaces wrapped as a SynthesisError.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.InvalidUtteranceError{Reason: "empty text"}
	}

	var audio []byte
	err := c.policy.Do(ctx, func() error {
		data, reqErr := c.request(ctx, text, voice)
		if reqErr != nil {
			c.log.Warn().Err(reqErr).Str("voice", voice).Msg("synthesis attempt failed")
			return reqErr
		}
		audio = data
		return nil
	})
	if err != nil {
		return nil, &domain.SynthesisError{Voice: voice, Err: err}
	}
	return audio, nil
}

// WriteScratch stores one synthesized utterance in a scratch file. The
// returned cleanup removes the file; callers must invoke it unconditionally
// once the audio has been consumed.
func (c *Client) WriteScratch(audio []byte) (string, func(), error) {
	f, err := os.CreateTemp(c.scratchDir, "utterance-*.mp3")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch audio: %w", err)
	}

	path := f.Name()
	if _, err := f.Write(audio); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("write scratch audio: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("close scratch audio: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", path).Msg("remove scratch audio failed")
		}
	}
	return path, cleanup, nil
}

// request performs a single provider call.
func (c *Client) request(ctx context.Context, text, voice string) ([]byte, error) {
	payload := map[string]any{
		"input": text,
		"voice": voice,
		"speed": c.speed,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("encode synthesis request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(encoded))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build synthesis request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call synthesis provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("synthesis provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis provider returned empty audio")
	}
	return audio, nil
}
