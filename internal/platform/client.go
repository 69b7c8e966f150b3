package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
)

const maxErrorBodyBytes = 512

// httpDoer abstracts the HTTP transport for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the conferencing platform REST API: rooms and recordings.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	log        zerolog.Logger
}

// New creates a platform client with a bounded default HTTP timeout.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.WithComponent("platform"),
	}
}

// NewWithHTTPClient creates a client with an injected transport for tests.
func NewWithHTTPClient(baseURL, apiKey string, doer httpDoer) *Client {
	c := New(baseURL, apiKey)
	c.httpClient = doer
	return c
}

// RoomRequest holds the capability flags for a new room.
type RoomRequest struct {
	Name              string
	TTL               time.Duration
	EnableRecording   bool
	EnableChat        bool
	EnableScreenshare bool
}

// RoomInfo is the platform's description of a created room.
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordingInfo is the platform's description of a recording job.
type RecordingInfo struct {
	ID          string  `json:"id"`
	RoomName    string  `json:"room_name"`
	Status      string  `json:"status"`
	Duration    float64 `json:"duration"`
	DownloadURL string  `json:"download_url,omitempty"`
}

// CreateRoom requests a new time-boxed room with the given capabilities.
func (c *Client) CreateRoom(ctx context.Context, req RoomRequest) (RoomInfo, error) {
	payload := map[string]any{
		"name": req.Name,
		"properties": map[string]any{
			"exp":                time.Now().Add(req.TTL).Unix(),
			"enable_recording":   req.EnableRecording,
			"enable_chat":        req.EnableChat,
			"enable_screenshare": req.EnableScreenshare,
		},
	}

	var info RoomInfo
	if err := c.do(ctx, http.MethodPost, "/rooms", payload, &info); err != nil {
		return RoomInfo{}, err
	}

	c.log.Info().Str("room", info.Name).Str("url", info.URL).Msg("room created")
	return info, nil
}

// DeleteRoom removes a room by name.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+name, nil, nil)
}

// StartRecording asks the platform to begin capturing the named room.
func (c *Client) StartRecording(ctx context.Context, roomName string) (RecordingInfo, error) {
	payload := map[string]any{
		"room_name": roomName,
		"layout":    map[string]any{"preset": "default"},
	}

	var info RecordingInfo
	if err := c.do(ctx, http.MethodPost, "/recordings", payload, &info); err != nil {
		return RecordingInfo{}, err
	}
	return info, nil
}

// GetRecording fetches the current state of a recording job.
func (c *Client) GetRecording(ctx context.Context, id string) (RecordingInfo, error) {
	var info RecordingInfo
	if err := c.do(ctx, http.MethodGet, "/recordings/"+id, nil, &info); err != nil {
		return RecordingInfo{}, err
	}
	return info, nil
}

// StopRecording asks the platform to stop an active recording job.
func (c *Client) StopRecording(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/recordings/"+id+"/stop", nil, nil)
}

// FetchArtifact opens a streaming read of a rendered recording artifact.
// The caller owns the returned reader and must close it.
func (c *Client) FetchArtifact(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build artifact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch artifact: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, 0, newPlatformError("fetch artifact", resp)
	}

	return resp.Body, resp.ContentLength, nil
}

// do executes one JSON API call and decodes the response when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newPlatformError(method+" "+path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// newPlatformError builds the fatal error for a non-success response.
func newPlatformError(operation string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &domain.PlatformError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}
