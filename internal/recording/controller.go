package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"demo-studio/internal/domain"
	"demo-studio/internal/logging"
	"demo-studio/internal/platform"
)

// DefaultPollInterval spaces recording status polls.
const DefaultPollInterval = 5 * time.Second

// progressStep bounds how often download progress is logged.
const progressStep = 5 << 20 // 5 MiB

// captureAPI is the slice of the platform client the controller needs.
type captureAPI interface {
	StartRecording(ctx context.Context, roomName string) (platform.RecordingInfo, error)
	GetRecording(ctx context.Context, id string) (platform.RecordingInfo, error)
	StopRecording(ctx context.Context, id string) error
	FetchArtifact(ctx context.Context, ref string) (io.ReadCloser, int64, error)
}

// Controller manages the recording lifecycle for one session: start, stop,
// poll until the rendered artifact is ready, download, and persist metadata.
type Controller struct {
	api          captureAPI
	pollInterval time.Duration
	log          zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController builds a controller with the default poll interval.
func NewController(api captureAPI) *Controller {
	return &Controller{
		api:          api,
		pollInterval: DefaultPollInterval,
		log:          logging.WithComponent("recording"),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// NewControllerForTests builds a controller with injected clock and interval.
func NewControllerForTests(api captureAPI, pollInterval time.Duration, now func() time.Time, sleep func(context.Context, time.Duration) error) *Controller {
	c := NewController(api)
	if pollInterval > 0 {
		c.pollInterval = pollInterval
	}
	if now != nil {
		c.now = now
	}
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// Start begins capturing the session. Callers must only invoke this once a
// participant is confirmed present: some platforms silently no-op a recording
// request against an empty room. A non-success response fails the pipeline.
func (c *Controller) Start(ctx context.Context, session *domain.Session) (*domain.Recording, error) {
	info, err := c.api.StartRecording(ctx, session.Label)
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("recording", info.ID).Str("room", session.Label).Msg("recording started")
	return &domain.Recording{
		ID:        info.ID,
		SessionID: session.ID,
		State:     domain.RecordingActive,
		StartedAt: c.now().UTC(),
	}, nil
}

// Stop halts capture best-effort. A failed stop is logged, never returned:
// the platform auto-expires orphaned recordings, and Stop runs on cleanup
// paths where a second error would mask the root cause.
func (c *Controller) Stop(ctx context.Context, rec *domain.Recording) {
	if rec == nil || rec.State != domain.RecordingActive {
		return
	}

	if err := c.api.StopRecording(ctx, rec.ID); err != nil {
		c.log.Warn().Err(err).Str("recording", rec.ID).Msg("recording stop failed; platform will expire it")
	}
	rec.State = domain.RecordingStopped
	rec.StoppedAt = c.now().UTC()
}

// WaitUntilReady polls the recording on a fixed interval until the rendered
// artifact is ready, the platform reports an error, or the budget runs out.
// This is the failure-isolating boundary that keeps a stuck Processing
// recording from hanging the orchestrator forever.
func (c *Controller) WaitUntilReady(ctx context.Context, rec *domain.Recording, budget time.Duration) error {
	deadline := c.now().Add(budget)
	rec.State = domain.RecordingProcessing

	for {
		info, err := c.api.GetRecording(ctx, rec.ID)
		if err != nil {
			return err
		}

		switch mapStatus(info.Status) {
		case domain.RecordingReady:
			rec.State = domain.RecordingReady
			rec.DownloadRef = info.DownloadURL
			rec.DurationSeconds = info.Duration
			return nil
		case domain.RecordingError:
			rec.State = domain.RecordingError
			return &domain.RecordingFailedError{RecordingID: rec.ID}
		}

		if !c.now().Before(deadline) {
			rec.State = domain.RecordingTimedOut
			return &domain.RecordingTimeoutError{RecordingID: rec.ID, Budget: budget}
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return fmt.Errorf("wait for recording %s: %w", rec.ID, err)
		}
	}
}

// Download streams the rendered artifact into destinationDir. The media file
// only appears under its final name after a complete stream, and the metadata
// sidecar is written atomically afterwards: a sidecar on disk is a reliable
// completion signal.
func (c *Controller) Download(ctx context.Context, rec *domain.Recording, destinationDir string) (string, error) {
	if rec.State != domain.RecordingReady {
		return "", fmt.Errorf("download recording %s: state %s, want ready", rec.ID, rec.State)
	}
	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := fmt.Sprintf("demo-%s.mp4", rec.ID)
	finalPath := filepath.Join(destinationDir, filename)
	partialPath := finalPath + ".partial"

	if err := c.stream(ctx, rec, partialPath); err != nil {
		_ = os.Remove(partialPath)
		return "", err
	}
	if err := os.Rename(partialPath, finalPath); err != nil {
		_ = os.Remove(partialPath)
		return "", fmt.Errorf("finalize download: %w", err)
	}

	if err := c.writeSidecar(rec, finalPath, filename); err != nil {
		return "", err
	}

	rec.LocalPath = finalPath
	c.log.Info().Str("recording", rec.ID).Str("path", finalPath).Msg("recording downloaded")
	return finalPath, nil
}

// stream copies the remote artifact to a partial file with progress logging.
func (c *Controller) stream(ctx context.Context, rec *domain.Recording, partialPath string) error {
	body, total, err := c.api.FetchArtifact(ctx, rec.DownloadRef)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}

	progress := &progressWriter{
		log:   c.log.With().Str("recording", rec.ID).Logger(),
		total: total,
	}
	_, copyErr := io.Copy(io.MultiWriter(out, progress), body)
	closeErr := out.Close()

	if copyErr != nil {
		return fmt.Errorf("stream recording %s: %w", rec.ID, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("flush recording %s: %w", rec.ID, closeErr)
	}
	return nil
}

// writeSidecar persists the immutable metadata record next to the media file.
func (c *Controller) writeSidecar(rec *domain.Recording, finalPath, filename string) error {
	meta := domain.RecordingMetadata{
		RecordingID:     rec.ID,
		SessionID:       rec.SessionID,
		Filename:        filename,
		DurationSeconds: rec.DurationSeconds,
		StartTime:       rec.StartedAt,
		EndTime:         rec.StoppedAt,
		DownloadedAt:    c.now().UTC(),
	}

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recording metadata: %w", err)
	}
	if err := renameio.WriteFile(finalPath+".json", encoded, 0o644); err != nil {
		return fmt.Errorf("write recording metadata: %w", err)
	}
	return nil
}

// progressWriter logs monotonic download progress at coarse intervals.
type progressWriter struct {
	log      zerolog.Logger
	total    int64
	written  int64
	reported int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.written-p.reported >= progressStep {
		p.reported = p.written
		event := p.log.Debug().Int64("bytes", p.written)
		if p.total > 0 {
			event = event.Int64("total", p.total)
		}
		event.Msg("download progress")
	}
	return len(b), nil
}

// mapStatus translates platform status strings to recording states.
func mapStatus(status string) domain.RecordingState {
	switch status {
	case "finished", "ready":
		return domain.RecordingReady
	case "error", "failed", "canceled":
		return domain.RecordingError
	default:
		return domain.RecordingProcessing
	}
}

// sleepContext suspends for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
