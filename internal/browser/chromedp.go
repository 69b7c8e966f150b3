package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"demo-studio/internal/agent"
	"demo-studio/internal/logging"
)

// controlTimeout bounds best-effort control discovery so a missing button
// resolves to NotFound quickly instead of stalling the timeline.
const controlTimeout = 5 * time.Second

// errNotOpen is returned when a page operation runs before Open succeeded.
var errNotOpen = errors.New("browser not open")

// Chrome drives one headless browser context with simulated media devices.
// It implements agent.Browser; each agent owns exactly one instance.
type Chrome struct {
	ctx     context.Context
	cancels []context.CancelFunc
	log     zerolog.Logger
}

// NewChrome creates an unopened browser handle.
func NewChrome() *Chrome {
	return &Chrome{log: logging.WithComponent("browser")}
}

// Open launches the browser process with fake camera and microphone streams
// granted without prompts, and sets the call viewport.
func (c *Chrome) Open(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("use-fake-device-for-media-stream", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.WindowSize(1280, 720),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	c.ctx = browserCtx
	c.cancels = []context.CancelFunc{cancelAlloc, cancelBrowser}

	if err := chromedp.Run(c.ctx, chromedp.EmulateViewport(1280, 720)); err != nil {
		c.release()
		return fmt.Errorf("launch browser: %w", err)
	}
	return nil
}

// RenderAvatar replaces the current document with the agent's avatar surface.
func (c *Chrome) RenderAvatar(_ context.Context, html string) error {
	if c.ctx == nil {
		return errNotOpen
	}
	return chromedp.Run(c.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
	)
}

// Navigate loads the session join URL and waits for the page body.
func (c *Chrome) Navigate(_ context.Context, url string) error {
	if c.ctx == nil {
		return errNotOpen
	}
	return chromedp.Run(c.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// SetText best-effort fills a control. A missing selector or an interaction
// failure both resolve to NotFound; the detail is logged here.
func (c *Chrome) SetText(_ context.Context, selector, value string) agent.ControlResult {
	if !c.controlExists(selector) {
		return agent.ControlNotFound
	}

	ctx, cancel := context.WithTimeout(c.ctx, controlTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery)); err != nil {
		c.log.Debug().Err(err).Str("selector", selector).Msg("set text failed")
		return agent.ControlNotFound
	}
	return agent.ControlFound
}

// Click best-effort clicks a control, mirroring SetText's tolerance.
func (c *Chrome) Click(_ context.Context, selector string) agent.ControlResult {
	if !c.controlExists(selector) {
		return agent.ControlNotFound
	}

	ctx, cancel := context.WithTimeout(c.ctx, controlTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		c.log.Debug().Err(err).Str("selector", selector).Msg("click failed")
		return agent.ControlNotFound
	}
	return agent.ControlFound
}

// Close releases the browser process. Safe to call after a failed Open.
func (c *Chrome) Close() error {
	c.release()
	return nil
}

// controlExists probes for a selector without waiting for it to appear.
// A released or never-opened browser has no controls; Leave reaches this
// state after a failed Open and must still resolve to NotFound.
func (c *Chrome) controlExists(selector string) bool {
	if c.ctx == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(c.ctx, controlTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		c.log.Debug().Err(err).Str("selector", selector).Msg("control probe failed")
		return false
	}
	return len(nodes) > 0
}

// release cancels the browser contexts in reverse creation order.
func (c *Chrome) release() {
	for i := len(c.cancels) - 1; i >= 0; i-- {
		c.cancels[i]()
	}
	c.cancels = nil
	c.ctx = nil
}
