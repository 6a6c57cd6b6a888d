package capture

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/frankbria/iris/go/raster"
	"github.com/frankbria/iris/go/types"
)

// Config tunes the browser-backed capturer.
type Config struct {
	// Headless runs the browser without a display. Always true in CI.
	Headless bool `json:"headless"`

	// Timeout bounds a single capture attempt, navigation included.
	Timeout time.Duration `json:"timeout"`

	// SettleDelay is an extra wait after the page reports idle, for
	// animations that restart on load.
	SettleDelay time.Duration `json:"settle_delay"`

	// Retries is the number of additional attempts after a failed capture.
	Retries uint64 `json:"retries"`

	// DisableAnimations injects a style forcing CSS animations and
	// transitions to their end state before the screenshot.
	DisableAnimations bool `json:"disable_animations"`

	// CDPURL connects to a running browser over the Chrome DevTools
	// Protocol instead of launching one.
	CDPURL string `json:"cdp_url,omitempty"`
}

// DefaultConfig returns the capture defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		Timeout:           30 * time.Second,
		SettleDelay:       500 * time.Millisecond,
		Retries:           2,
		DisableAnimations: true,
	}
}

// PlaywrightCapturer drives a Chromium instance via playwright. A single
// browser is shared; each capture runs in its own context so concurrent
// captures do not share cookies or viewport state.
type PlaywrightCapturer struct {
	cfg Config

	mtx     sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightCapturer starts playwright and launches (or connects to) the
// browser.
func NewPlaywrightCapturer(cfg Config) (*PlaywrightCapturer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "starting playwright")
	}
	var browser playwright.Browser
	if cfg.CDPURL != "" {
		browser, err = pw.Chromium.ConnectOverCDP(cfg.CDPURL)
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
		})
	}
	if err != nil {
		_ = pw.Stop()
		return nil, errors.Wrap(err, "launching browser")
	}
	return &PlaywrightCapturer{cfg: cfg, pw: pw, browser: browser}, nil
}

// Capture implements Capturer. Transient failures are retried with
// exponential backoff up to cfg.Retries times.
func (c *PlaywrightCapturer) Capture(ctx context.Context, page types.Page, device types.Device) (*raster.Image, error) {
	var img *raster.Image
	attempt := func() error {
		var err error
		img, err = c.captureOnce(ctx, page, device)
		if err != nil {
			zap.S().Warnf("capture attempt for %s on %s failed: %s", page.Name, device.Name, err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.Retries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, &Error{Page: page.Name, Device: device.Name, Err: err}
	}
	return img, nil
}

func (c *PlaywrightCapturer) captureOnce(ctx context.Context, page types.Page, device types.Device) (*raster.Image, error) {
	scale := device.Scale
	if scale == 0 {
		scale = 1
	}
	browserCtx, err := c.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  device.Width,
			Height: device.Height,
		},
		DeviceScaleFactor: playwright.Float(scale),
		IsMobile:          playwright.Bool(device.Mobile),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating browser context")
	}
	defer func() { _ = browserCtx.Close() }()

	pg, err := browserCtx.NewPage()
	if err != nil {
		return nil, errors.Wrap(err, "creating page")
	}

	// Abandon the page when the task is cancelled so the navigation does
	// not outlive its unit of work.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = pg.Close()
		case <-done:
		}
	}()
	defer close(done)

	timeoutMs := float64(c.cfg.Timeout.Milliseconds())
	if _, err := pg.Goto(page.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeoutMs),
	}); err != nil {
		return nil, errors.Wrapf(err, "navigating to %s", page.URL)
	}

	// Fonts render late; an un-awaited font swap is a classic flaky diff.
	if _, err := pg.Evaluate("() => document.fonts.ready"); err != nil {
		zap.S().Debugf("waiting for fonts on %s: %s", page.URL, err)
	}

	if c.cfg.DisableAnimations {
		style := "*, *::before, *::after { animation: none !important; transition: none !important; caret-color: transparent !important; }"
		if _, err := pg.AddStyleTag(playwright.PageAddStyleTagOptions{Content: playwright.String(style)}); err != nil {
			zap.S().Debugf("disabling animations on %s: %s", page.URL, err)
		}
	}

	if c.cfg.SettleDelay > 0 {
		select {
		case <-time.After(c.cfg.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data, err := pg.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: playwright.Float(timeoutMs),
	})
	if err != nil {
		return nil, errors.Wrap(err, "taking screenshot")
	}
	img, err := raster.DecodePNG(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding screenshot")
	}
	return img, nil
}

// Close shuts the browser and playwright down.
func (c *PlaywrightCapturer) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	var firstErr error
	if c.browser != nil {
		if err := c.browser.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "closing browser")
		}
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "stopping playwright")
		}
		c.pw = nil
	}
	return firstErr
}
