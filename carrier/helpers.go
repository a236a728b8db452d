package carrier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/viaship/trackshot/browserpool"
	"github.com/viaship/trackshot/models"
	"github.com/viaship/trackshot/status"
)

// domStableWindow is how long the DOM must stop mutating before the
// primary wait policy considers the page parsed.
const domStableWindow = 300 * time.Millisecond

// newSession opens an exclusively-owned page with the configured default
// operation timeout bound. Callers must Close the session on every exit
// path.
func (d *Deps) newSession(ctx context.Context) (*browserpool.Session, *rod.Page, error) {
	s, err := d.Browser.NewSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Page.Timeout(d.Cfg.PageTimeout), nil
}

// navigate loads the URL with the primary wait policy (content parsed,
// DOM stable). If that fails it retries once within the same attempt
// using the permissive full-load wait; a rendering hiccup is transient
// and stays inside the attempt. Any further failure surfaces to the
// outer retry loop as a typed error.
func (d *Deps) navigate(p *rod.Page, url string) error {
	nav := p.Timeout(d.Cfg.NavigationTimeout)

	primaryErr := func() error {
		if err := nav.Navigate(url); err != nil {
			return err
		}
		return nav.WaitDOMStable(domStableWindow, 0.1)
	}()
	if primaryErr == nil {
		return nil
	}

	slog.Debug("primary navigation wait failed, retrying with full-load wait",
		"url", url, "error", primaryErr)

	nav = p.Timeout(d.Cfg.NavigationTimeout)
	if err := nav.Navigate(url); err != nil {
		return models.NewTrackError(models.ErrCodeNavigation, "navigation to carrier page failed", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return models.NewTrackError(models.ErrCodeNavigation, "carrier page never finished loading", err)
	}
	return nil
}

// settle blocks for the carrier's configured settle delay. Tracking
// pages populate their data asynchronously after load; skipping this
// wait reads an empty page.
func (d *Deps) settle(ctx context.Context, tag string) error {
	delay := d.Cfg.SettleFor(tag)
	select {
	case <-ctx.Done():
		return models.NewTrackError(models.ErrCodeTimeout, "canceled while waiting for carrier data to render", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// evalString evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional extraction).
func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// elementText returns the text content of the first match.
func elementText(p *rod.Page, selector string) (string, error) {
	el, err := p.Element(selector)
	if err != nil {
		return "", fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Text()
}

// fill types text into the first element matching the selector.
func fill(p *rod.Page, selector, text string) error {
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Input(text)
}

// click clicks the first element matching the selector.
func click(p *rod.Page, selector string) error {
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// has reports whether the selector matches anything right now, without
// waiting for it to appear.
func has(p *rod.Page, selector string) bool {
	ok, _, err := p.Has(selector)
	return err == nil && ok
}

// screenshotViewport captures the visible viewport as PNG.
func screenshotViewport(p *rod.Page) ([]byte, error) {
	shot, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to capture screenshot", err)
	}
	return shot, nil
}

// minClipHeight keeps the clipped proof shot usable when the configured
// viewport is shorter than the clip offset; a zero or negative clip
// height fails the capture call outright.
const minClipHeight = 200

// screenshotClipped captures the region of the viewport below the clip
// offset, excluding the site chrome above it from the proof frame.
// width and height are the full viewport dimensions.
func (d *Deps) screenshotClipped(p *rod.Page, width, height int) ([]byte, error) {
	shot, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip:   clipRegion(d.Cfg.ScreenshotClipTop, width, height),
	})
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to capture clipped screenshot", err)
	}
	return shot, nil
}

// clipRegion computes the proof-shot clip below the given offset,
// clamped to a minimum height.
func clipRegion(top, width, height int) *proto.PageViewport {
	h := height - top
	if h < minClipHeight {
		h = minClipHeight
	}
	return &proto.PageViewport{
		X:      0,
		Y:      float64(top),
		Width:  float64(width),
		Height: float64(h),
		Scale:  1,
	}
}

// pageViewport returns the current viewport dimensions in CSS pixels,
// falling back to the configured defaults when evaluation fails.
func pageViewport(p *rod.Page) (int, int) {
	w, h := 1280, 800
	if res, err := p.Eval(`() => window.innerWidth`); err == nil {
		w = res.Value.Int()
	}
	if res, err := p.Eval(`() => window.innerHeight`); err == nil {
		h = res.Value.Int()
	}
	return w, h
}

// elementShot captures a single element (used for image CAPTCHAs).
func elementShot(p *rod.Page, selector string) ([]byte, error) {
	el, err := p.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

// buildResult assembles the final typed outcome. A success never leaves
// here with an empty screenshot.
func buildResult(raw string, shot []byte) (*models.TrackResult, error) {
	if len(shot) == 0 {
		return nil, models.NewTrackError(models.ErrCodeInternal, "acquisition produced an empty screenshot", nil)
	}
	return &models.TrackResult{
		Status:     string(status.Normalize(raw)),
		RawStatus:  raw,
		Screenshot: shot,
	}, nil
}

// noData is the typed NO_TRACKING_DATA failure for one attempt.
func noData(msg string) error {
	return models.NewTrackError(models.ErrCodeNoTrackingData, msg, nil)
}
