// Package browserpool owns the process-wide headless browser and a small
// pool of reusable browsing contexts. Contexts are long-lived and shared
// sequentially across acquisitions; pages (sessions) are single-use and
// exclusive to one in-flight attempt.
package browserpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/models"
)

// Manager lazily launches one browser process and hands out pages backed
// by a fixed-size, round-robin pool of incognito browsing contexts.
// It is safe for concurrent use. It performs no retries of its own:
// a failed launch surfaces as BROWSER_UNAVAILABLE and the outer retry
// loop decides whether to try again.
type Manager struct {
	cfg config.BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	slots   []*rod.Browser // lazily created incognito contexts
	next    int

	// slotSem holds one occupancy token per context slot. A session
	// owns its slot's token for its whole lifetime, so two pages are
	// never simultaneously open on the same context; with pool size 1
	// this serializes acquisitions entirely.
	slotSem []chan struct{}

	active atomic.Int32
}

// New creates a Manager. The browser is not launched until the first
// session is requested.
func New(cfg config.BrowserConfig) *Manager {
	if cfg.ContextPoolSize < 1 {
		cfg.ContextPoolSize = 1
	}
	sem := make([]chan struct{}, cfg.ContextPoolSize)
	for i := range sem {
		sem[i] = make(chan struct{}, 1)
	}
	return &Manager{
		cfg:     cfg,
		slots:   make([]*rod.Browser, cfg.ContextPoolSize),
		slotSem: sem,
	}
}

// Session is an exclusively-owned page scoped to one acquisition attempt.
type Session struct {
	Page *rod.Page

	mgr    *Manager
	router *rod.HijackRouter
	slot   int
	closed bool
}

// NewSession returns a fresh page on the next pooled context, with the
// viewport, stealth script, and resource blocking installed. The caller
// must Close the session on every exit path.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	slot, err := m.acquireSlot(ctx)
	if err != nil {
		return nil, err
	}

	page, err := m.newPage(slot)
	if err != nil {
		// The context (or the whole browser) may be gone; invalidate and
		// try once against freshly created state before giving up.
		m.invalidate()
		page, err = m.newPage(slot)
		if err != nil {
			m.releaseSlot(slot)
			return nil, models.NewTrackError(
				models.ErrCodeBrowserUnavailable,
				"failed to open a page on the browser",
				err,
			)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport, continuing with browser default", "error", err)
	}

	// Stealth and hijack must be installed before any navigation.
	if m.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	router := setupHijack(page, m.cfg.BlockedResourceTypes)

	m.active.Add(1)
	return &Session{Page: page.Context(ctx), mgr: m, router: router, slot: slot}, nil
}

// Close releases the page and the context slot it occupied. Safe to call
// multiple times and on pages whose browser has already died.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.router != nil {
		_ = s.router.Stop()
	}
	if err := s.Page.Close(); err != nil {
		slog.Warn("failed to close page", "error", err)
	}
	s.mgr.releaseSlot(s.slot)
	s.mgr.active.Add(-1)
}

// acquireSlot picks the next context slot round-robin and takes its
// occupancy token, blocking until any session currently on that slot
// closes. The cursor advance and the token wait are deliberately
// separate: the pick stays strictly sequential while the wait respects
// caller cancellation.
func (m *Manager) acquireSlot(ctx context.Context) (int, error) {
	m.mu.Lock()
	idx := m.next
	m.next = (m.next + 1) % len(m.slotSem)
	m.mu.Unlock()

	select {
	case m.slotSem[idx] <- struct{}{}:
		return idx, nil
	case <-ctx.Done():
		return 0, models.NewTrackError(models.ErrCodeTimeout, "canceled while waiting for a browsing context", ctx.Err())
	}
}

// releaseSlot returns a slot's occupancy token.
func (m *Manager) releaseSlot(idx int) {
	<-m.slotSem[idx]
}

// newPage opens a page on the given slot's context, creating the context
// lazily. The caller must hold the slot's occupancy token. A slot whose
// context fails is cleared so the next occupant recreates it.
func (m *Manager) newPage(idx int) (*rod.Page, error) {
	m.mu.Lock()
	if err := m.ensureBrowserLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	if m.slots[idx] == nil {
		inc, err := m.browser.Incognito()
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		slog.Debug("browsing context created", "slot", idx)
		m.slots[idx] = inc
	}
	ctxBrowser := m.slots[idx]
	m.mu.Unlock()

	page, err := ctxBrowser.Page(proto.TargetCreateTarget{})
	if err != nil {
		// The context closed underneath us; clear the slot for lazy
		// recreation on the next pass.
		m.mu.Lock()
		if m.slots[idx] == ctxBrowser {
			m.slots[idx] = nil
		}
		m.mu.Unlock()
		return nil, err
	}
	return page, nil
}

// ensureBrowserLocked launches and connects the browser on first use.
// Caller must hold m.mu.
func (m *Manager) ensureBrowserLocked() error {
	if m.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox)
	if m.cfg.BrowserBin != "" {
		l = l.Bin(m.cfg.BrowserBin)
	}

	// Baseline anti-automation flags; per-page stealth JS does the rest.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return err
	}
	slog.Info("browser launched", "controlURL", controlURL, "poolSize", len(m.slots))

	m.browser = browser
	for i := range m.slots {
		m.slots[i] = nil
	}
	m.next = 0
	return nil
}

// invalidate drops the browser and all context slots so the next call
// launches fresh. Used when the browser process reports disconnection.
func (m *Manager) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		slog.Warn("invalidating browser state, next session relaunches")
		_ = m.browser.Close()
		m.browser = nil
	}
	for i := range m.slots {
		m.slots[i] = nil
	}
	m.next = 0
}

// Stats returns a snapshot of the pool's current state.
func (m *Manager) Stats() models.PoolStats {
	m.mu.Lock()
	up := m.browser != nil
	size := len(m.slots)
	m.mu.Unlock()
	return models.PoolStats{
		PoolSize:       size,
		ActiveSessions: int(m.active.Load()),
		BrowserUp:      up,
	}
}

// Close kills the browser process. Call on graceful shutdown to prevent
// zombie Chrome processes.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		slog.Info("browser pool shutting down")
		m.browser.MustClose()
		m.browser = nil
	}
}
