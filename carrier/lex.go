package carrier

import (
	"context"
	"net/url"
	"strings"

	"github.com/viaship/trackshot/models"
)

const (
	lexBaseURL    = "https://lex.com.vn/vi/tracking/?id="
	lexResultNode = ".tracking-page .result-panel"
	lexStatusNode = ".tracking-page .result-panel .package-status"
)

// lexStrategy handles Lazada Express, the simplest variant: no CAPTCHA,
// one code, plain selectors.
type lexStrategy struct {
	deps *Deps
}

func newLEX(d *Deps) Strategy { return &lexStrategy{deps: d} }

func (s *lexStrategy) Tag() string { return TagLEX }

func (s *lexStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]

	// ── 1. Navigate and settle ──────────────────────────────────────
	if err := s.deps.navigate(page, lexBaseURL+url.QueryEscape(code)); err != nil {
		return nil, err
	}
	if err := s.deps.settle(ctx, TagLEX); err != nil {
		return nil, err
	}
	if !has(page, lexResultNode) {
		return nil, noData("no result panel rendered for code " + code)
	}

	// ── 2. Extract, falling back to the page's visible text ─────────
	raw, err := elementText(page, lexStatusNode)
	if err != nil || strings.TrimSpace(raw) == "" {
		rendered, htmlErr := page.HTML()
		if htmlErr != nil {
			return nil, noData("result panel present but status unreadable")
		}
		raw = extractVisibleText([]byte(rendered))
		if strings.TrimSpace(raw) == "" {
			return nil, noData("result panel present but status unreadable")
		}
	}

	// ── 3. Screenshot ────────────────────────────────────────────────
	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
