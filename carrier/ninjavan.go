package carrier

import (
	"context"
	"net/url"
	"strings"

	"github.com/viaship/trackshot/models"
)

const (
	ninjaBaseURL    = "https://www.ninjavan.co/vi-vn/tracking?id="
	ninjaResultNode = ".tracking-status-container"
	ninjaStatusJS   = `() => document.querySelector('.tracking-status-container .latest-status')?.textContent?.trim() || ''`
)

// ninjaVanStrategy handles Ninja Van, whose page exposes a stable result
// container the strategy can wait on before the settle delay.
type ninjaVanStrategy struct {
	deps *Deps
}

func newNinjaVan(d *Deps) Strategy { return &ninjaVanStrategy{deps: d} }

func (s *ninjaVanStrategy) Tag() string { return TagNinjaVan }

func (s *ninjaVanStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]

	// ── 1. Navigate ─────────────────────────────────────────────────
	if err := s.deps.navigate(page, ninjaBaseURL+url.QueryEscape(code)); err != nil {
		return nil, err
	}

	// ── 2. Wait for the result container, then let it settle ────────
	if _, err := page.Element(ninjaResultNode); err != nil {
		return nil, noData("tracking container never appeared for code " + code)
	}
	if err := s.deps.settle(ctx, TagNinjaVan); err != nil {
		return nil, err
	}

	// ── 3. Extract and screenshot ───────────────────────────────────
	raw := strings.TrimSpace(evalString(page, ninjaStatusJS))
	if raw == "" {
		return nil, noData("tracking container present but status text empty")
	}
	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
