package carrier

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/viaship/trackshot/models"
)

const jtBaseURL = "https://jtexpress.vn/vi/tracking?type=track&billcodes="

// jtStatusMatcher is compiled once; the tracking page reuses the same
// class names across unrelated widgets, so the full descendant path is
// needed to land on the shipment status.
var jtStatusMatcher = cascadia.MustCompile(".tracking-detail .process-status .status-text, .tracking-detail .order-status")

// jtStrategy handles J&T Express. The rendered page is static enough to
// parse server-side once the client app has populated it.
type jtStrategy struct {
	deps *Deps
}

func newJT(d *Deps) Strategy { return &jtStrategy{deps: d} }

func (s *jtStrategy) Tag() string { return TagJT }

func (s *jtStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]

	// ── 1. Navigate and let the client app populate ─────────────────
	if err := s.deps.navigate(page, jtBaseURL+url.QueryEscape(code)); err != nil {
		return nil, err
	}
	if err := s.deps.settle(ctx, TagJT); err != nil {
		return nil, err
	}

	// ── 2. Parse the rendered document ──────────────────────────────
	rendered, err := page.HTML()
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to read rendered document", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeInternal, "failed to parse rendered document", err)
	}

	raw := strings.TrimSpace(doc.FindMatcher(jtStatusMatcher).First().Text())
	if raw == "" {
		return nil, noData("no shipment status rendered for code " + code)
	}

	// ── 3. Screenshot ────────────────────────────────────────────────
	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
