package carrier

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/viaship/trackshot/models"
	"github.com/viaship/trackshot/status"
	"github.com/ysmood/gson"
)

const spxBaseURL = "https://spx.vn/track?ids="

// spxShipmentsJS walks the document including shadow roots and collects
// one {code, status} pair per rendered shipment card. The tracker is a
// web-component app, so a plain querySelectorAll never sees the cards.
const spxShipmentsJS = `() => {
	const out = [];
	const walk = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) walk(el.shadowRoot);
			if (el.matches('.shipment-card, [data-testid="tracking-card"]')) {
				const codeEl = el.querySelector('.shipment-code, [data-testid="tracking-number"]');
				const statusEl = el.querySelector('.shipment-status, [data-testid="tracking-status"]');
				out.push({
					code: codeEl ? codeEl.textContent.trim() : '',
					status: statusEl ? statusEl.textContent.trim() : '',
				});
			}
		}
	};
	walk(document);
	return out;
}`

// spxStrategy handles the SPX aggregator. One lookup resolves several
// tracking codes at once; the request is only DELIVERED when every
// matched shipment independently confirms delivery.
type spxStrategy struct {
	deps *Deps
}

func newSPX(d *Deps) Strategy { return &spxStrategy{deps: d} }

func (s *spxStrategy) Tag() string { return TagSPX }

func (s *spxStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	codes := req.CodeList()

	// ── 1. Navigate with all codes in one lookup ────────────────────
	target := spxBaseURL + url.QueryEscape(strings.Join(codes, ","))
	if err := s.deps.navigate(page, target); err != nil {
		return nil, err
	}

	// ── 2. Wait for the shipment cards to populate ──────────────────
	if err := s.deps.settle(ctx, TagSPX); err != nil {
		return nil, err
	}

	// ── 3. Collect per-shipment statuses through the shadow roots ───
	res, err := page.Eval(spxShipmentsJS)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to inspect shipment cards", err)
	}

	statuses := collectShipmentStatuses(res.Value)
	if len(statuses) == 0 {
		return nil, noData("no shipment cards rendered for the requested codes")
	}

	// ── 4. AND across shipments, then capture the proof shot ────────
	raws := sortedStatuses(statuses)

	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}

	canonical := status.Unknown
	if status.AllDelivered(raws) {
		canonical = status.Delivered
	}
	return &models.TrackResult{
		Status:     string(canonical),
		RawStatus:  strings.Join(raws, "; "),
		Screenshot: shot,
	}, nil
}

// sortedStatuses flattens the status map in tracking-number order, so
// the joined raw status reads the same across runs.
func sortedStatuses(statuses map[string]string) []string {
	codes := make([]string, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]string, 0, len(codes))
	for _, code := range codes {
		out = append(out, statuses[code])
	}
	return out
}

// collectShipmentStatuses turns the evaluated card list into a map of
// tracking number to status text, keeping the first status seen per
// number. The page repeats a shipment's card once per package, so
// duplicates are expected.
func collectShipmentStatuses(val gson.JSON) map[string]string {
	statuses := make(map[string]string)
	for _, item := range val.Arr() {
		code := item.Get("code").Str()
		st := item.Get("status").Str()
		if code == "" || st == "" {
			continue
		}
		if _, seen := statuses[code]; !seen {
			statuses[code] = st
		}
	}
	return statuses
}
