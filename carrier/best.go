package carrier

import (
	"context"
	"net/url"

	"github.com/viaship/trackshot/captcha"
	"github.com/viaship/trackshot/models"
)

const (
	bestBaseURL      = "https://www.best-inc.vn/track?billId="
	bestWaitSelector = ".track-result .route-info"
	bestStatusNode   = ".track-result .route-info .status"
)

// bestStrategy handles BEST Express. The carrier's page is hostile to
// local automation, so the whole navigate/wait/extract/screenshot run is
// delegated to the remote render service.
type bestStrategy struct {
	deps *Deps
}

func newBEST(d *Deps) Strategy { return &bestStrategy{deps: d} }

func (s *bestStrategy) Tag() string { return TagBEST }

func (s *bestStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	code := req.CodeList()[0]

	res, err := s.deps.Captcha.RenderRemote(ctx, captcha.RenderScript{
		URL:          bestBaseURL + url.QueryEscape(code),
		WaitSelector: bestWaitSelector,
		SettleMs:     int(s.deps.Cfg.SettleFor(TagBEST).Milliseconds()),
		Extract:      map[string]string{"status": bestStatusNode},
	})
	if err != nil {
		return nil, err
	}

	raw := res.Fields["status"]
	if raw == "" {
		return nil, noData("remote render returned no status for code " + code)
	}
	return buildResult(raw, res.Screenshot)
}
