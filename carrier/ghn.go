package carrier

import (
	"context"
	"fmt"
	"net/url"

	"github.com/viaship/trackshot/models"
)

const (
	ghnBaseURL      = "https://donhang.ghn.vn/?order_code="
	ghnCaptchaNode  = ".g-recaptcha"
	ghnSubmitButton = "button.search-button"
	ghnResultNode   = ".order-status-detail"
	ghnStatusNode   = ".order-status-detail .current-status"
)

// injectRecaptchaJS plants a solved token where the page's own callback
// expects it, then fires the registered callback so the app proceeds as
// if the widget was solved interactively.
const injectRecaptchaJS = `(token) => {
	const area = document.querySelector('textarea[name="g-recaptcha-response"]');
	if (area) { area.style.display = 'block'; area.value = token; }
	if (window.___grecaptcha_cfg) {
		const clients = window.___grecaptcha_cfg.clients || {};
		for (const id of Object.keys(clients)) {
			const client = clients[id];
			for (const key of Object.keys(client)) {
				const maybe = client[key];
				if (maybe && typeof maybe === 'object' && typeof maybe.callback === 'function') {
					maybe.callback(token);
					return true;
				}
			}
		}
	}
	return !!area;
}`

// ghnStrategy handles Giao Hàng Nhanh, whose tracking page gates the
// lookup behind a reCAPTCHA widget.
type ghnStrategy struct {
	deps *Deps
}

func newGHN(d *Deps) Strategy { return &ghnStrategy{deps: d} }

func (s *ghnStrategy) Tag() string { return TagGHN }

func (s *ghnStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]
	target := ghnBaseURL + url.QueryEscape(code)

	// ── 1. Navigate ─────────────────────────────────────────────────
	if err := s.deps.navigate(page, target); err != nil {
		return nil, err
	}

	// ── 2. Clear the reCAPTCHA gate if present ──────────────────────
	if has(page, ghnCaptchaNode) {
		siteKey := evalString(page,
			fmt.Sprintf(`() => document.querySelector(%q)?.getAttribute('data-sitekey') || ''`, ghnCaptchaNode))
		if siteKey == "" {
			return nil, models.NewTrackError(models.ErrCodeCaptcha, "recaptcha widget present but site key unreadable", nil)
		}

		token, err := s.deps.Captcha.SolveChallenge(ctx, siteKey, target)
		if err != nil {
			return nil, err
		}
		if _, err := page.Eval(injectRecaptchaJS, token); err != nil {
			return nil, models.NewTrackError(models.ErrCodeCaptcha, "failed to inject solved recaptcha token", err)
		}
		if has(page, ghnSubmitButton) {
			if err := click(page, ghnSubmitButton); err != nil {
				return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to resubmit lookup after captcha", err)
			}
		}
	}

	// ── 3. Wait for the order detail to populate ────────────────────
	if err := s.deps.settle(ctx, TagGHN); err != nil {
		return nil, err
	}
	if !has(page, ghnResultNode) {
		return nil, noData("no order detail rendered for code " + code)
	}

	// ── 4. Extract and screenshot ───────────────────────────────────
	raw, err := elementText(page, ghnStatusNode)
	if err != nil {
		return nil, noData("order detail present but status node missing")
	}
	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
