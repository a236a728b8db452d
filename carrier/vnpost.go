package carrier

import (
	"context"

	"github.com/viaship/trackshot/models"
)

const (
	vnpostURL          = "https://www.vnpost.vn/tra-cuu-hanh-trinh-buu-pham"
	vnpostCodeInput    = "input#txtKeyItemCode"
	vnpostCaptchaImage = "img#imgCaptcha"
	vnpostCaptchaInput = "input#txtCaptcha"
	vnpostSubmitButton = "button#btnSearch"
	vnpostResultNode   = ".tracking-history"
	vnpostStatusNode   = ".tracking-history .row-status:first-child .status-text"
)

// vnpostStrategy handles Vietnam Post. Like Viettel Post the lookup form
// is behind an image CAPTCHA, but a missing CAPTCHA element is a hard
// failure here: the form never submits without one, so continuing would
// only burn the settle delay and report NO_TRACKING_DATA for the wrong
// reason.
type vnpostStrategy struct {
	deps *Deps
}

func newVNPost(d *Deps) Strategy { return &vnpostStrategy{deps: d} }

func (s *vnpostStrategy) Tag() string { return TagVNPost }

func (s *vnpostStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]

	// ── 1. Navigate to the lookup form ──────────────────────────────
	if err := s.deps.navigate(page, vnpostURL); err != nil {
		return nil, err
	}

	// ── 2. The CAPTCHA must be present before anything else ─────────
	if !has(page, vnpostCaptchaImage) {
		return nil, models.NewTrackError(models.ErrCodeCaptcha, "captcha image missing from lookup form", nil)
	}
	img, err := elementShot(page, vnpostCaptchaImage)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeCaptcha, "failed to capture captcha image", err)
	}
	answer, err := s.deps.Captcha.ReadImageText(ctx, img)
	if err != nil {
		return nil, err
	}

	// ── 3. Fill and submit ──────────────────────────────────────────
	if err := fill(page, vnpostCodeInput, code); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to fill tracking code", err)
	}
	if err := fill(page, vnpostCaptchaInput, answer); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to fill captcha answer", err)
	}
	if err := click(page, vnpostSubmitButton); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to submit lookup form", err)
	}

	// ── 4. Wait for the history table ───────────────────────────────
	if err := s.deps.settle(ctx, TagVNPost); err != nil {
		return nil, err
	}
	if !has(page, vnpostResultNode) {
		return nil, noData("no tracking history rendered for code " + code)
	}

	// ── 5. Extract and screenshot ───────────────────────────────────
	raw, err := elementText(page, vnpostStatusNode)
	if err != nil {
		return nil, noData("tracking history present but status row missing")
	}
	shot, err := screenshotViewport(page)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
