package carrier

import (
	"context"

	"github.com/viaship/trackshot/models"
)

const (
	vtpURL             = "https://viettelpost.com.vn/tra-cuu-hanh-trinh-don"
	vtpCodeInput       = "input#billNumber"
	vtpCaptchaImage    = "img#captchaImage"
	vtpCaptchaInput    = "input#captchaCode"
	vtpSubmitButton    = "button#btnTraCuu"
	vtpResultContainer = ".tracking-result .timeline"
	vtpStatusNode      = ".tracking-result .timeline .status-label"
)

// vtpStrategy handles Viettel Post. The lookup form sits behind an image
// CAPTCHA, and the result page carries a tall fixed header, so the proof
// shot is clipped below it.
type vtpStrategy struct {
	deps *Deps
}

func newVTP(d *Deps) Strategy { return &vtpStrategy{deps: d} }

func (s *vtpStrategy) Tag() string { return TagVTP }

func (s *vtpStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	session, page, err := s.deps.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	code := req.CodeList()[0]

	// ── 1. Navigate to the lookup form ──────────────────────────────
	if err := s.deps.navigate(page, vtpURL); err != nil {
		return nil, err
	}

	// ── 2. Read the image CAPTCHA and submit the form ───────────────
	img, err := elementShot(page, vtpCaptchaImage)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeCaptcha, "captcha image not found on lookup form", err)
	}
	answer, err := s.deps.Captcha.ReadImageText(ctx, img)
	if err != nil {
		return nil, err
	}
	if err := fill(page, vtpCodeInput, code); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to fill tracking code", err)
	}
	if err := fill(page, vtpCaptchaInput, answer); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to fill captcha answer", err)
	}
	if err := click(page, vtpSubmitButton); err != nil {
		return nil, models.NewTrackError(models.ErrCodeNavigation, "failed to submit lookup form", err)
	}

	// ── 3. Wait for the timeline to populate ────────────────────────
	if err := s.deps.settle(ctx, TagVTP); err != nil {
		return nil, err
	}
	if !has(page, vtpResultContainer) {
		return nil, noData("no tracking timeline rendered for code " + code)
	}

	// ── 4. Extract the latest status ────────────────────────────────
	raw, err := elementText(page, vtpStatusNode)
	if err != nil {
		return nil, noData("tracking timeline present but status label missing")
	}

	// ── 5. Capture the proof shot below the site header ─────────────
	width, height := pageViewport(page)
	shot, err := s.deps.screenshotClipped(page, width, height)
	if err != nil {
		return nil, err
	}
	return buildResult(raw, shot)
}
