package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viaship/trackshot/models"
)

// solverResponse is the 2captcha-compatible in.php/res.php envelope.
type solverResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveChallenge submits a reCAPTCHA-style challenge (site key + page
// URL) to the solving service and polls until a solved token is ready.
// Solving routinely takes tens of seconds; the poll loop is bounded only
// by ctx.
func (r *Resolver) SolveChallenge(ctx context.Context, siteKey, pageURL string) (string, error) {
	token, err := r.nextAutomationToken()
	if err != nil {
		return "", err
	}

	// ── 1. Submit the challenge ─────────────────────────────────────
	form := url.Values{
		"key":       {token},
		"method":    {"userrecaptcha"},
		"googlekey": {siteKey},
		"pageurl":   {pageURL},
		"json":      {"1"},
	}
	submitURL := strings.TrimRight(r.cfg.SolverBaseURL, "/") + "/in.php"

	sub, err := r.postForm(ctx, submitURL, form)
	if err != nil {
		return "", err
	}
	if sub.Status != 1 {
		return "", models.NewTrackError(
			models.ErrCodeCaptcha,
			fmt.Sprintf("solver rejected challenge: %s", sub.Request),
			nil,
		)
	}
	requestID := sub.Request

	// ── 2. Poll for the solved token ────────────────────────────────
	resURL := strings.TrimRight(r.cfg.SolverBaseURL, "/") + "/res.php" +
		"?key=" + url.QueryEscape(token) +
		"&action=get&json=1&id=" + url.QueryEscape(requestID)

	ticker := time.NewTicker(r.cfg.SolverPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", models.NewTrackError(models.ErrCodeCaptcha, "challenge solving canceled", ctx.Err())
		case <-ticker.C:
			res, err := r.getJSON(ctx, resURL)
			if err != nil {
				return "", err
			}
			if res.Status == 1 {
				return res.Request, nil
			}
			if res.Request != "CAPCHA_NOT_READY" {
				return "", models.NewTrackError(
					models.ErrCodeCaptcha,
					fmt.Sprintf("solver failed: %s", res.Request),
					nil,
				)
			}
		}
	}
}

// postForm POSTs a urlencoded form and decodes the solver envelope.
func (r *Resolver) postForm(ctx context.Context, endpoint string, form url.Values) (*solverResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create solver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r.doSolver(req)
}

// getJSON GETs a solver endpoint and decodes the envelope.
func (r *Resolver) getJSON(ctx context.Context, endpoint string) (*solverResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create solver request: %w", err)
	}
	return r.doSolver(req)
}

func (r *Resolver) doSolver(req *http.Request) (*solverResponse, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "solver request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "failed to read solver response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewTrackError(
			models.ErrCodeUpstreamService,
			fmt.Sprintf("solver returned HTTP %d", resp.StatusCode),
			nil,
		)
	}

	var sr solverResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "failed to parse solver response", err)
	}
	return &sr, nil
}
