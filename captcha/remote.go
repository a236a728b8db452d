package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/viaship/trackshot/models"
)

// RenderScript is the scripted sequence executed by the remote
// render-and-screenshot service (navigate, wait, extract, screenshot),
// all on the provider's infrastructure instead of the local browser.
type RenderScript struct {
	// URL is the page to navigate.
	URL string `json:"url"`

	// WaitSelector, when set, delays extraction until the selector matches.
	WaitSelector string `json:"wait_selector,omitempty"`

	// SettleMs is the additional wait for client-side rendering.
	SettleMs int `json:"settle_ms,omitempty"`

	// Extract maps field names to CSS selectors whose text is returned.
	Extract map[string]string `json:"extract,omitempty"`

	// FullPage captures the whole page instead of the viewport.
	FullPage bool `json:"full_page,omitempty"`
}

// RenderResult is the composite result of one remote render run.
type RenderResult struct {
	// Screenshot holds the decoded PNG bytes.
	Screenshot []byte

	// Fields holds the extracted text per requested field name.
	Fields map[string]string
}

// renderResponse is the service's wire envelope.
type renderResponse struct {
	Screenshot string            `json:"screenshot"` // base64 PNG
	Fields     map[string]string `json:"fields"`
	Error      string            `json:"error,omitempty"`
}

// RenderRemote runs the scripted sequence on the remote service using a
// rotated automation token and returns the decoded screenshot plus the
// extracted fields.
func (r *Resolver) RenderRemote(ctx context.Context, script RenderScript) (*RenderResult, error) {
	token, err := r.nextAutomationToken()
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("marshal render script: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.RenderBaseURL, "/") + "/function?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "render service request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "failed to read render response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewTrackError(
			models.ErrCodeUpstreamService,
			fmt.Sprintf("render service returned HTTP %d", resp.StatusCode),
			nil,
		)
	}

	var rr renderResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "failed to parse render response", err)
	}
	if rr.Error != "" {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "render service error: "+rr.Error, nil)
	}

	shot, err := base64.StdEncoding.DecodeString(rr.Screenshot)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "render service returned invalid screenshot encoding", err)
	}
	if len(shot) == 0 {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "render service returned an empty screenshot", nil)
	}

	return &RenderResult{Screenshot: shot, Fields: rr.Fields}, nil
}
