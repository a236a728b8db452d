package carrier

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/viaship/trackshot/models"
)

const (
	ghtkSiteKey = "6LfCkQsTAAAAAMhjOOCrhHcjImSs5x4pcqB3pVWT"
	ghtkPageURL = "https://i.ghtk.vn/"
	ghtkAPIURL  = "https://i.ghtk.vn/api/v1/tracking"
	ghtkCarrier = "Giao Hàng Tiết Kiệm"
)

// ghtkTracking is the carrier API's response envelope. The timeline
// arrives as a rendered HTML fragment, not structured data.
type ghtkTracking struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		StatusText   string `json:"status_text"`
		UpdatedAt    string `json:"updated_at"`
		TimelineHTML string `json:"timeline_html"`
	} `json:"data"`
}

// ghtkStrategy handles Giao Hàng Tiết Kiệm. The carrier exposes a JSON
// tracking API (itself behind a reCAPTCHA token), so no page navigation
// is needed for data; the browser only renders the proof report.
type ghtkStrategy struct {
	deps *Deps
}

func newGHTK(d *Deps) Strategy { return &ghtkStrategy{deps: d} }

func (s *ghtkStrategy) Tag() string { return TagGHTK }

func (s *ghtkStrategy) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	code := req.CodeList()[0]

	// ── 1. Solve the API's captcha up front ─────────────────────────
	token, err := s.deps.Captcha.SolveChallenge(ctx, ghtkSiteKey, ghtkPageURL)
	if err != nil {
		return nil, err
	}

	// ── 2. Query the tracking API over the fingerprinted client ─────
	endpoint := fmt.Sprintf("%s?code=%s&captcha=%s",
		ghtkAPIURL, url.QueryEscape(code), url.QueryEscape(token))

	var tr ghtkTracking
	if err := s.deps.Fetcher.FetchJSON(ctx, endpoint, map[string]string{
		"Referer": ghtkPageURL,
	}, &tr); err != nil {
		return nil, err
	}
	if !tr.Success || tr.Data.StatusText == "" {
		return nil, noData("tracking API returned no data for code " + code + ": " + tr.Message)
	}

	// ── 3. Parse the timeline fragment into report rows ─────────────
	events, err := parseGHTKTimeline(tr.Data.TimelineHTML)
	if err != nil {
		return nil, models.NewTrackError(models.ErrCodeUpstreamService, "failed to parse tracking timeline", err)
	}

	// ── 4. Render the report and screenshot it ──────────────────────
	shot, err := s.deps.renderReport(ctx, reportData{
		Carrier:   ghtkCarrier,
		Code:      code,
		Status:    tr.Data.StatusText,
		UpdatedAt: tr.Data.UpdatedAt,
		Events:    events,
	})
	if err != nil {
		return nil, err
	}
	return buildResult(tr.Data.StatusText, shot)
}

// parseGHTKTimeline extracts (time, status, note) rows from the API's
// HTML timeline fragment.
func parseGHTKTimeline(fragment string) ([]reportEvent, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var events []reportEvent
	doc.Find(".timeline-item, li.event").Each(func(_ int, sel *goquery.Selection) {
		ev := reportEvent{
			Time:   strings.TrimSpace(sel.Find(".time, .event-time").First().Text()),
			Status: strings.TrimSpace(sel.Find(".status, .event-status").First().Text()),
			Note:   strings.TrimSpace(sel.Find(".note, .event-note").First().Text()),
		}
		if ev.Status == "" {
			// Bare list items carry the status as their own text.
			ev.Status = strings.TrimSpace(sel.Text())
		}
		if ev.Status != "" {
			events = append(events, ev)
		}
	})
	return events, nil
}
