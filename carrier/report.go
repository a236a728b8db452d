package carrier

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// reportData feeds the synthetic proof page rendered for carriers whose
// tracking data comes from an API rather than a public page.
type reportData struct {
	Carrier     string
	Code        string
	Status      string
	UpdatedAt   string
	GeneratedAt string
	Events      []reportEvent
}

type reportEvent struct {
	Time   string
	Status string
	Note   string
}

// reportTmpl mimics a plain tracking results card so the proof frame
// reads like the carrier's own page.
var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="vi">
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Segoe UI", Roboto, sans-serif; background: #f4f5f7; margin: 0; padding: 24px; }
  .card { background: #fff; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.12); max-width: 720px; margin: 0 auto; padding: 24px 32px; }
  h1 { font-size: 18px; margin: 0 0 4px; color: #222; }
  .code { color: #666; font-size: 14px; margin-bottom: 16px; }
  .status { font-size: 22px; font-weight: 600; color: #1a7f37; margin-bottom: 4px; }
  .updated { color: #888; font-size: 13px; margin-bottom: 20px; }
  table { width: 100%; border-collapse: collapse; font-size: 14px; }
  td { padding: 8px 4px; border-top: 1px solid #eee; vertical-align: top; }
  td.t { white-space: nowrap; color: #666; width: 150px; }
  .footer { margin-top: 24px; color: #aaa; font-size: 11px; text-align: right; }
</style>
</head>
<body>
<div class="card">
  <h1>{{.Carrier}}</h1>
  <div class="code">Mã vận đơn: <b>{{.Code}}</b></div>
  <div class="status">{{.Status}}</div>
  <div class="updated">Cập nhật: {{.UpdatedAt}}</div>
  <table>
    {{range .Events}}<tr><td class="t">{{.Time}}</td><td>{{.Status}}{{if .Note}}<br><small>{{.Note}}</small>{{end}}</td></tr>
    {{end}}
  </table>
  <div class="footer">Truy vấn lúc {{.GeneratedAt}}</div>
</div>
</body>
</html>`))

// renderReport builds the report HTML, loads it into a fresh page, and
// captures it as the proof screenshot.
func (d *Deps) renderReport(ctx context.Context, data reportData) ([]byte, error) {
	if data.GeneratedAt == "" {
		data.GeneratedAt = time.Now().Format("02/01/2006 15:04")
	}

	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, data); err != nil {
		return nil, fmt.Errorf("render report template: %w", err)
	}

	session, page, err := d.newSession(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := page.SetDocumentContent(sb.String()); err != nil {
		return nil, fmt.Errorf("load report document: %w", err)
	}
	if err := page.WaitDOMStable(domStableWindow, 0.1); err != nil {
		return nil, fmt.Errorf("settle report document: %w", err)
	}
	return screenshotViewport(page)
}
