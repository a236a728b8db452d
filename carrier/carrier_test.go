package carrier

import (
	"strings"
	"testing"

	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/status"
	"github.com/ysmood/gson"
)

func TestNewRegistry_CoversAllTags(t *testing.T) {
	r := NewRegistry(&Deps{Fetcher: NewHTTPFetcher()})
	for _, tag := range []string{
		TagVTP, TagSPX, TagGHN, TagGHTK, TagJT,
		TagNinjaVan, TagBEST, TagVNPost, TagLEX,
	} {
		s, ok := r.Get(tag)
		if !ok {
			t.Errorf("no strategy registered for %q", tag)
			continue
		}
		if s.Tag() != tag {
			t.Errorf("strategy for %q reports tag %q", tag, s.Tag())
		}
	}
	if _, ok := r.Get("dhl"); ok {
		t.Error("registry returned a strategy for an unknown tag")
	}
}

func TestNewDeps_ConstructsFetcher(t *testing.T) {
	d := NewDeps(nil, nil, config.CarrierConfig{})
	if d.Fetcher == nil {
		t.Fatal("NewDeps did not construct the HTTP fetcher")
	}
}

func TestCollectShipmentStatuses(t *testing.T) {
	val := gson.NewFrom(`[
		{"code": "SPX1", "status": "Đã giao hàng"},
		{"code": "SPX1", "status": "stale duplicate"},
		{"code": "SPX2", "status": "Đang vận chuyển"},
		{"code": "", "status": "orphan"},
		{"code": "SPX3", "status": ""}
	]`)

	statuses := collectShipmentStatuses(val)
	if len(statuses) != 2 {
		t.Fatalf("got %d shipments, want 2 (deduped, incomplete dropped): %v", len(statuses), statuses)
	}
	if statuses["SPX1"] != "Đã giao hàng" {
		t.Errorf("SPX1 = %q, want first status kept on duplicate", statuses["SPX1"])
	}
	if statuses["SPX2"] != "Đang vận chuyển" {
		t.Errorf("SPX2 = %q", statuses["SPX2"])
	}
}

// The joined raw status must read the same across runs regardless of
// map iteration order.
func TestSortedStatuses_OrderedByTrackingCode(t *testing.T) {
	statuses := map[string]string{
		"SPX3": "Đang vận chuyển",
		"SPX1": "Đã giao hàng",
		"SPX2": "Đang giao hàng",
	}
	want := []string{"Đã giao hàng", "Đang giao hàng", "Đang vận chuyển"}
	for i := 0; i < 10; i++ {
		got := sortedStatuses(statuses)
		if len(got) != len(want) {
			t.Fatalf("got %d statuses, want %d", len(got), len(want))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("run %d: got[%d] = %q, want %q", i, j, got[j], want[j])
			}
		}
	}
}

// A multi-shipment request is DELIVERED only when every shipment
// confirms delivery.
func TestShipmentAggregationIsConjunctive(t *testing.T) {
	if status.AllDelivered([]string{"Đã giao hàng", "Đang vận chuyển"}) {
		t.Error("mixed statuses reported as all delivered")
	}
	if !status.AllDelivered([]string{"Đã giao hàng", "Giao hàng thành công"}) {
		t.Error("all-delivered statuses not recognized")
	}
}

func TestParseGHTKTimeline(t *testing.T) {
	fragment := `
	<div class="timeline-item">
	  <span class="time">10/08 14:02</span>
	  <span class="status">Giao hàng thành công</span>
	  <span class="note">Người nhận: chính chủ</span>
	</div>
	<div class="timeline-item">
	  <span class="time">10/08 08:15</span>
	  <span class="status">Đang giao hàng</span>
	</div>`

	events, err := parseGHTKTimeline(fragment)
	if err != nil {
		t.Fatalf("parseGHTKTimeline: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Status != "Giao hàng thành công" {
		t.Errorf("first status = %q", events[0].Status)
	}
	if events[0].Note != "Người nhận: chính chủ" {
		t.Errorf("first note = %q", events[0].Note)
	}
	if events[1].Time != "10/08 08:15" {
		t.Errorf("second time = %q", events[1].Time)
	}
}

func TestParseGHTKTimeline_BareListItems(t *testing.T) {
	events, err := parseGHTKTimeline(`<ul><li class="event">Đã lấy hàng</li></ul>`)
	if err != nil {
		t.Fatalf("parseGHTKTimeline: %v", err)
	}
	if len(events) != 1 || events[0].Status != "Đã lấy hàng" {
		t.Fatalf("events = %+v, want one bare status row", events)
	}
}

func TestParseGHTKTimeline_Empty(t *testing.T) {
	events, err := parseGHTKTimeline("   ")
	if err != nil {
		t.Fatalf("parseGHTKTimeline: %v", err)
	}
	if events != nil {
		t.Errorf("events = %+v, want nil for empty fragment", events)
	}
}

func TestReportTemplate(t *testing.T) {
	var sb strings.Builder
	err := reportTmpl.Execute(&sb, reportData{
		Carrier:     "Giao Hàng Tiết Kiệm",
		Code:        "S123456",
		Status:      "Giao hàng thành công",
		UpdatedAt:   "10/08/2026 14:02",
		GeneratedAt: "10/08/2026 15:00",
		Events: []reportEvent{
			{Time: "10/08 14:02", Status: "Giao hàng thành công", Note: "Người nhận: chính chủ"},
		},
	})
	if err != nil {
		t.Fatalf("execute report template: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"S123456", "Giao hàng thành công", "Người nhận: chính chủ", "10/08/2026 15:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("report HTML missing %q", want)
		}
	}
}

func TestReportTemplate_EscapesInput(t *testing.T) {
	var sb strings.Builder
	err := reportTmpl.Execute(&sb, reportData{
		Carrier: "x",
		Code:    `<script>alert(1)</script>`,
		Status:  "ok",
	})
	if err != nil {
		t.Fatalf("execute report template: %v", err)
	}
	if strings.Contains(sb.String(), "<script>alert(1)</script>") {
		t.Error("report template did not escape injected markup")
	}
}

func TestClipRegion(t *testing.T) {
	r := clipRegion(120, 1280, 800)
	if r.Y != 120 || r.Width != 1280 || r.Height != 680 {
		t.Errorf("clipRegion(120, 1280, 800) = %+v, want Y=120 W=1280 H=680", r)
	}
}

// A viewport shorter than the clip offset must still yield a positive
// clip height; the capture call rejects zero or negative regions.
func TestClipRegion_ClampsShortViewport(t *testing.T) {
	r := clipRegion(200, 800, 150)
	if r.Height < minClipHeight {
		t.Errorf("clip height = %v, want at least %d", r.Height, minClipHeight)
	}
	if r.Y != 200 {
		t.Errorf("clip offset = %v, want 200", r.Y)
	}
}

func TestExtractVisibleText(t *testing.T) {
	body := []byte(`<html><head><title>t</title><style>.x{}</style></head>
	<body><script>var a = "hidden";</script><h1>Tra cứu</h1><p>Đã giao hàng</p></body></html>`)

	text := extractVisibleText(body)
	if !strings.Contains(text, "Tra cứu") || !strings.Contains(text, "Đã giao hàng") {
		t.Errorf("visible text = %q, missing body content", text)
	}
	if strings.Contains(text, "hidden") {
		t.Errorf("visible text = %q, script content leaked", text)
	}
	if strings.Contains(text, "t ") && strings.HasPrefix(text, "t") {
		t.Errorf("visible text = %q, head content leaked", text)
	}
}
