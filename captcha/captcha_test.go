package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/creds"
	"github.com/viaship/trackshot/models"
)

func testResolver(t *testing.T, cfg config.CaptchaConfig, vision, auto string) *Resolver {
	t.Helper()
	if cfg.SolverPollInterval == 0 {
		cfg.SolverPollInterval = 5 * time.Millisecond
	}
	cfg.DumpDir = t.TempDir()
	return NewResolver(nil, cfg, creds.NewRotator(vision), creds.NewRotator(auto))
}

func TestAlphanumeric(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"AB12cd", "AB12cd"},
		{" a-b_1.2 ", "ab12"},
		{"The code is: X7K9", "ThecodeisX7K9"},
		{"!@#$", ""},
	}
	for _, tt := range tests {
		if got := Alphanumeric(tt.in); got != tt.want {
			t.Errorf("Alphanumeric(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSolveChallenge(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			if got := r.FormValue("googlekey"); got != "site-key" {
				t.Errorf("googlekey = %q, want %q", got, "site-key")
			}
			if got := r.FormValue("key"); got != "tok1" {
				t.Errorf("credential = %q, want %q", got, "tok1")
			}
			json.NewEncoder(w).Encode(solverResponse{Status: 1, Request: "77"})
		case "/res.php":
			if polls.Add(1) < 2 {
				json.NewEncoder(w).Encode(solverResponse{Status: 0, Request: "CAPCHA_NOT_READY"})
				return
			}
			json.NewEncoder(w).Encode(solverResponse{Status: 1, Request: "solved-token"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	r := testResolver(t, config.CaptchaConfig{SolverBaseURL: srv.URL}, "", "tok1,tok2")
	token, err := r.SolveChallenge(context.Background(), "site-key", "https://example.com/track")
	if err != nil {
		t.Fatalf("SolveChallenge: %v", err)
	}
	if token != "solved-token" {
		t.Errorf("token = %q, want %q", token, "solved-token")
	}
	if polls.Load() < 2 {
		t.Errorf("expected at least one not-ready poll before success")
	}
}

func TestSolveChallenge_NoCredential(t *testing.T) {
	r := testResolver(t, config.CaptchaConfig{SolverBaseURL: "http://127.0.0.1:0"}, "", "")
	_, err := r.SolveChallenge(context.Background(), "k", "u")

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeCredentialExhausted {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeCredentialExhausted)
	}
}

func TestSolveChallenge_SolverFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(solverResponse{Status: 0, Request: "ERROR_WRONG_GOOGLEKEY"})
	}))
	defer srv.Close()

	r := testResolver(t, config.CaptchaConfig{SolverBaseURL: srv.URL}, "", "tok")
	_, err := r.SolveChallenge(context.Background(), "bad", "u")

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeCaptcha {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeCaptcha)
	}
}

func TestReadImageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer vk1" {
			t.Errorf("Authorization = %q, want rotated vision key", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "A B-1 2!"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := testResolver(t, config.CaptchaConfig{VisionBaseURL: srv.URL, VisionModel: "test"}, "vk1,vk2", "")
	text, err := r.ReadImageText(context.Background(), []byte("png-bytes"))
	if err != nil {
		t.Fatalf("ReadImageText: %v", err)
	}
	// Non-alphanumerics stripped before the answer reaches form fields.
	if text != "AB12" {
		t.Errorf("text = %q, want %q", text, "AB12")
	}
}

func TestReadImageText_NoCredential(t *testing.T) {
	r := testResolver(t, config.CaptchaConfig{VisionBaseURL: "http://127.0.0.1:0"}, "", "")
	_, err := r.ReadImageText(context.Background(), []byte("x"))

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeCredentialExhausted {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeCredentialExhausted)
	}
}

func TestRenderRemote(t *testing.T) {
	shot := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "bt1" {
			t.Errorf("token = %q, want rotated automation token", got)
		}
		var script RenderScript
		if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
			t.Fatalf("decode script: %v", err)
		}
		if script.URL == "" {
			t.Error("script.URL is empty")
		}
		json.NewEncoder(w).Encode(renderResponse{
			Screenshot: base64.StdEncoding.EncodeToString(shot),
			Fields:     map[string]string{"status": "Delivered"},
		})
	}))
	defer srv.Close()

	r := testResolver(t, config.CaptchaConfig{RenderBaseURL: srv.URL}, "", "bt1")
	res, err := r.RenderRemote(context.Background(), RenderScript{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("RenderRemote: %v", err)
	}
	if string(res.Screenshot) != string(shot) {
		t.Errorf("screenshot not decoded correctly")
	}
	if res.Fields["status"] != "Delivered" {
		t.Errorf("fields = %v, want status=Delivered", res.Fields)
	}
}

func TestRenderRemote_EmptyScreenshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResponse{Screenshot: ""})
	}))
	defer srv.Close()

	r := testResolver(t, config.CaptchaConfig{RenderBaseURL: srv.URL}, "", "bt1")
	_, err := r.RenderRemote(context.Background(), RenderScript{URL: "https://example.com"})

	var te *models.TrackError
	if !errors.As(err, &te) || te.Code != models.ErrCodeUpstreamService {
		t.Fatalf("error = %v, want code %s", err, models.ErrCodeUpstreamService)
	}
}
