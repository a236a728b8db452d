package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viaship/trackshot/models"
)

// visionPrompt asks for the raw characters only; downstream form fields
// accept nothing but the answer itself.
const visionPrompt = "Read the characters shown in this CAPTCHA image. " +
	"Reply with the characters only, no explanation, no punctuation."

// chatRequest is the OpenAI-compatible chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the vision provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ReadImageText sends a CAPTCHA image to the vision API and returns the
// recognized text, stripped to alphanumerics (CAPTCHA answer fields
// accept only alphanumeric input). The image is also dumped to the
// configured directory for troubleshooting; that write is best-effort
// and not part of the contract.
func (r *Resolver) ReadImageText(ctx context.Context, image []byte) (string, error) {
	key, err := r.nextVisionKey()
	if err != nil {
		return "", err
	}

	r.dumpImage(image)

	reqBody := chatRequest{
		Model: r.cfg.VisionModel,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		Temperature: 0,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal vision request: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.VisionBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", models.NewTrackError(models.ErrCodeUpstreamService, "vision request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewTrackError(models.ErrCodeUpstreamService, "failed to read vision response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyVisionError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewTrackError(models.ErrCodeUpstreamService, "failed to parse vision response", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", models.NewTrackError(models.ErrCodeCaptcha, "vision API returned no choices", nil)
	}

	answer := Alphanumeric(chatResp.Choices[0].Message.Content)
	if answer == "" {
		return "", models.NewTrackError(models.ErrCodeCaptcha, "vision API recognized no characters", nil)
	}
	return answer, nil
}

// Alphanumeric strips everything but ASCII letters and digits.
func Alphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// dumpImage writes the captured CAPTCHA to the dump dir for diagnosis.
func (r *Resolver) dumpImage(image []byte) {
	if r.cfg.DumpDir == "" {
		return
	}
	name := filepath.Join(r.cfg.DumpDir, fmt.Sprintf("captcha-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(name, image, 0o644); err != nil {
		slog.Debug("failed to dump captcha image", "path", name, "error", err)
	}
}

// classifyVisionError maps HTTP status codes to typed errors.
func classifyVisionError(statusCode int, body []byte) *models.TrackError {
	var errResp chatErrorResponse
	msg := "vision API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewTrackError(models.ErrCodeUpstreamService, "vision API auth failure: "+msg, nil)
	case http.StatusTooManyRequests:
		return models.NewTrackError(models.ErrCodeUpstreamService, "vision API rate limited: "+msg, nil)
	default:
		return models.NewTrackError(models.ErrCodeUpstreamService, fmt.Sprintf("vision API returned %d: %s", statusCode, msg), nil)
	}
}
