package models

import "strings"

// TrackRequest is the payload for POST /api/v1/track.
type TrackRequest struct {
	// Carrier is the free-text provider label, e.g. "Viettel Post",
	// "VTP", "spx". Classified against ordered substring predicates.
	Carrier string `json:"carrier" binding:"required"`

	// Codes is the comma-separated list of tracking codes. Aggregator
	// carriers accept several codes in one lookup; the rest use the first.
	Codes string `json:"codes" binding:"required"`

	// MaxAge, in milliseconds, enables the response cache: a cached
	// result younger than MaxAge is returned without touching a browser.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL, when set, receives a signed completion notification.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook payload (HMAC-SHA256).
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// CodeList splits Codes on comma, trimming and dropping empties.
func (r *TrackRequest) CodeList() []string {
	parts := strings.Split(r.Codes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate reports the first missing required field as a typed error.
func (r *TrackRequest) Validate() error {
	if strings.TrimSpace(r.Carrier) == "" {
		return NewTrackError(ErrCodeInvalidInput, "carrier is required", nil)
	}
	if len(r.CodeList()) == 0 {
		return NewTrackError(ErrCodeInvalidInput, "at least one tracking code is required", nil)
	}
	return nil
}
