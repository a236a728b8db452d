// Package captcha adapts the external challenge-solving, vision text
// recognition, and remote render services behind one resolver. All
// three consume rotated credentials; none of them is retried here,
// retries belong to the acquisition's outer retry loop.
package captcha

import (
	"net/http"

	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/creds"
	"github.com/viaship/trackshot/models"
)

// Resolver is the single entry point for CAPTCHA resolution and remote
// rendering. It is safe for concurrent use.
type Resolver struct {
	httpClient *http.Client
	cfg        config.CaptchaConfig

	// visionKeys feeds ReadImageText; autoTokens feeds SolveChallenge
	// and RenderRemote. Two independent pools, one rotation contract.
	visionKeys *creds.Rotator
	autoTokens *creds.Rotator
}

// NewResolver creates a Resolver. Pass nil to use a default http.Client.
func NewResolver(httpClient *http.Client, cfg config.CaptchaConfig, visionKeys, autoTokens *creds.Rotator) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Resolver{
		httpClient: httpClient,
		cfg:        cfg,
		visionKeys: visionKeys,
		autoTokens: autoTokens,
	}
}

// nextVisionKey returns a rotated vision credential or a typed error.
func (r *Resolver) nextVisionKey() (string, error) {
	key, ok := r.visionKeys.Next()
	if !ok {
		return "", models.NewTrackError(
			models.ErrCodeCredentialExhausted,
			"no vision API key configured",
			nil,
		)
	}
	return key, nil
}

// nextAutomationToken returns a rotated automation-service credential or
// a typed error.
func (r *Resolver) nextAutomationToken() (string, error) {
	tok, ok := r.autoTokens.Next()
	if !ok {
		return "", models.NewTrackError(
			models.ErrCodeCredentialExhausted,
			"no automation service token configured",
			nil,
		)
	}
	return tok, nil
}
