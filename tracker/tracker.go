// Package tracker is the acquisition facade: it turns a free-text
// carrier label plus tracking codes into a normalized status and a proof
// screenshot, hiding classification, dispatch, and retry from callers.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/viaship/trackshot/browserpool"
	"github.com/viaship/trackshot/carrier"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/models"
	"github.com/viaship/trackshot/retry"
)

// Tracker dispatches acquisition requests to carrier strategies.
type Tracker struct {
	registry *carrier.Registry
	browser  *browserpool.Manager
	cfg      config.CarrierConfig
}

// New creates the facade over a strategy registry.
func New(registry *carrier.Registry, browser *browserpool.Manager, cfg config.CarrierConfig) *Tracker {
	return &Tracker{registry: registry, browser: browser, cfg: cfg}
}

// Acquire validates the request, classifies the carrier label, and runs
// the matching strategy under the retry policy. On success the result
// always carries a non-empty screenshot.
func (t *Tracker) Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tag, ok := carrier.Classify(req.Carrier)
	if !ok {
		return nil, models.NewTrackError(models.ErrCodeUnsupportedProvider,
			"unsupported carrier label: "+req.Carrier, nil)
	}
	strategy, ok := t.registry.Get(tag)
	if !ok {
		return nil, models.NewTrackError(models.ErrCodeInternal,
			"no strategy registered for carrier "+tag, nil)
	}

	slog.Info("acquisition started", "carrier", tag, "codes", req.Codes)

	result, err := retry.Run(ctx, t.cfg.RetryAttempts, t.cfg.RetryDelayFor(tag),
		func(ctx context.Context) (*models.TrackResult, error) {
			return strategy.Acquire(ctx, req)
		})
	if err != nil {
		slog.Error("acquisition failed",
			"carrier", tag, "codes", req.Codes,
			"elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, err
	}

	if len(result.Screenshot) == 0 {
		return nil, models.NewTrackError(models.ErrCodeInternal,
			"strategy returned a result without a screenshot", nil)
	}

	slog.Info("acquisition finished",
		"carrier", tag, "codes", req.Codes, "status", result.Status,
		"elapsed_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Stats reports browser pool health for the health endpoint.
func (t *Tracker) Stats() models.PoolStats {
	if t.browser == nil {
		return models.PoolStats{}
	}
	return t.browser.Stats()
}
