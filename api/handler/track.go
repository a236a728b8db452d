package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viaship/trackshot/cache"
	"github.com/viaship/trackshot/carrier"
	"github.com/viaship/trackshot/models"
	"github.com/viaship/trackshot/tracker"
	"github.com/viaship/trackshot/webhook"
)

// Track returns a handler for POST /api/v1/track.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup (when max_age > 0).
//  3. Tracker.Acquire → status + screenshot   (records acquire_ms)
//  4. Encode, cache, fire optional webhook, return 200.
func Track(tr *tracker.Tracker, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.TrackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.TrackResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		tag, _ := carrier.Classify(req.Carrier)

		// ── 2. Cache lookup ─────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 && tag != "" {
			cacheKey := cache.Key(tag, req.Codes)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				// The cached struct is shared across requests; mutate a
				// copy, never the stored value.
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, &resp)
				return
			}
		}

		// ── 3. Acquire ──────────────────────────────────────────────
		acquireStart := time.Now()
		result, err := tr.Acquire(c.Request.Context(), &req)
		acquireMs := time.Since(acquireStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				AcquireMs: acquireMs,
			})
			notifyWebhook(&req, tag, nil, err)
			return
		}

		// ── 4. Assemble response ────────────────────────────────────
		resp := &models.TrackResponse{
			Success:    true,
			Carrier:    tag,
			Status:     result.Status,
			RawStatus:  result.RawStatus,
			Screenshot: base64.StdEncoding.EncodeToString(result.Screenshot),
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				AcquireMs: acquireMs,
			},
		}

		// ── 5. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 && tag != "" {
			cc.Set(cache.Key(tag, req.Codes), resp)
			resp.CacheStatus = "miss"
		}

		notifyWebhook(&req, tag, resp, nil)
		c.JSON(http.StatusOK, resp)
	}
}

// notifyWebhook fires the optional completion notification. Screenshot
// bytes are deliberately excluded from the failure payload.
func notifyWebhook(req *models.TrackRequest, tag string, resp *models.TrackResponse, err error) {
	if req.WebhookURL == "" {
		return
	}

	event := &webhook.Event{
		Carrier:   tag,
		Codes:     req.Codes,
		Timestamp: time.Now().Unix(),
	}
	if err != nil {
		event.Type = "track.failed"
		event.Data = toDetail(err)
	} else {
		event.Type = "track.completed"
		event.Data = resp
	}
	webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, event)
}

// respondError maps a TrackError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	trackErr := asTrackError(err)
	c.JSON(mapErrorToStatus(trackErr), models.TrackResponse{
		Success: false,
		Error:   trackErr.ToDetail(),
		Timing:  timing,
	})
}

func asTrackError(err error) *models.TrackError {
	var te *models.TrackError
	if errors.As(err, &te) {
		return te
	}
	return models.NewTrackError(models.ErrCodeInternal, err.Error(), err)
}

func toDetail(err error) *models.ErrorDetail {
	return asTrackError(err).ToDetail()
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.TrackError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeUpstreamService:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnsupportedProvider:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeNoTrackingData:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBrowserUnavailable, models.ErrCodeCredentialExhausted:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
