package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viaship/trackshot/models"
	"github.com/viaship/trackshot/tracker"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when the browser is down.
func Health(tr *tracker.Tracker, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := tr.Stats()

		status := "healthy"
		if !stats.BrowserUp {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		})
	}
}
