package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viaship/trackshot/api/handler"
	"github.com/viaship/trackshot/api/middleware"
	"github.com/viaship/trackshot/cache"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/tracker"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(tr *tracker.Tracker, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(tr, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Track
	protected.POST("/track", handler.Track(tr, cc))

	return r
}
