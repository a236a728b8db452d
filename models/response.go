package models

// TrackResult is the internal outcome of a successful acquisition.
// Invariant: Screenshot is never empty on success; a failed attempt
// produces a typed error and no result at all.
type TrackResult struct {
	// Status is the canonical delivery status ("DELIVERED" or "UNKNOWN").
	Status string

	// RawStatus is the carrier text the status was normalized from.
	RawStatus string

	// Screenshot is the PNG proof-of-state capture.
	Screenshot []byte
}

// TrackResponse is the response for POST /api/v1/track.
type TrackResponse struct {
	// Success indicates whether the acquisition completed without errors.
	Success bool `json:"success"`

	// Carrier is the classified carrier tag that served the request.
	Carrier string `json:"carrier,omitempty"`

	// Status is the canonical delivery status.
	Status string `json:"status,omitempty"`

	// RawStatus is the carrier-specific text the status came from.
	RawStatus string `json:"raw_status,omitempty"`

	// Screenshot is the base64-encoded PNG proof capture.
	Screenshot string `json:"screenshot,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// AcquireMs is the time spent inside the acquisition pipeline
	// (navigation, challenges, settle waits, extraction, screenshot).
	AcquireMs int64 `json:"acquire_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browsing context pool.
type PoolStats struct {
	PoolSize       int  `json:"pool_size"`
	ActiveSessions int  `json:"active_sessions"`
	BrowserUp      bool `json:"browser_up"`
}
