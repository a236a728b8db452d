package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Carrier   CarrierConfig
	Captcha   CaptchaConfig
	Creds     CredsConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the shared Rod browser and its context pool.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// ContextPoolSize is the number of reusable browsing contexts.
	// Size 1 effectively serializes acquisitions through one context.
	ContextPoolSize int // default: 1

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// ViewportWidth/ViewportHeight fix the page viewport for screenshots.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 800

	// Stealth injects anti-bot-detection JS into every new session.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block during navigation.
	// Images are intentionally not blocked: image CAPTCHAs must render.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// CarrierConfig controls per-acquisition navigation and retry behavior.
type CarrierConfig struct {
	// NavigationTimeout is the max time for a single page.Navigate.
	NavigationTimeout time.Duration // default: 60s

	// PageTimeout is the default deadline for all waits and queries on a page.
	PageTimeout time.Duration // default: 90s

	// SettleDelay is the default wait after navigation/submit for the
	// carrier's client-side rendering and polling to populate data.
	// Tracking pages load their data asynchronously; this wait is
	// load-bearing, not cosmetic.
	SettleDelay time.Duration // default: 12s

	// SettleOverrides maps a carrier tag to a settle delay that replaces
	// SettleDelay for that carrier. Format: "spx=15s,vtp=10s".
	SettleOverrides map[string]time.Duration

	// RetryAttempts is the bounded attempt count per acquisition.
	RetryAttempts int // default: 3

	// RetryBaseDelay is the base backoff unit; attempt i sleeps i×base.
	RetryBaseDelay time.Duration // default: 2s

	// RetryDelayOverrides maps a carrier tag to its backoff base.
	RetryDelayOverrides map[string]time.Duration

	// ScreenshotClipTop is the vertical clip offset (px) used by carriers
	// whose proof shot excludes the site chrome. default: 120
	ScreenshotClipTop int
}

// CaptchaConfig controls the external CAPTCHA and rendering services.
type CaptchaConfig struct {
	// SolverBaseURL is the 2captcha-compatible solving service endpoint.
	SolverBaseURL string // default: "https://2captcha.com"

	// SolverPollInterval is the delay between result polls.
	SolverPollInterval time.Duration // default: 5s

	// VisionBaseURL is the OpenAI-compatible vision API base URL.
	VisionBaseURL string // default: "https://api.openai.com/v1"

	// VisionModel is the vision model used for image text recognition.
	VisionModel string // default: "gpt-4o-mini"

	// RenderBaseURL is the remote render-and-screenshot service endpoint
	// (browserless-compatible).
	RenderBaseURL string // default: "https://chrome.browserless.io"

	// DumpDir, when non-empty, receives captured CAPTCHA images for
	// troubleshooting. default: os.TempDir()
	DumpDir string
}

// CredsConfig holds the raw, comma-delimited credential pools.
type CredsConfig struct {
	// VisionKeys feeds the vision OCR credential rotator.
	VisionKeys string

	// AutomationTokens feeds the solver / remote-render credential rotator.
	AutomationTokens string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: true
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 2
	Burst             int     // default: 5
}

// CacheConfig controls the track response cache.
type CacheConfig struct {
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TRACKSHOT_HOST", "0.0.0.0"),
			Port: envIntOr("TRACKSHOT_PORT", 8080),
			Mode: envOr("TRACKSHOT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:        envBoolOr("TRACKSHOT_HEADLESS", true),
			ContextPoolSize: envIntOr("TRACKSHOT_CONTEXT_POOL", 1),
			NoSandbox:       envBoolOr("TRACKSHOT_NO_SANDBOX", false),
			BrowserBin:      os.Getenv("TRACKSHOT_BROWSER_BIN"),
			ViewportWidth:   envIntOr("TRACKSHOT_VIEWPORT_WIDTH", 1280),
			ViewportHeight:  envIntOr("TRACKSHOT_VIEWPORT_HEIGHT", 800),
			Stealth:         envBoolOr("TRACKSHOT_STEALTH", true),
			BlockedResourceTypes: envSliceOr("TRACKSHOT_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Carrier: CarrierConfig{
			NavigationTimeout:   envDurationOr("TRACKSHOT_NAV_TIMEOUT", 60*time.Second),
			PageTimeout:         envDurationOr("TRACKSHOT_PAGE_TIMEOUT", 90*time.Second),
			SettleDelay:         envDurationOr("TRACKSHOT_SETTLE_DELAY", 12*time.Second),
			SettleOverrides:     envCarrierDurations("TRACKSHOT_SETTLE_OVERRIDES"),
			RetryAttempts:       envIntOr("TRACKSHOT_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:      envDurationOr("TRACKSHOT_RETRY_BASE_DELAY", 2*time.Second),
			RetryDelayOverrides: envCarrierDurations("TRACKSHOT_RETRY_DELAY_OVERRIDES"),
			ScreenshotClipTop:   envIntOr("TRACKSHOT_CLIP_TOP", 120),
		},
		Captcha: CaptchaConfig{
			SolverBaseURL:      envOr("TRACKSHOT_SOLVER_URL", "https://2captcha.com"),
			SolverPollInterval: envDurationOr("TRACKSHOT_SOLVER_POLL", 5*time.Second),
			VisionBaseURL:      envOr("TRACKSHOT_VISION_URL", "https://api.openai.com/v1"),
			VisionModel:        envOr("TRACKSHOT_VISION_MODEL", "gpt-4o-mini"),
			RenderBaseURL:      envOr("TRACKSHOT_RENDER_URL", "https://chrome.browserless.io"),
			DumpDir:            envOr("TRACKSHOT_CAPTCHA_DUMP_DIR", os.TempDir()),
		},
		Creds: CredsConfig{
			VisionKeys:       os.Getenv("TRACKSHOT_VISION_KEYS"),
			AutomationTokens: os.Getenv("TRACKSHOT_AUTOMATION_TOKENS"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TRACKSHOT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("TRACKSHOT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TRACKSHOT_RATE_RPS", 2.0),
			Burst:             envIntOr("TRACKSHOT_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TRACKSHOT_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("TRACKSHOT_LOG_LEVEL", "info"),
			Format: envOr("TRACKSHOT_LOG_FORMAT", "json"),
		},
	}
}

// SettleFor returns the settle delay for a carrier tag.
func (c CarrierConfig) SettleFor(tag string) time.Duration {
	if d, ok := c.SettleOverrides[tag]; ok {
		return d
	}
	return c.SettleDelay
}

// RetryDelayFor returns the backoff base for a carrier tag.
func (c CarrierConfig) RetryDelayFor(tag string) time.Duration {
	if d, ok := c.RetryDelayOverrides[tag]; ok {
		return d
	}
	return c.RetryBaseDelay
}

// envCarrierDurations parses "tag=dur,tag=dur" pairs from the environment.
func envCarrierDurations(key string) map[string]time.Duration {
	out := make(map[string]time.Duration)
	v := os.Getenv(key)
	if v == "" {
		return out
	}
	for _, pair := range strings.Split(v, ",") {
		tag, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil {
			out[strings.TrimSpace(tag)] = d
		}
	}
	return out
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
