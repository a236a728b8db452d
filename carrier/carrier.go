// Package carrier implements one acquisition strategy per carrier
// family. Every strategy walks the same shape (navigate, clear any
// CAPTCHA gate, wait for the page's asynchronous tracking data, extract
// the raw status text, capture the proof screenshot) but the selectors,
// challenges, and screenshot framing are carrier-specific.
package carrier

import (
	"context"

	"github.com/viaship/trackshot/browserpool"
	"github.com/viaship/trackshot/captcha"
	"github.com/viaship/trackshot/config"
	"github.com/viaship/trackshot/models"
)

// Carrier tags. The classifier maps free-text labels onto these.
const (
	TagVTP      = "vtp"
	TagSPX      = "spx"
	TagGHN      = "ghn"
	TagGHTK     = "ghtk"
	TagJT       = "jtexpress"
	TagNinjaVan = "ninjavan"
	TagBEST     = "best"
	TagVNPost   = "vnpost"
	TagLEX      = "lex"
)

// Strategy is the per-carrier acquisition algorithm. A strategy owns
// exactly one browser session per invocation and releases it on every
// exit path; it never retries itself, retries belong to the caller's
// retry loop (the single navigation wait-policy fallback excepted, which
// addresses a transient rendering condition inside one attempt).
type Strategy interface {
	// Tag returns the carrier tag this strategy serves.
	Tag() string

	// Acquire resolves the request into a normalized status plus a
	// non-empty proof screenshot, or a typed error.
	Acquire(ctx context.Context, req *models.TrackRequest) (*models.TrackResult, error)
}

// Deps bundles the shared collaborators every strategy draws on.
type Deps struct {
	Browser *browserpool.Manager
	Captcha *captcha.Resolver
	Fetcher *HTTPFetcher
	Cfg     config.CarrierConfig
}

// NewDeps wires the strategy dependencies. The fetcher builds its own
// transport per request because its TLS dialer is what it exists for.
func NewDeps(browser *browserpool.Manager, resolver *captcha.Resolver, cfg config.CarrierConfig) *Deps {
	return &Deps{
		Browser: browser,
		Captcha: resolver,
		Fetcher: NewHTTPFetcher(),
		Cfg:     cfg,
	}
}

// Registry maps carrier tags to strategies. Dispatch is data-driven so
// adding a carrier never touches classification or facade code.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds the registry with all nine carrier strategies.
func NewRegistry(deps *Deps) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range []Strategy{
		newVTP(deps),
		newSPX(deps),
		newGHN(deps),
		newGHTK(deps),
		newJT(deps),
		newNinjaVan(deps),
		newBEST(deps),
		newVNPost(deps),
		newLEX(deps),
	} {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the strategy for its tag.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Tag()] = s
}

// Get returns the strategy for a tag.
func (r *Registry) Get(tag string) (Strategy, bool) {
	s, ok := r.strategies[tag]
	return s, ok
}
