package fetch

import (
	"net/url"
	"strings"
	"time"
)

// Tuning holds the per-domain fetch parameters resolved for one source.
type Tuning struct {
	PageLimit      int
	PerPageTimeout time.Duration
	RenderWait     time.Duration
}

// DomainTuning is the config-file form of Tuning, keyed by host suffix.
type DomainTuning struct {
	PageLimit        int `mapstructure:"page_limit"`
	PerPageTimeoutMs int `mapstructure:"per_page_timeout_ms"`
	RenderWaitMs     int `mapstructure:"render_wait_ms"`
}

// DomainResolver maps a source URL's host to fetch tuning, falling back to
// defaults for unknown hosts. Matching is by exact host, then by suffix so
// "example.com" covers "www.example.com".
type DomainResolver struct {
	defaults  Tuning
	overrides map[string]Tuning
}

// NewDomainResolver builds a resolver from configured overrides.
func NewDomainResolver(defaults Tuning, overrides map[string]DomainTuning) *DomainResolver {
	r := &DomainResolver{
		defaults:  defaults,
		overrides: make(map[string]Tuning, len(overrides)),
	}
	for host, dt := range overrides {
		t := defaults
		if dt.PageLimit > 0 {
			t.PageLimit = dt.PageLimit
		}
		if dt.PerPageTimeoutMs > 0 {
			t.PerPageTimeout = time.Duration(dt.PerPageTimeoutMs) * time.Millisecond
		}
		if dt.RenderWaitMs > 0 {
			t.RenderWait = time.Duration(dt.RenderWaitMs) * time.Millisecond
		}
		r.overrides[strings.ToLower(host)] = t
	}
	return r
}

// Resolve returns the tuning for sourceURL's host. Unparseable URLs get
// the defaults.
func (r *DomainResolver) Resolve(sourceURL string) Tuning {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return r.defaults
	}
	host := strings.ToLower(u.Hostname())
	if t, ok := r.overrides[host]; ok {
		return t
	}
	for suffix, t := range r.overrides {
		if strings.HasSuffix(host, "."+suffix) {
			return t
		}
	}
	return r.defaults
}
