package domain

import "time"

// ProxyTarget is one candidate proxy. Empty endpoints mean "connect
// directly, bypassing any proxy" — an inventory usually carries one such
// entry named "direct" so the baseline gets tested alongside the proxies.
type ProxyTarget struct {
	Name          string `yaml:"name" json:"name"`
	HTTPEndpoint  string `yaml:"http" json:"http"`
	HTTPSEndpoint string `yaml:"https,omitempty" json:"https,omitempty"`
	Enabled       bool   `yaml:"enabled" json:"enabled"`
}

// EndpointFor picks the proxy endpoint for a target URL scheme. Sites served
// over https go through the https endpoint when one is configured; otherwise
// the http endpoint handles both (CONNECT tunneling).
func (p ProxyTarget) EndpointFor(scheme string) string {
	if scheme == "https" && p.HTTPSEndpoint != "" {
		return p.HTTPSEndpoint
	}
	return p.HTTPEndpoint
}

// Direct reports whether this target means "no proxy".
func (p ProxyTarget) Direct() bool {
	return p.HTTPEndpoint == "" && p.HTTPSEndpoint == ""
}

// SiteTarget is one site to probe. The pointer fields are per-site threshold
// overrides; nil falls back to the global default.
type SiteTarget struct {
	Name          string `yaml:"name" json:"name"`
	URL           string `yaml:"url" json:"url"`
	ValidateCerts bool   `yaml:"validate_certs" json:"validate_certs"`

	MaxLatencyMS       *int64 `yaml:"max_latency_ms,omitempty" json:"max_latency_ms,omitempty"`
	AllowedStatusCodes []int  `yaml:"allowed_status_codes,omitempty" json:"allowed_status_codes,omitempty"`
	Retries            *int   `yaml:"retries,omitempty" json:"retries,omitempty"`
	TimeoutSeconds     *int   `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Thresholds are the global defaults applied to every pair unless the site
// overrides a field.
type Thresholds struct {
	Retries            int   `yaml:"retries" json:"retries"`
	TimeoutSeconds     int   `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxLatencyMS       int64 `yaml:"max_latency_ms" json:"max_latency_ms"`
	AllowedStatusCodes []int `yaml:"allowed_status_codes" json:"allowed_status_codes"`
}

// EffectiveThresholds are the resolved thresholds for one (proxy, site)
// pair: global defaults merged with site overrides, computed once before
// probing. No string parsing happens after this point.
type EffectiveThresholds struct {
	Retries            int   `json:"retries"`
	TimeoutSeconds     int   `json:"timeout_seconds"`
	MaxLatencyMS       int64 `json:"max_latency_ms"`
	AllowedStatusCodes []int `json:"allowed_status_codes"`
}

// Resolve merges the global defaults with one site's overrides. Site values
// win field-by-field; unset fields fall back to the default.
func (t Thresholds) Resolve(site SiteTarget) EffectiveThresholds {
	eff := EffectiveThresholds{
		Retries:            t.Retries,
		TimeoutSeconds:     t.TimeoutSeconds,
		MaxLatencyMS:       t.MaxLatencyMS,
		AllowedStatusCodes: t.AllowedStatusCodes,
	}
	if site.Retries != nil {
		eff.Retries = *site.Retries
	}
	if site.TimeoutSeconds != nil {
		eff.TimeoutSeconds = *site.TimeoutSeconds
	}
	if site.MaxLatencyMS != nil {
		eff.MaxLatencyMS = *site.MaxLatencyMS
	}
	if len(site.AllowedStatusCodes) > 0 {
		eff.AllowedStatusCodes = site.AllowedStatusCodes
	}
	return eff
}

// Timeout returns the per-attempt wall-clock bound.
func (e EffectiveThresholds) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// StatusAllowed reports whether code is in the allowed set.
func (e EffectiveThresholds) StatusAllowed(code int) bool {
	for _, c := range e.AllowedStatusCodes {
		if c == code {
			return true
		}
	}
	return false
}
