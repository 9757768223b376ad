package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/proxyhealth/internal/domain"
)

// Notify configures alerting for finished runs. An empty webhook disables
// the corresponding channel.
type Notify struct {
	SlackWebhook   string  `yaml:"slack_webhook"`
	WebhookURL     string  `yaml:"webhook_url"`
	MinSuccessRate float64 `yaml:"min_success_rate"` // alert when overall rate drops below this
}

// Server configures the optional HTTP API.
type Server struct {
	Addr              string   `yaml:"addr"`
	PublicAPIKeys     []string `yaml:"public_api_keys"`
	AdminAPIKeys      []string `yaml:"admin_api_keys"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	Burst             int      `yaml:"burst"`
}

type Config struct {
	Defaults     domain.Thresholds    `yaml:"defaults"`
	Concurrency  int                  `yaml:"concurrency"`
	RetryDelayMS int                  `yaml:"retry_delay_ms"`
	Proxies      []domain.ProxyTarget `yaml:"proxies"`
	Sites        []domain.SiteTarget  `yaml:"sites"`
	Notify       Notify               `yaml:"notify"`
	Server       Server               `yaml:"server"`
	LogDir       string               `yaml:"log_dir"`
	ReportDir    string               `yaml:"report_dir"`
}

// Default returns the baseline used when the YAML file leaves fields unset.
func Default() Config {
	return Config{
		Defaults: domain.Thresholds{
			Retries:            2,
			TimeoutSeconds:     10,
			MaxLatencyMS:       5000,
			AllowedStatusCodes: []int{200, 301, 302},
		},
		Concurrency:  10,
		RetryDelayMS: 1000,
		Notify:       Notify{MinSuccessRate: 70},
		Server: Server{
			Addr:              "127.0.0.1:8080",
			RequestsPerMinute: 120,
			Burst:             60,
		},
		LogDir:    "logs",
		ReportDir: "reports",
	}
}

// Load reads the YAML inventory at path, layers env overrides on top, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv keeps the handful of deploy-time knobs overridable without
// editing the inventory file.
func (c *Config) applyEnv() {
	if v := os.Getenv("API_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		c.ReportDir = v
	}
}

// Validate collects every problem instead of stopping at the first one.
func (c Config) Validate() error {
	var errs error

	if c.Defaults.TimeoutSeconds <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.timeout_seconds must be > 0"))
	}
	if c.Defaults.MaxLatencyMS <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.max_latency_ms must be > 0"))
	}
	if c.Defaults.Retries < 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.retries must be >= 0"))
	}
	if len(c.Defaults.AllowedStatusCodes) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("defaults.allowed_status_codes must not be empty"))
	}
	if c.Concurrency < 1 {
		errs = multierr.Append(errs, fmt.Errorf("concurrency must be >= 1"))
	}
	if len(c.Sites) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("at least one site is required"))
	}

	seenProxies := make(map[string]bool)
	for i, p := range c.Proxies {
		if p.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("proxies[%d]: name is required", i))
			continue
		}
		if seenProxies[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("proxies[%d]: duplicate name %q", i, p.Name))
		}
		seenProxies[p.Name] = true
		for _, ep := range []string{p.HTTPEndpoint, p.HTTPSEndpoint} {
			if ep == "" {
				continue
			}
			if err := checkEndpoint(ep); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("proxy %q: %w", p.Name, err))
			}
		}
	}

	seenSites := make(map[string]bool)
	for i, s := range c.Sites {
		if s.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("sites[%d]: name is required", i))
		}
		if seenSites[s.Name] {
			errs = multierr.Append(errs, fmt.Errorf("sites[%d]: duplicate name %q", i, s.Name))
		}
		seenSites[s.Name] = true
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = multierr.Append(errs, fmt.Errorf("site %q: url must be absolute http(s), got %q", s.Name, s.URL))
		}
		if s.TimeoutSeconds != nil && *s.TimeoutSeconds <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("site %q: timeout_seconds override must be > 0", s.Name))
		}
		if s.MaxLatencyMS != nil && *s.MaxLatencyMS <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("site %q: max_latency_ms override must be > 0", s.Name))
		}
		if s.Retries != nil && *s.Retries < 0 {
			errs = multierr.Append(errs, fmt.Errorf("site %q: retries override must be >= 0", s.Name))
		}
	}

	return errs
}

func checkEndpoint(ep string) error {
	if !strings.Contains(ep, "://") {
		ep = "http://" + ep
	}
	u, err := url.Parse(ep)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid proxy endpoint %q", ep)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

// EnabledProxies returns the proxies that participate in a run.
func (c Config) EnabledProxies() []domain.ProxyTarget {
	out := make([]domain.ProxyTarget, 0, len(c.Proxies))
	for _, p := range c.Proxies {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// RetryDelay is the inter-attempt delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}
