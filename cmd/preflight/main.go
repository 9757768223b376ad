// cmd/preflight/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/proxyhealth/internal/config"
)

func main() {
	cfgPath := flag.String("config", "proxyhealth.yaml", "path to the inventory file")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("config parsed: %d proxies, %d sites", len(cfg.Proxies), len(cfg.Sites)))

	enabled := cfg.EnabledProxies()
	if len(enabled) == 0 {
		fail("no enabled proxies — nothing will be probed")
	}
	ok(fmt.Sprintf("%d proxies enabled", len(enabled)))

	hasDirect := false
	for _, p := range enabled {
		if p.Direct() {
			hasDirect = true
		}
	}
	if !hasDirect {
		warn("no direct (no-proxy) entry — runs won't have a baseline to compare against")
	}

	for _, s := range cfg.Sites {
		if !s.ValidateCerts && strings.HasPrefix(s.URL, "https://") {
			warn(fmt.Sprintf("site %q skips certificate validation", s.Name))
		}
	}

	if len(cfg.Server.AdminAPIKeys) == 0 {
		warn("server.admin_api_keys empty — anyone can trigger runs on the API")
	}
	if cfg.Notify.SlackWebhook == "" && cfg.Notify.WebhookURL == "" {
		warn("no notification channel configured — low success rates go unreported")
	}

	ok("preflight passed")
}
