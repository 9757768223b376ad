package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/config"
	"github.com/hamed0406/proxyhealth/internal/engine"
	"github.com/hamed0406/proxyhealth/internal/httpapi"
	"github.com/hamed0406/proxyhealth/internal/httpapi/middleware"
	"github.com/hamed0406/proxyhealth/internal/logging"
	"github.com/hamed0406/proxyhealth/internal/probe"
	"github.com/hamed0406/proxyhealth/internal/repo/memory"
	"github.com/hamed0406/proxyhealth/internal/report"
)

func main() {
	cfgPath := flag.String("config", "proxyhealth.yaml", "path to the inventory file")
	verbose := flag.Bool("verbose", false, "log every pair check")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, *verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	eng := engine.New(logger, probe.NewTransport(), cfg.Defaults, cfg.Concurrency, cfg.RetryDelay())
	runOnce := func(ctx context.Context) *report.Report {
		return report.Build(eng.Run(ctx, cfg.EnabledProxies(), cfg.Sites))
	}

	api := httpapi.NewServer(
		logger,
		memory.New(32),
		runOnce,
		middleware.Keys{Public: cfg.Server.PublicAPIKeys, Admin: cfg.Server.AdminAPIKeys},
		cfg.Server.RequestsPerMinute,
		cfg.Server.Burst,
	)

	logger.Info("api_listen", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, api.Router()); err != nil {
		log.Fatal(err)
	}
}
