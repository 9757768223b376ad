package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/config"
	"github.com/hamed0406/proxyhealth/internal/engine"
	"github.com/hamed0406/proxyhealth/internal/logging"
	"github.com/hamed0406/proxyhealth/internal/notify"
	"github.com/hamed0406/proxyhealth/internal/probe"
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

	// Interrupt stops scheduling new pairs; in-flight checks finish or time
	// out and the partial run is reported as-is.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(logger, probe.NewTransport(), cfg.Defaults, cfg.Concurrency, cfg.RetryDelay())
	run := eng.Run(ctx, cfg.EnabledProxies(), cfg.Sites)
	rep := report.Build(run)

	if path, err := rep.WriteFile(cfg.ReportDir); err != nil {
		logger.Warn("report_write_error", zap.Error(err))
	} else {
		logger.Info("report_written", zap.String("path", path), zap.String("run_id", rep.RunID))
	}

	fmt.Print(rep.Render())

	if rep.Summary.TotalTests > 0 && rep.Summary.SuccessRate < cfg.Notify.MinSuccessRate {
		alert(logger, cfg.Notify, rep)
	}
}

func alert(logger *zap.Logger, cfg config.Notify, rep *report.Report) {
	var notifiers notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		notifiers = append(notifiers, s)
	}
	if w := notify.NewWebhook(cfg.WebhookURL); w != nil {
		notifiers = append(notifiers, w)
	}
	if len(notifiers) == 0 {
		return
	}
	var failing []string
	for _, ps := range rep.ProxySummary {
		if ps.Failures > 0 {
			failing = append(failing, ps.Proxy)
		}
	}
	a := notify.Alert{
		RunID: rep.RunID,
		Title: fmt.Sprintf("Proxy health %.2f%% below threshold %.2f%%",
			rep.Summary.SuccessRate, cfg.MinSuccessRate),
		Text:           rep.Render(),
		SuccessRate:    rep.Summary.SuccessRate,
		FailingProxies: failing,
	}
	if err := notifiers.Send(context.Background(), a); err != nil {
		logger.Warn("notify_error", zap.Error(err))
	} else {
		logger.Info("alert_sent", zap.Float64("success_rate", rep.Summary.SuccessRate))
	}
}
