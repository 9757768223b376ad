package engine

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/domain"
	"github.com/hamed0406/proxyhealth/internal/probe"
)

// Engine runs the full probe matrix: every enabled proxy crossed with every
// site, each pair checked through the retry loop and evaluated against its
// resolved thresholds.
type Engine struct {
	Logger      *zap.Logger
	Prober      probe.Prober
	Defaults    domain.Thresholds
	Concurrency int
	RetryDelay  time.Duration
}

func New(logger *zap.Logger, prober probe.Prober, defaults domain.Thresholds, concurrency int, retryDelay time.Duration) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	if retryDelay < 0 {
		retryDelay = 0
	}
	return &Engine{
		Logger:      logger,
		Prober:      prober,
		Defaults:    defaults,
		Concurrency: concurrency,
		RetryDelay:  retryDelay,
	}
}

// Run is the complete result set of one batch invocation.
type Run struct {
	StartedAt      time.Time
	Verdicts       []domain.Verdict
	Summary        domain.RunSummary
	ProxySummaries map[string]domain.ProxySummary
}

type pair struct {
	proxy domain.ProxyTarget
	site  domain.SiteTarget
}

// Run probes all pairs with a bounded worker pool. Pairs are independent;
// attempts within a pair stay strictly sequential. Cancelling ctx stops
// scheduling new pairs but lets in-flight ones finish or time out naturally,
// and the partial result set is aggregated as-is. The run never aborts
// because a pair failed.
func (e *Engine) Run(ctx context.Context, proxies []domain.ProxyTarget, sites []domain.SiteTarget) Run {
	start := time.Now()

	var pairs []pair
	for _, p := range proxies {
		if !p.Enabled {
			continue
		}
		for _, s := range sites {
			pairs = append(pairs, pair{proxy: p, site: s})
		}
	}

	results := make([]*domain.Verdict, len(pairs))
	sem := make(chan struct{}, e.Concurrency)
	var wg sync.WaitGroup

schedule:
	for i, pr := range pairs {
		select {
		case <-ctx.Done():
			e.Logger.Warn("run_cancelled",
				zap.Int("scheduled", i),
				zap.Int("pairs", len(pairs)),
			)
			break schedule
		case sem <- struct{}{}:
			// A freed slot and a cancellation can race; cancellation wins.
			if ctx.Err() != nil {
				<-sem
				e.Logger.Warn("run_cancelled",
					zap.Int("scheduled", i),
					zap.Int("pairs", len(pairs)),
				)
				break schedule
			}
		}
		wg.Add(1)
		go func(idx int, pr pair) {
			defer func() { <-sem }()
			defer wg.Done()
			v := e.checkPair(ctx, pr.proxy, pr.site)
			results[idx] = &v
		}(i, pr)
	}
	wg.Wait()

	verdicts := make([]domain.Verdict, 0, len(pairs))
	for _, v := range results {
		if v != nil {
			verdicts = append(verdicts, *v)
		}
	}

	duration := time.Since(start)
	summary, proxySummaries := Aggregate(verdicts, duration)

	e.Logger.Info("run_finished",
		zap.Int("total", summary.TotalTests),
		zap.Int("passed", summary.PassedTests),
		zap.Int("failed", summary.FailedTests),
		zap.Float64("success_rate", summary.SuccessRate),
		zap.Duration("duration", duration),
	)

	return Run{
		StartedAt:      start.UTC(),
		Verdicts:       verdicts,
		Summary:        summary,
		ProxySummaries: proxySummaries,
	}
}

func (e *Engine) checkPair(ctx context.Context, pxy domain.ProxyTarget, site domain.SiteTarget) domain.Verdict {
	eff := e.Defaults.Resolve(site)

	scheme := ""
	if u, err := url.Parse(site.URL); err == nil {
		scheme = u.Scheme
	}

	runner := &probe.Runner{Prober: e.Prober, Delay: e.RetryDelay}
	out := runner.Run(ctx, probe.Request{
		ProxyEndpoint: pxy.EndpointFor(scheme),
		URL:           site.URL,
		ValidateCerts: site.ValidateCerts,
		Timeout:       eff.Timeout(),
	}, eff.Retries)

	v := Evaluate(pxy, site, out, eff, time.Now().UTC())

	e.Logger.Debug("pair_checked",
		zap.String("proxy", pxy.Name),
		zap.String("site", site.Name),
		zap.Int("status", out.FinalStatusCode),
		zap.Int("attempts", out.AttemptsMade),
		zap.Int64("latency_ms", out.TotalElapsedMS),
		zap.Bool("success", v.OverallSuccess),
		zap.String("error", v.ErrorMessage),
	)
	return v
}
