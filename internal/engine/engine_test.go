package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/domain"
	"github.com/hamed0406/proxyhealth/internal/probe"
)

// prober returning a canned response per proxy endpoint
type fakeProber struct {
	mu        sync.Mutex
	calls     int
	byProxy   map[string]probe.Attempt
	otherwise probe.Attempt
}

func (f *fakeProber) Probe(attempt int, req probe.Request) probe.Attempt {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if a, ok := f.byProxy[req.ProxyEndpoint]; ok {
		a.AttemptNumber = attempt
		return a
	}
	a := f.otherwise
	a.AttemptNumber = attempt
	return a
}

func ok200() probe.Attempt {
	return probe.Attempt{RawOutput: "HTTP/1.1 200 OK\r\n\r\n", ElapsedMS: 40}
}

func defaults() domain.Thresholds {
	return domain.Thresholds{
		Retries:            1,
		TimeoutSeconds:     5,
		MaxLatencyMS:       5000,
		AllowedStatusCodes: []int{200, 301, 302},
	}
}

func TestEngine_RunsEveryEnabledPair(t *testing.T) {
	f := &fakeProber{otherwise: ok200()}
	e := New(zap.NewNop(), f, defaults(), 4, 0)

	proxies := []domain.ProxyTarget{
		{Name: "direct", Enabled: true},
		{Name: "squid", HTTPEndpoint: "http://10.0.0.1:3128", Enabled: true},
		{Name: "old", HTTPEndpoint: "http://10.0.0.2:3128", Enabled: false},
	}
	sites := []domain.SiteTarget{
		{Name: "a", URL: "https://a.example.com"},
		{Name: "b", URL: "http://b.example.com"},
	}

	run := e.Run(context.Background(), proxies, sites)

	if len(run.Verdicts) != 4 {
		t.Fatalf("2 enabled proxies x 2 sites = 4 verdicts, got %d", len(run.Verdicts))
	}
	if run.Summary.TotalTests != 4 || run.Summary.PassedTests != 4 {
		t.Fatalf("unexpected summary: %+v", run.Summary)
	}
	if run.Summary.SuccessRate != 100.0 {
		t.Fatalf("want 100.0, got %v", run.Summary.SuccessRate)
	}
	if _, ok := run.ProxySummaries["old"]; ok {
		t.Fatalf("disabled proxy must not appear in summaries")
	}

	// verdict order follows the proxy x site input order
	if run.Verdicts[0].Proxy.Name != "direct" || run.Verdicts[0].Site.Name != "a" {
		t.Fatalf("verdicts out of order: first is %s/%s",
			run.Verdicts[0].Proxy.Name, run.Verdicts[0].Site.Name)
	}
	if run.Verdicts[3].Proxy.Name != "squid" || run.Verdicts[3].Site.Name != "b" {
		t.Fatalf("verdicts out of order: last is %s/%s",
			run.Verdicts[3].Proxy.Name, run.Verdicts[3].Site.Name)
	}
}

func TestEngine_FailingProxyStillYieldsCompleteVerdicts(t *testing.T) {
	f := &fakeProber{
		byProxy: map[string]probe.Attempt{
			"http://10.0.0.9:3128": {TransportFailed: true, RawOutput: "connection refused", ElapsedMS: 10},
		},
		otherwise: ok200(),
	}
	e := New(zap.NewNop(), f, defaults(), 2, 0)

	proxies := []domain.ProxyTarget{
		{Name: "good", HTTPEndpoint: "http://10.0.0.1:3128", Enabled: true},
		{Name: "dead", HTTPEndpoint: "http://10.0.0.9:3128", Enabled: true},
	}
	sites := []domain.SiteTarget{{Name: "a", URL: "http://a.example.com"}}

	run := e.Run(context.Background(), proxies, sites)

	if len(run.Verdicts) != 2 {
		t.Fatalf("a failing pair must still produce a verdict, got %d", len(run.Verdicts))
	}
	var dead domain.Verdict
	for _, v := range run.Verdicts {
		if v.Proxy.Name == "dead" {
			dead = v
		}
	}
	if dead.OverallSuccess || dead.ErrorMessage == "" {
		t.Fatalf("dead proxy verdict must fail with a message: %+v", dead)
	}
	if dead.Classified.AttemptsMade != 2 {
		t.Fatalf("retries=1 means 2 attempts, got %d", dead.Classified.AttemptsMade)
	}
	if run.Summary.SuccessRate != 50.0 {
		t.Fatalf("want 50.0, got %v", run.Summary.SuccessRate)
	}
}

func TestEngine_SiteOverridesApply(t *testing.T) {
	f := &fakeProber{otherwise: probe.Attempt{RawOutput: "HTTP/1.1 404 Not Found\r\n\r\n", ElapsedMS: 30}}
	e := New(zap.NewNop(), f, defaults(), 1, 0)

	allow404 := []int{404}
	proxies := []domain.ProxyTarget{{Name: "direct", Enabled: true}}
	sites := []domain.SiteTarget{{Name: "s", URL: "http://s.example.com", AllowedStatusCodes: allow404}}

	run := e.Run(context.Background(), proxies, sites)
	if !run.Verdicts[0].OverallSuccess {
		t.Fatalf("site-level allowed set must win: %+v", run.Verdicts[0])
	}
}

func TestEngine_CancelledContextSchedulesNothing(t *testing.T) {
	f := &fakeProber{otherwise: ok200()}
	e := New(zap.NewNop(), f, defaults(), 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proxies := []domain.ProxyTarget{{Name: "direct", Enabled: true}}
	sites := []domain.SiteTarget{{Name: "a", URL: "http://a.example.com"}}

	run := e.Run(ctx, proxies, sites)
	if len(run.Verdicts) != 0 {
		t.Fatalf("cancelled run must not schedule new pairs, got %d verdicts", len(run.Verdicts))
	}
	if run.Summary.TotalTests != 0 || run.Summary.SuccessRate != 0 {
		t.Fatalf("partial run aggregates what completed: %+v", run.Summary)
	}
}

// prober that cancels the run while its first pair is still in flight
type cancellingProber struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancellingProber) Probe(attempt int, req probe.Request) probe.Attempt {
	c.once.Do(c.cancel)
	time.Sleep(20 * time.Millisecond)
	a := ok200()
	a.AttemptNumber = attempt
	return a
}

func TestEngine_CancelMidRunStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &cancellingProber{cancel: cancel}
	e := New(zap.NewNop(), f, defaults(), 1, 0)

	proxies := []domain.ProxyTarget{{Name: "direct", Enabled: true}}
	sites := []domain.SiteTarget{
		{Name: "a", URL: "http://a.example.com"},
		{Name: "b", URL: "http://b.example.com"},
		{Name: "c", URL: "http://c.example.com"},
	}

	// With one worker slot, the second pair is blocked on the semaphore when
	// the cancel lands; it must never be scheduled once the slot frees.
	run := e.Run(ctx, proxies, sites)
	if len(run.Verdicts) != 1 {
		t.Fatalf("only the in-flight pair may finish, got %d verdicts", len(run.Verdicts))
	}
	if run.Summary.TotalTests != 1 {
		t.Fatalf("partial run aggregates what completed: %+v", run.Summary)
	}
}

func TestEngine_DurationIsRecorded(t *testing.T) {
	f := &fakeProber{otherwise: ok200()}
	e := New(zap.NewNop(), f, defaults(), 1, 0)

	run := e.Run(context.Background(),
		[]domain.ProxyTarget{{Name: "direct", Enabled: true}},
		[]domain.SiteTarget{{Name: "a", URL: "http://a.example.com"}})

	if run.Summary.DurationSeconds < 0 {
		t.Fatalf("duration must be >= 0")
	}
	if time.Since(run.StartedAt) < 0 {
		t.Fatalf("started_at must be in the past")
	}
}
