package engine

import (
	"time"

	"github.com/hamed0406/proxyhealth/internal/domain"
)

// Aggregate folds the ordered verdict sequence into the run summary and the
// per-proxy summaries. Pure and total: an empty sequence yields zeroed
// summaries with a 0 success rate, never NaN. Recomputing from the same
// inputs is bit-for-bit reproducible.
func Aggregate(verdicts []domain.Verdict, duration time.Duration) (domain.RunSummary, map[string]domain.ProxySummary) {
	summary := domain.RunSummary{
		TotalTests:      len(verdicts),
		DurationSeconds: domain.Round2(duration.Seconds()),
	}

	type acc struct {
		total, passed, failures, slow int
		latencySum                    int64
	}
	perProxy := make(map[string]*acc)

	for _, v := range verdicts {
		if v.OverallSuccess {
			summary.PassedTests++
		} else {
			summary.FailedTests++
		}

		a := perProxy[v.Proxy.Name]
		if a == nil {
			a = &acc{}
			perProxy[v.Proxy.Name] = a
		}
		a.total++
		a.latencySum += v.Classified.TotalElapsedMS
		if v.OverallSuccess {
			a.passed++
		} else {
			a.failures++
		}
		if v.StatusOK && !v.LatencyOK {
			a.slow++
		}
	}

	if summary.TotalTests > 0 {
		summary.SuccessRate = domain.Round2(float64(summary.PassedTests) / float64(summary.TotalTests) * 100)
	}

	out := make(map[string]domain.ProxySummary, len(perProxy))
	for name, a := range perProxy {
		ps := domain.ProxySummary{
			Proxy:    name,
			Total:    a.total,
			Failures: a.failures,
			Slow:     a.slow,
		}
		if a.total > 0 {
			ps.AvgLatencyMS = domain.Round1(float64(a.latencySum) / float64(a.total))
			ps.SuccessRate = domain.Round2(float64(a.passed) / float64(a.total) * 100)
		}
		out[name] = ps
	}
	return summary, out
}
