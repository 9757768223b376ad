package domain

import (
	"math"
	"time"

	"github.com/hamed0406/proxyhealth/internal/probe"
)

// Verdict is the final determination for one (proxy, site) pair in one run.
// Immutable once produced; the aggregator owns it after emission.
type Verdict struct {
	Proxy      ProxyTarget             `json:"proxy"`
	Site       SiteTarget              `json:"site"`
	Classified probe.ClassifiedOutcome `json:"classified"`
	Thresholds EffectiveThresholds     `json:"thresholds"`

	StatusOK       bool   `json:"status_ok"`
	LatencyOK      bool   `json:"latency_ok"`
	OverallSuccess bool   `json:"overall_success"`
	ErrorMessage   string `json:"error_message"`

	CheckedAt time.Time `json:"checked_at"`
}

// RunSummary is recomputed fully from the verdict sequence each run, never
// incrementally mutated.
type RunSummary struct {
	TotalTests      int     `json:"total_tests"`
	PassedTests     int     `json:"passed_tests"`
	FailedTests     int     `json:"failed_tests"`
	SuccessRate     float64 `json:"success_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ProxySummary rolls up all verdicts for one proxy. Slow counts pairs that
// were reachable with an allowed status but over the latency ceiling.
type ProxySummary struct {
	Proxy        string  `json:"proxy"`
	Total        int     `json:"total"`
	Failures     int     `json:"failures"`
	Slow         int     `json:"slow"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}

// Round1 rounds to one decimal place (average latencies).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places (success rates).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
