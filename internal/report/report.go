// Package report turns a finished run into the stable record shapes
// consumed by downstream tooling, plus a human-readable rendering.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/proxyhealth/internal/domain"
	"github.com/hamed0406/proxyhealth/internal/engine"
)

type ProxyRef struct {
	Name  string `json:"name"`
	HTTP  string `json:"http"`
	HTTPS string `json:"https,omitempty"`
}

type SiteRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type TestInfo struct {
	Timestamp        time.Time `json:"timestamp"`
	DurationMS       int64     `json:"duration_ms"`
	RetriesAttempted int       `json:"retries_attempted"`
}

type ResultInfo struct {
	StatusCode     *int   `json:"status_code"`
	StatusOK       bool   `json:"status_ok"`
	LatencyOK      bool   `json:"latency_ok"`
	OverallSuccess bool   `json:"overall_success"`
	ErrorMessage   string `json:"error_message"`
}

type ThresholdInfo struct {
	MaxLatencyMS       int64 `json:"max_latency_ms"`
	AllowedStatusCodes []int `json:"allowed_status_codes"`
	TimeoutSeconds     int   `json:"timeout_seconds"`
}

// PairRecord is the persisted shape of one verdict.
type PairRecord struct {
	Proxy      ProxyRef      `json:"proxy"`
	Site       SiteRef       `json:"site"`
	TestInfo   TestInfo      `json:"test_info"`
	Results    ResultInfo    `json:"results"`
	Thresholds ThresholdInfo `json:"thresholds"`
}

// Report is the summary envelope for one run.
type Report struct {
	RunID        string                `json:"run_id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Summary      domain.RunSummary     `json:"summary"`
	ProxySummary []domain.ProxySummary `json:"proxy_summary"`
	Results      []PairRecord          `json:"results"`
}

// Build converts a run into its report. Proxy summaries are ordered by first
// appearance in the verdict sequence so the output is reproducible.
func Build(run engine.Run) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Summary:     run.Summary,
		Results:     make([]PairRecord, 0, len(run.Verdicts)),
	}

	seen := make(map[string]bool)
	for _, v := range run.Verdicts {
		if !seen[v.Proxy.Name] {
			seen[v.Proxy.Name] = true
			if ps, ok := run.ProxySummaries[v.Proxy.Name]; ok {
				r.ProxySummary = append(r.ProxySummary, ps)
			}
		}
		r.Results = append(r.Results, recordFor(v))
	}
	return r
}

func recordFor(v domain.Verdict) PairRecord {
	var status *int
	if v.Classified.FinalStatusCode != 0 {
		code := v.Classified.FinalStatusCode
		status = &code
	}
	return PairRecord{
		Proxy: ProxyRef{Name: v.Proxy.Name, HTTP: v.Proxy.HTTPEndpoint, HTTPS: v.Proxy.HTTPSEndpoint},
		Site:  SiteRef{Name: v.Site.Name, URL: v.Site.URL},
		TestInfo: TestInfo{
			Timestamp:        v.CheckedAt,
			DurationMS:       v.Classified.TotalElapsedMS,
			RetriesAttempted: v.Classified.AttemptsMade,
		},
		Results: ResultInfo{
			StatusCode:     status,
			StatusOK:       v.StatusOK,
			LatencyOK:      v.LatencyOK,
			OverallSuccess: v.OverallSuccess,
			ErrorMessage:   v.ErrorMessage,
		},
		Thresholds: ThresholdInfo{
			MaxLatencyMS:       v.Thresholds.MaxLatencyMS,
			AllowedStatusCodes: v.Thresholds.AllowedStatusCodes,
			TimeoutSeconds:     v.Thresholds.TimeoutSeconds,
		},
	}
}

// WriteFile writes the report as indented JSON under dir with a timestamped
// name and returns the full path.
func (r *Report) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("proxyhealth-%s.json", r.GeneratedAt.Format("20060102-150405"))
	path := filepath.Join(dir, name)
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Render produces the human-readable text report.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Proxy health report %s (%s)\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Tests: %d  Passed: %d  Failed: %d  Success rate: %.2f%%  Duration: %.2fs\n\n",
		r.Summary.TotalTests, r.Summary.PassedTests, r.Summary.FailedTests,
		r.Summary.SuccessRate, r.Summary.DurationSeconds)

	if len(r.ProxySummary) > 0 {
		fmt.Fprintf(&b, "%-20s %6s %8s %6s %14s %9s\n", "PROXY", "TOTAL", "FAILURES", "SLOW", "AVG LATENCY", "SUCCESS")
		for _, ps := range r.ProxySummary {
			fmt.Fprintf(&b, "%-20s %6d %8d %6d %12.1fms %8.2f%%\n",
				ps.Proxy, ps.Total, ps.Failures, ps.Slow, ps.AvgLatencyMS, ps.SuccessRate)
		}
		b.WriteString("\n")
	}

	failures := 0
	for _, rec := range r.Results {
		if rec.Results.OverallSuccess {
			continue
		}
		if failures == 0 {
			b.WriteString("Failures:\n")
		}
		failures++
		status := "n/a"
		if rec.Results.StatusCode != nil {
			status = fmt.Sprintf("%d", *rec.Results.StatusCode)
		}
		fmt.Fprintf(&b, "  %s -> %s: status=%s latency=%dms attempts=%d  %s\n",
			rec.Proxy.Name, rec.Site.Name, status,
			rec.TestInfo.DurationMS, rec.TestInfo.RetriesAttempted,
			rec.Results.ErrorMessage)
	}
	if failures == 0 {
		b.WriteString("All pairs healthy.\n")
	}
	return b.String()
}
