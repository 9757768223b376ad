package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/proxyhealth/internal/domain"
	"github.com/hamed0406/proxyhealth/internal/httpapi/middleware"
	"github.com/hamed0406/proxyhealth/internal/repo/memory"
	"github.com/hamed0406/proxyhealth/internal/report"
)

func fakeRun(id string) RunFunc {
	return func(ctx context.Context) *report.Report {
		return &report.Report{
			RunID:   id,
			Summary: domain.RunSummary{TotalTests: 2, PassedTests: 2, SuccessRate: 100},
		}
	}
}

func newTestServer(keys middleware.Keys) *Server {
	return NewServer(zap.NewNop(), memory.New(8), fakeRun("run-1"), keys, 0, 0)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(middleware.Keys{})
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
}

func TestTriggerRun_StoresAndReturnsReport(t *testing.T) {
	srv := newTestServer(middleware.Keys{})
	router := srv.Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rep report.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.RunID != "run-1" || rep.Summary.SuccessRate != 100 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	// the run must now be served as latest
	rr2 := httptest.NewRecorder()
	router.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	if rr2.Code != http.StatusOK {
		t.Fatalf("want 200 for latest, got %d", rr2.Code)
	}
}

func TestLatestRun_404BeforeFirstRun(t *testing.T) {
	srv := newTestServer(middleware.Keys{})
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}
}

func TestTriggerRun_RequiresAdminKey(t *testing.T) {
	keys := middleware.Keys{Public: []string{"pub"}, Admin: []string{"adm"}}
	srv := newTestServer(keys)
	router := srv.Router()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	req.Header.Set("X-API-Key", "pub")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("public key must not trigger runs, got %d", rr.Code)
	}

	rr2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	req2.Header.Set("X-API-Key", "adm")
	router.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("admin key must trigger runs, got %d", rr2.Code)
	}
}

func TestListRuns_HonorsLimit(t *testing.T) {
	srv := newTestServer(middleware.Keys{})
	router := srv.Router()
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs?limit=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	var reps []report.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &reps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reps) != 2 {
		t.Fatalf("want 2 runs, got %d", len(reps))
	}
}
