package memory

import (
	"context"
	"testing"

	"github.com/hamed0406/proxyhealth/internal/report"
)

func rep(id string) *report.Report {
	return &report.Report{RunID: id}
}

func TestStore_LatestAndRecent(t *testing.T) {
	ctx := context.Background()
	s := New(10)

	if got, err := s.Latest(ctx); err != nil || got != nil {
		t.Fatalf("empty store must return nil, nil; got %v, %v", got, err)
	}

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := s.Put(ctx, rep(id)); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.Latest(ctx)
	if err != nil || latest.RunID != "r3" {
		t.Fatalf("want r3, got %+v, %v", latest, err)
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Fatalf("want 2 recent, got %d, %v", len(recent), err)
	}
	if recent[0].RunID != "r3" || recent[1].RunID != "r2" {
		t.Fatalf("want newest first, got %s %s", recent[0].RunID, recent[1].RunID)
	}
}

func TestStore_CapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(2)
	for _, id := range []string{"r1", "r2", "r3"} {
		_ = s.Put(ctx, rep(id))
	}
	recent, _ := s.Recent(ctx, 10)
	if len(recent) != 2 || recent[1].RunID != "r2" {
		t.Fatalf("oldest must be evicted: %+v", recent)
	}
}
