package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/proxyhealth/internal/report"
)

// Store is a bounded in-memory run history. Oldest reports fall off once
// capacity is reached.
type Store struct {
	mu   sync.RWMutex
	cap  int
	runs []*report.Report
}

func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{cap: capacity}
}

func (s *Store) Put(ctx context.Context, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	if len(s.runs) > s.cap {
		s.runs = s.runs[len(s.runs)-s.cap:]
	}
	return nil
}

// Latest returns nil, nil when no run has completed yet.
func (s *Store) Latest(ctx context.Context) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return nil, nil
	}
	return s.runs[len(s.runs)-1], nil
}

// Recent returns up to n reports, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.runs) {
		n = len(s.runs)
	}
	out := make([]*report.Report, 0, n)
	for i := len(s.runs) - 1; i >= len(s.runs)-n; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}
