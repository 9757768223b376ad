package repo

import (
	"context"

	"github.com/hamed0406/proxyhealth/internal/report"
)

// RunStore keeps recent run reports for the API to serve. It is in-process
// state only; the engine itself stays a stateless batch and nothing survives
// a restart.
type RunStore interface {
	Put(ctx context.Context, r *report.Report) error
	Latest(ctx context.Context) (*report.Report, error)
	Recent(ctx context.Context, n int) ([]*report.Report, error)
}
