package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Alert is one run-level notification: a headline plus the figures a
// receiver needs to triage without opening the full report.
type Alert struct {
	RunID          string
	Title          string
	Text           string
	SuccessRate    float64
	FailingProxies []string
}

type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every configured notifier and combines the
// failures; one broken channel never blocks the others.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, a Alert) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, a))
	}
	return errs
}
