package probe

import (
	"context"
	"time"
)

// Runner wraps a prober in a bounded retry loop with a fixed inter-attempt
// delay. Attempts run strictly sequentially; concurrent retries would
// corrupt latency semantics and hammer the proxy.
type Runner struct {
	Prober Prober
	Delay  time.Duration
}

// Run executes up to retries+1 attempts and returns the outcome of the last
// attempt made, with AttemptsMade reflecting the true count.
//
// The loop stops as soon as an attempt classifies cleanly (transport ok and
// a final status code present), even if that status will fail the threshold
// evaluation later: retries exist to recover from transport flakiness, not
// to wait out real upstream errors.
func (r *Runner) Run(ctx context.Context, req Request, retries int) ClassifiedOutcome {
	attempts := retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var out ClassifiedOutcome
	for i := 1; i <= attempts; i++ {
		att := r.Prober.Probe(i, req)
		code, ok := Classify(att)
		out = ClassifiedOutcome{
			FinalStatusCode: code,
			TransportOK:     ok,
			AttemptsMade:    i,
			TotalElapsedMS:  att.ElapsedMS,
		}
		if ok {
			return out
		}
		out.TransportError = transportReason(att)
		if i < attempts {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(r.Delay):
			}
		}
	}
	return out
}

func transportReason(a Attempt) string {
	if a.TransportFailed {
		return a.RawOutput
	}
	return "no HTTP status line found in response"
}
