package engine

import (
	"fmt"
	"time"

	"github.com/hamed0406/proxyhealth/internal/domain"
	"github.com/hamed0406/proxyhealth/internal/probe"
)

// Evaluate applies the resolved thresholds to a classified outcome and
// produces the pair's verdict. Pure function; latency is judged
// independently of status so a fast failure and a slow success stay
// distinguishable.
func Evaluate(pxy domain.ProxyTarget, site domain.SiteTarget, out probe.ClassifiedOutcome, th domain.EffectiveThresholds, checkedAt time.Time) domain.Verdict {
	statusOK := out.TransportOK && out.FinalStatusCode != 0 && th.StatusAllowed(out.FinalStatusCode)
	latencyOK := out.TotalElapsedMS <= th.MaxLatencyMS

	v := domain.Verdict{
		Proxy:          pxy,
		Site:           site,
		Classified:     out,
		Thresholds:     th,
		StatusOK:       statusOK,
		LatencyOK:      latencyOK,
		OverallSuccess: out.TransportOK && statusOK && latencyOK,
		CheckedAt:      checkedAt,
	}

	// Sub-conditions are checked in a fixed order so the message is
	// deterministic for a given outcome.
	switch {
	case !out.TransportOK:
		msg := out.TransportError
		if msg == "" {
			msg = "transport failure"
		}
		v.ErrorMessage = msg
	case !statusOK:
		v.ErrorMessage = fmt.Sprintf("status code %d not in allowed set %v",
			out.FinalStatusCode, th.AllowedStatusCodes)
	case !latencyOK:
		v.ErrorMessage = fmt.Sprintf("latency %dms exceeds ceiling %dms",
			out.TotalElapsedMS, th.MaxLatencyMS)
	}
	return v
}
