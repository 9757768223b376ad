package probe

import "time"

// Request describes one probe: fetch url once, optionally through a proxy
// endpoint, within a hard wall-clock timeout. An empty ProxyEndpoint means
// connect directly.
type Request struct {
	ProxyEndpoint string
	URL           string
	ValidateCerts bool
	Timeout       time.Duration
}

// Attempt is one physical request attempt. Never mutated after creation.
// RawOutput holds the raw response preamble(s) read off the wire on success,
// or the transport diagnostic on failure.
type Attempt struct {
	AttemptNumber   int    `json:"attempt_number"`
	TransportFailed bool   `json:"transport_failed"`
	RawOutput       string `json:"raw_output"`
	ElapsedMS       int64  `json:"elapsed_ms"`
}

// ClassifiedOutcome is the classifier's view of the attempt that terminated
// the retry loop. FinalStatusCode 0 means no final HTTP response was
// observed. TransportError carries the diagnostic of the last attempt when
// TransportOK is false.
type ClassifiedOutcome struct {
	FinalStatusCode int    `json:"final_status_code,omitempty"`
	TransportOK     bool   `json:"transport_ok"`
	AttemptsMade    int    `json:"attempts_made"`
	TotalElapsedMS  int64  `json:"total_elapsed_ms"`
	TransportError  string `json:"transport_error,omitempty"`
}

// Prober performs a single attempt. The attempt number is echoed back in the
// result for diagnostics.
type Prober interface {
	Probe(attempt int, req Request) Attempt
}
