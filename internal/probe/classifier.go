package probe

import (
	"regexp"
	"strconv"
)

var statusLineRE = regexp.MustCompile(`HTTP/\d(?:\.\d)?\s+(\d{3})`)

// Classify decides whether an attempt succeeded at the transport layer and
// isolates the final HTTP status. When a request is tunneled through a
// forward proxy the raw output can contain two concatenated response
// preambles — the tunnel's "200 Connection established" followed by the
// upstream site's real response — so the last status-line occurrence is
// authoritative. With no tunnel in play there is a single occurrence and the
// same rule picks it.
//
// A "successful" transport that produced no parseable status line is treated
// as a transport failure, never as an optimistic success.
func Classify(a Attempt) (finalStatus int, transportOK bool) {
	if a.TransportFailed {
		return 0, false
	}
	return finalStatusIn(a.RawOutput)
}

func finalStatusIn(raw string) (int, bool) {
	m := statusLineRE.FindAllStringSubmatch(raw, -1)
	if len(m) == 0 {
		return 0, false
	}
	code, err := strconv.Atoi(m[len(m)-1][1])
	if err != nil || code == 0 {
		return 0, false
	}
	return code, true
}
