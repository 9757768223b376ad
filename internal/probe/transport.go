package probe

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// maxPreambleBytes caps how much response header text one attempt retains.
const maxPreambleBytes = 64 << 10

// Transport issues one raw HTTP(S) request per Probe call, through an HTTP
// proxy, a SOCKS5 proxy, or directly. It speaks HTTP/1.1 on a plain socket
// and keeps the raw response preamble(s) so the classifier can see both a
// CONNECT tunnel's "200 Connection established" and the upstream site's real
// response. It never returns an error: all failure modes are encoded in the
// returned Attempt.
type Transport struct{}

func NewTransport() *Transport { return &Transport{} }

func (t *Transport) Probe(attempt int, req Request) Attempt {
	start := time.Now()
	raw, err := fetch(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return Attempt{
			AttemptNumber:   attempt,
			TransportFailed: true,
			RawOutput:       err.Error(),
			ElapsedMS:       elapsed,
		}
	}
	return Attempt{AttemptNumber: attempt, RawOutput: raw, ElapsedMS: elapsed}
}

func fetch(req Request) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	addr := originAddr(u, scheme)
	deadline := time.Now().Add(req.Timeout)
	d := &net.Dialer{Deadline: deadline}

	if req.ProxyEndpoint == "" {
		conn, err := d.Dial("tcp", addr)
		if err != nil {
			return "", fmt.Errorf("connect %s: %w", addr, err)
		}
		defer conn.Close()
		return requestOverConn(conn, u, req.ValidateCerts, deadline)
	}

	ep := req.ProxyEndpoint
	if !strings.Contains(ep, "://") {
		ep = "http://" + ep
	}
	pu, err := url.Parse(ep)
	if err != nil {
		return "", fmt.Errorf("parse proxy endpoint: %w", err)
	}

	switch strings.ToLower(pu.Scheme) {
	case "socks5", "socks5h":
		conn, err := dialSOCKS5(d, pu, addr, deadline)
		if err != nil {
			return "", err
		}
		defer conn.Close()
		return requestOverConn(conn, u, req.ValidateCerts, deadline)
	case "http", "https":
		return viaHTTPProxy(d, pu, u, req.ValidateCerts, deadline)
	default:
		return "", fmt.Errorf("unsupported proxy scheme %q", pu.Scheme)
	}
}

// viaHTTPProxy sends an absolute-form request for plain http targets and a
// CONNECT tunnel plus origin-form request for https targets. The tunnel
// response preamble is kept in front of the upstream response so both status
// lines are visible downstream.
func viaHTTPProxy(d *net.Dialer, pu, u *url.URL, validateCerts bool, deadline time.Time) (string, error) {
	proxyAddr := pu.Host
	if pu.Port() == "" {
		proxyAddr = net.JoinHostPort(pu.Hostname(), "3128")
	}
	conn, err := d.Dial("tcp", proxyAddr)
	if err != nil {
		return "", fmt.Errorf("connect proxy %s: %w", proxyAddr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	if u.Scheme != "https" {
		if _, err := fmt.Fprintf(conn,
			"GET %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: proxyhealth/1.0\r\nAccept: */*\r\nConnection: close\r\n\r\n",
			u.String(), u.Host); err != nil {
			return "", fmt.Errorf("write request: %w", err)
		}
		return readPreamble(bufio.NewReader(conn))
	}

	origin := originAddr(u, "https")
	if _, err := fmt.Fprintf(conn,
		"CONNECT %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: proxyhealth/1.0\r\n\r\n",
		origin, origin); err != nil {
		return "", fmt.Errorf("write connect: %w", err)
	}
	tunnel, err := readPreamble(bufio.NewReader(conn))
	if err != nil {
		return "", fmt.Errorf("proxy connect: %w", err)
	}

	var raw strings.Builder
	raw.WriteString(tunnel)

	// A non-2xx tunnel response means the proxy refused the tunnel; its
	// status line is the only response there will be.
	if code, ok := finalStatusIn(tunnel); !ok || code/100 != 2 {
		return raw.String(), nil
	}

	rest, err := requestOverConn(conn, u, validateCerts, deadline)
	if err != nil {
		return "", err
	}
	raw.WriteString(rest)
	return raw.String(), nil
}

// requestOverConn performs the TLS handshake when needed, writes one
// origin-form GET, and reads the response preamble. conn deadlines bound the
// whole exchange.
func requestOverConn(conn net.Conn, u *url.URL, validateCerts bool, deadline time.Time) (string, error) {
	_ = conn.SetDeadline(deadline)
	if u.Scheme == "https" {
		tconn := tls.Client(conn, &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: !validateCerts,
			MinVersion:         tls.VersionTLS12,
		})
		if err := tconn.Handshake(); err != nil {
			return "", fmt.Errorf("tls handshake: %w", err)
		}
		conn = tconn
	}
	if _, err := fmt.Fprintf(conn,
		"GET %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: proxyhealth/1.0\r\nAccept: */*\r\nConnection: close\r\n\r\n",
		u.RequestURI(), u.Host); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}
	return readPreamble(bufio.NewReader(conn))
}

// deadlineDialer stamps the per-attempt deadline on the raw conn before the
// SOCKS5 negotiation runs on it. net.Dialer.Deadline only bounds the TCP
// connect; without this, a proxy that accepts the connection but never
// answers the handshake would stall the attempt past its timeout.
type deadlineDialer struct {
	d        *net.Dialer
	deadline time.Time
}

func (dd deadlineDialer) Dial(network, addr string) (net.Conn, error) {
	conn, err := dd.d.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(dd.deadline)
	return conn, nil
}

func dialSOCKS5(d *net.Dialer, pu *url.URL, addr string, deadline time.Time) (net.Conn, error) {
	var auth *proxy.Auth
	if pu.User != nil {
		auth = &proxy.Auth{User: pu.User.Username()}
		if p, ok := pu.User.Password(); ok {
			auth.Password = p
		}
	}
	dialer, err := proxy.SOCKS5("tcp", pu.Host, auth, deadlineDialer{d: d, deadline: deadline})
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("socks5 connect %s: %w", addr, err)
	}
	return conn, nil
}

// readPreamble reads the status line and headers up to the terminating blank
// line. A connection that closes after delivering some header text still
// yields what was read; the classifier decides whether it is usable.
func readPreamble(br *bufio.Reader) (string, error) {
	var b strings.Builder
	for b.Len() < maxPreambleBytes {
		line, err := br.ReadString('\n')
		b.WriteString(line)
		if err != nil {
			if b.Len() > 0 && err == io.EOF {
				return b.String(), nil
			}
			return "", fmt.Errorf("read response: %w", err)
		}
		if line == "\r\n" || line == "\n" {
			return b.String(), nil
		}
	}
	return b.String(), nil
}

func originAddr(u *url.URL, scheme string) string {
	port := u.Port()
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
