package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultProbeTimeout bounds the SOCKS5 handshake in CheckProxy.
// It is a connectivity check only, so it is kept short.
const DefaultProbeTimeout = 2 * time.Second

// maxRedirects limits redirects followed by backend clients.
const maxRedirects = 5

// Options configures NewHTTPClient.
type Options struct {
	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// Empty means direct connections.
	ProxyAddress string

	// Timeout is an overall ceiling for a single HTTP exchange. Backend
	// calls carry their own shorter deadlines through the context, so this
	// only guards against a missing deadline. Zero disables it.
	Timeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string
}

// NewHTTPClient returns an HTTP client for generation backends.
//
// The transport keeps a small idle pool per host: a run talks to a handful
// of endpoints sequentially, so large pools only hold sockets open.
func NewHTTPClient(opts Options) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if opts.ProxyAddress != "" {
		dialer, err := socksDialer(opts.ProxyAddress)
		if err != nil {
			return nil, err
		}
		// The SOCKS5 proxy replaces any HTTP(S)_PROXY from the environment.
		transport.Proxy = nil
		transport.DialContext = dialer
	}

	var rt http.RoundTripper = transport
	if opts.UserAgent != "" {
		rt = &headerTransport{base: transport, headers: map[string]string{"User-Agent": opts.UserAgent}}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// ProxyFromEnv returns the SOCKS5 proxy address from SEGGY_SOCKS_PROXY,
// falling back to ALL_PROXY when it carries a socks5:// URL.
func ProxyFromEnv() string {
	if v := os.Getenv("SEGGY_SOCKS_PROXY"); v != "" {
		return v
	}
	const scheme = "socks5://"
	if v := os.Getenv("ALL_PROXY"); len(v) > len(scheme) && v[:len(scheme)] == scheme {
		return v[len(scheme):]
	}
	return ""
}

// socksDialer returns a DialContext function tunnelling through address.
func socksDialer(address string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if !isValidProxyAddress(address) {
		return nil, ErrInvalidProxyAddress
	}

	// Egress proxies here are local sidecars; no SOCKS auth is negotiated.
	d, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	// Fallback for dialers without context support. The dial may outlive ctx.
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			ch <- result{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

// isValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5CmdConnect   = 0x01
	socks5AddrTypeName = 0x03
)

// probeHost is the CONNECT target used by CheckProxy. The proxy only has to
// answer the request; whether the upstream connection succeeds is irrelevant.
const probeHost = "openrouter.ai"

// CheckProxy performs a SOCKS5 greeting and CONNECT exchange against address
// and reports whether it behaves like a SOCKS5 proxy.
func CheckProxy(ctx context.Context, address string) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, no authentication.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}
	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeName, byte(len(probeHost))}
	req = append(req, probeHost...)
	req = append(req, 0x01, 0xBB) // 443
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code counts; only the framing matters.
	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		return readFailure(err)
	}
	if head[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// readFailure classifies a failed read during the handshake.
func readFailure(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// headerTransport sets static headers on every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}
