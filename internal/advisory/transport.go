package advisory

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// NewHTTPClient creates the HTTP client used to reach advisory providers.
//
// When proxyAddress is non-empty ("host:port"), every connection goes
// through that SOCKS5 proxy. The timeout is applied to the whole request
// as a backstop; callers normally bound each call with a context deadline
// as well.
//
// Design decision: We don't connect to the proxy here. Creating the client
// must work while the proxy is still starting, and a dead proxy shows up as
// a network outcome on the first query instead of a startup failure.
func NewHTTPClient(timeout time.Duration, proxyAddress string) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport %T", http.DefaultTransport)
	}
	transport = transport.Clone()

	if proxyAddress != "" {
		if !isValidProxyAddress(proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}

		// Proxy authentication is not supported; local SOCKS forwarders don't need it.
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer(dialer)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// contextDialer adapts a proxy.Dialer to the DialContext signature.
// The SOCKS5 dialer from x/net implements proxy.ContextDialer; other
// dialers are wrapped so that context cancellation still returns promptly.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			// The dial may still complete; close the connection when it does.
			go func() {
				if result := <-resultCh; result.conn != nil {
					_ = result.conn.Close() //nolint:errcheck // best-effort cleanup
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return portNum >= 1 && portNum <= 65535
}
