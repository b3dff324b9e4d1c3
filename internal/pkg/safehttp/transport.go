// Package safehttp builds HTTP clients that refuse to reach private networks.
package safehttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrPrivateAddress is returned when a connection resolves to a loopback,
// private or link-local address.
var ErrPrivateAddress = errors.New("safehttp: private address denied")

const dialTimeout = 5 * time.Second

// NewTransport returns a transport whose dialer rejects private peers. The
// check runs on the connected address, so DNS rebinding cannot bypass it.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &http.Transport{
		Proxy: nil,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			if err := CheckIP(net.ParseIP(host)); err != nil {
				conn.Close()
				return nil, fmt.Errorf("dial %s: %w", addr, err)
			}
			return conn, nil
		},
		TLSHandshakeTimeout: dialTimeout,
	}
}

// NewClient returns a client using NewTransport with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: NewTransport()}
}

// CheckIP reports whether ip may be contacted.
func CheckIP(ip net.IP) error {
	if ip == nil {
		return fmt.Errorf("safehttp: unparseable remote address")
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}
