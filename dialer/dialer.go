/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package dialer connects to an origin on the client's behalf (spec
// §4.B): it rejects loopback and unspecified targets, restricts CONNECT
// ports to a small allow-list, and applies a bounded timeout to the TCP
// connect and any TLS handshake.
package dialer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/mhqz/ouinet-injector/durationx"
	"github.com/mhqz/ouinet-injector/ierr"
)

// AllowedConnectPorts is the set of ports a CONNECT tunnel may target
// (spec §4.B): limiting CONNECT to common TLS/alt-HTTP ports keeps the
// injector from being used as a generic TCP relay.
var AllowedConnectPorts = map[string]bool{
	"80":   true,
	"443":  true,
	"8080": true,
	"8443": true,
}

// Resolver looks up the IP addresses behind a hostname. Satisfied by
// *net.Resolver (net.DefaultResolver); overridable so tests can dial a
// loopback-bound fixture under a hostname without weakening the
// loopback check itself.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer dials origin connections on behalf of the forwarder.
type Dialer struct {
	Timeout   durationx.Duration
	TLSConfig *tls.Config
	Resolver  Resolver
}

// New returns a Dialer with the given connect/handshake timeout and an
// optional TLS config (a nil config falls back to the system root pool,
// SNI set per call from the target host).
func New(timeout durationx.Duration, tlsConfig *tls.Config) *Dialer {
	if timeout <= 0 {
		timeout = durationx.Seconds(10)
	}
	return &Dialer{Timeout: timeout, TLSConfig: tlsConfig, Resolver: net.DefaultResolver}
}

// DialPlain opens a plain TCP connection to target ("host:port"),
// rejecting loopback/unspecified addresses, including one a hostname
// resolves to.
func (d *Dialer) DialPlain(ctx context.Context, target string) (net.Conn, error) {
	if err := d.checkTarget(ctx, target); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout.Std())
	defer cancel()

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, ierr.ErrOriginConnect.Error(err)
	}
	return conn, nil
}

// DialConnect opens the tunnel for a client CONNECT request: like
// DialPlain, but additionally enforces the CONNECT port allow-list.
func (d *Dialer) DialConnect(ctx context.Context, target string) (net.Conn, error) {
	_, port, err := net.SplitHostPort(target)
	if err != nil {
		return nil, ierr.ErrBlocked.Errorf("dialer: malformed CONNECT target %q", target)
	}
	if !AllowedConnectPorts[port] {
		return nil, ierr.ErrBlocked.Errorf("dialer: CONNECT to port %s not permitted", port)
	}
	return d.DialPlain(ctx, target)
}

// DialTLS opens a TCP connection to target and performs a TLS
// handshake with ServerName set to host, using the system CA pool
// unless d.TLSConfig overrides it.
func (d *Dialer) DialTLS(ctx context.Context, target, host string) (net.Conn, error) {
	conn, err := d.DialPlain(ctx, target)
	if err != nil {
		return nil, err
	}

	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg.ServerName = host

	tconn := tls.Client(conn, cfg)

	ctx, cancel := context.WithTimeout(ctx, d.Timeout.Std())
	defer cancel()

	if err := tconn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, ierr.ErrOriginConnect.Error(err)
	}

	return tconn, nil
}

// checkTarget rejects target if its host is a literal loopback/
// unspecified address, or a hostname that resolves to one. A hostname
// whose A/AAAA records point at 127.0.0.0/8, ::1, 0.0.0.0, or an
// IPv4-mapped loopback address is just as much an SSRF vector as
// passing the literal address, so every resolved address is checked,
// not just the first.
func (d *Dialer) checkTarget(ctx context.Context, target string) error {
	host, _, err := net.SplitHostPort(target)
	if err != nil {
		return ierr.ErrBlocked.Errorf("dialer: malformed target %q", target)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return ierr.ErrBlocked.Errorf("dialer: target %s is a loopback address", host)
		}
		return nil
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return ierr.ErrOriginConnect.Error(err)
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return ierr.ErrBlocked.Errorf("dialer: target %s resolves to loopback address %s", host, addr.IP)
		}
	}

	return nil
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsUnspecified() || isMappedLoopback(ip)
}

// isMappedLoopback reports whether ip is an IPv4-mapped IPv6 loopback
// address (::ffff:127.0.0.0/8), which net.IP.IsLoopback does not catch
// on its own for the 4-in-6 form.
func isMappedLoopback(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	return v4[0] == 127
}

// FormatHostPort joins host and port the way net.JoinHostPort does,
// tolerating a port already baked into host (as req.URL.Host gives for
// CONNECT targets).
func FormatHostPort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultPort)
}

// DialTimeoutError renders a dial-timeout message naming target and the
// configured timeout, used in diagnostic logging.
func DialTimeoutError(target string, timeout durationx.Duration) string {
	return fmt.Sprintf("dial %s: timeout after %s", target, timeout.String())
}
