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

// Package server drives the per-connection request loop (spec §4.F):
// read one request head, classify it as CONNECT, internal API, or a
// remote request, dispatch to the matching handler, and decide whether
// the connection is kept alive for another request.
package server

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/mhqz/ouinet-injector/atomicx"
	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/httpmsg"
	"github.com/mhqz/ouinet-injector/inject"
	"github.com/mhqz/ouinet-injector/logger"
	"github.com/mhqz/ouinet-injector/pool"
)

// Credential is one accepted HTTP Basic user:pass pair.
type Credential struct {
	User string
	Pass string
}

// Server holds everything a connection handler needs to serve one
// accepted client connection.
type Server struct {
	Dialer      *dialer.Dialer
	Pool        *pool.Pool
	Signer      *inject.Signer
	Credentials []Credential
	Log         *logger.Logger
	IdleTimeout time.Duration

	// Monitor backs /api/ok with a real self-check when set; a nil
	// Monitor leaves /api/ok answering 200 unconditionally.
	Monitor HealthChecker

	// credsHot and idleHot back SetCredentials/SetIdleTimeout: a config
	// reload (config.Watch) runs on its own goroutine, concurrent with
	// every connection goroutine's authenticate/Serve reads, so the
	// live values can't just be assigned over the plain fields above.
	credsHot atomicx.Value[[]Credential]
	idleHot  atomicx.Value[time.Duration]
}

// SetCredentials atomically replaces the accepted credential set,
// taking effect for every connection's next authentication check.
func (s *Server) SetCredentials(creds []Credential) {
	s.credsHot.Store(creds)
}

// SetIdleTimeout atomically replaces the per-read deadline, taking
// effect on every connection's next request read.
func (s *Server) SetIdleTimeout(d time.Duration) {
	s.idleHot.Store(d)
}

func (s *Server) effectiveCredentials() []Credential {
	if v, ok := s.credsHot.LoadOK(); ok {
		return v
	}
	return s.Credentials
}

func (s *Server) effectiveIdleTimeout() time.Duration {
	if v, ok := s.idleHot.LoadOK(); ok {
		return v
	}
	return s.IdleTimeout
}

// HealthChecker is satisfied by monitor.Checker, narrowed to the one
// method handleInternalAPI needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Serve drives the request loop for one accepted connection until the
// client disconnects, a handler declines keep-alive, or tok fires.
func (s *Server) Serve(ctx context.Context, conn net.Conn, tok *cancel.Token, connID uint64) {
	defer conn.Close()

	child := tok.Child()
	defer child.Fire()
	child.Register(func() { _ = conn.Close() })

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		if idle := s.effectiveIdleTimeout(); idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}

		req, err := httpmsg.ReadRequest(r)
		if err != nil {
			return
		}

		keepAlive := s.dispatch(ctx, conn, r, w, req, child, connID)
		if !keepAlive {
			return
		}
	}
}

// dispatch routes req to the matching handler and reports whether the
// connection should be kept open for another request.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, r *bufio.Reader, w *bufio.Writer, req *httpmsg.Request, tok *cancel.Token, connID uint64) bool {
	if !req.IsHTTP11() {
		writeStatusLine(w, 400, "Bad Request")
		w.WriteString("Content-Length: 0\r\n\r\n")
		_ = w.Flush()
		return false
	}

	switch {
	case req.IsConnect():
		s.handleConnect(ctx, conn, req, tok)
		return false // CONNECT takes over the raw connection entirely

	case req.IsInternalAPI():
		keepAlive := req.KeepAlive()
		s.handleInternalAPI(ctx, w, req)
		_ = w.Flush()
		return keepAlive

	default:
		if !s.authenticate(req) {
			writeStatusLine(w, 407, "Proxy Authentication Required")
			w.WriteString("Proxy-Authenticate: Basic realm=\"injector\"\r\n")
			w.WriteString("Content-Length: 0\r\n\r\n")
			_ = w.Flush()
			return req.KeepAlive()
		}
		return s.handleRemote(ctx, r, w, req, tok)
	}
}

func (s *Server) authenticate(req *httpmsg.Request) bool {
	creds := s.effectiveCredentials()
	if len(creds) == 0 {
		return true
	}
	user, pass, ok := req.BasicAuth()
	if !ok {
		return false
	}
	for _, c := range creds {
		if c.User == user && c.Pass == pass {
			return true
		}
	}
	return false
}

func writeStatusLine(w *bufio.Writer, code int, reason string) {
	_, _ = w.WriteString("HTTP/1.1 ")
	_, _ = w.WriteString(itoa(code))
	_, _ = w.WriteString(" ")
	_, _ = w.WriteString(reason)
	_, _ = w.WriteString("\r\n")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
