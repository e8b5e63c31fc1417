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

package server

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/forward"
	"github.com/mhqz/ouinet-injector/httpmsg"
	"github.com/mhqz/ouinet-injector/ierr"
	"github.com/mhqz/ouinet-injector/inject"
	"github.com/mhqz/ouinet-injector/pool"
	"github.com/mhqz/ouinet-injector/protocol"
)

// handleRemote implements spec §4.F.3: plain-proxy mode when the
// request carries no X-Ouinet-Version header, version-gated injection
// mode otherwise. It returns whether the client connection should stay
// open for another request.
func (s *Server) handleRemote(ctx context.Context, r *bufio.Reader, w *bufio.Writer, req *httpmsg.Request, tok *cancel.Token) bool {
	outcome := negotiateVersion(req.Header.Get("X-Ouinet-Version"))

	if outcome == versionTooLow || outcome == versionTooHigh {
		s.writeVersionError(w, outcome)
		return req.KeepAlive()
	}

	scheme, host, port := targetParts(req)
	key := pool.Key{Scheme: scheme, Host: host, Port: port}
	target := net.JoinHostPort(host, port)

	origin, err := s.acquireOrigin(ctx, scheme, target, host, key)
	if err != nil {
		if ierr.As(err, ierr.ErrBlocked) {
			writeIllegalTargetError(w, host)
		} else {
			writeStatusLine(w, 502, "Bad Gateway")
			w.WriteString("Content-Length: 0\r\n\r\n")
			_ = w.Flush()
		}
		return req.KeepAlive()
	}

	if err := writeOriginRequest(origin, req); err != nil {
		_ = origin.Close()
		writeStatusLine(w, 502, "Bad Gateway")
		w.WriteString("Content-Length: 0\r\n\r\n")
		_ = w.Flush()
		return req.KeepAlive()
	}

	originReader := bufio.NewReader(origin)

	var headXform forward.HeadXform
	var dataXform forward.DataXform
	var trailerXform forward.TrailerXform

	if outcome == versionMatch {
		injCtx, err := inject.NewContext(s.Signer, req.RawTarget, time.Now().Unix())
		if err != nil {
			_ = origin.Close()
			writeStatusLine(w, 500, "Internal Server Error")
			w.WriteString("Content-Length: 0\r\n\r\n")
			_ = w.Flush()
			return req.KeepAlive()
		}
		headXform = injCtx.HeadXform
		dataXform = injCtx.DataXform
		trailerXform = injCtx.TrailerXform
	} else {
		headXform = stripInternalHeaders
		dataXform = forward.IdentityData
		trailerXform = forward.IdentityTrailer
	}

	res, err := forward.Forward(originReader, w, headXform, dataXform, trailerXform, tok)
	if err != nil {
		_ = origin.Close()
		return false
	}

	if req.KeepAlive() && res.Head.KeepAlive() {
		s.Pool.Put(key, origin)
		return true
	}

	_ = origin.Close()
	return false
}

func (s *Server) acquireOrigin(ctx context.Context, scheme protocol.Scheme, target, host string, key pool.Key) (net.Conn, error) {
	if c, ok := s.Pool.Get(key); ok {
		return c.Conn, nil
	}

	if scheme == protocol.SchemeHTTPS {
		return s.Dialer.DialTLS(ctx, target, host)
	}

	return s.Dialer.DialPlain(ctx, target)
}

func targetParts(req *httpmsg.Request) (protocol.Scheme, string, string) {
	if req.URL.IsAbs() {
		scheme := protocol.ParseScheme(req.URL.Scheme)
		host := req.URL.Hostname()
		port := req.URL.Port()
		if port == "" {
			port = scheme.DefaultPort()
		}
		return scheme, host, port
	}

	host := req.Host
	port := protocol.SchemeHTTP.DefaultPort()
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, port = h, p
	}
	return protocol.SchemeHTTP, host, port
}

// writeOriginRequest writes the request line, sanitized headers, and
// body to origin, mirroring the framing the client used.
func writeOriginRequest(origin net.Conn, req *httpmsg.Request) error {
	w := bufio.NewWriter(origin)

	hdr := req.Header.Clone()
	httpmsg.SanitizeForForward(hdr)
	hdr.Set("Host", req.Host)
	hdr.Set("Connection", "keep-alive")
	chunked := len(req.TransferEncoding) > 0 && req.TransferEncoding[0] == "chunked"
	if chunked {
		hdr.Set("Transfer-Encoding", "chunked")
	}

	if _, err := w.WriteString(req.Method + " " + req.URL.RequestURI() + " HTTP/1.1\r\n"); err != nil {
		return err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			if _, err := w.WriteString(k + ": " + v + "\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}

	if req.Body != nil {
		buf := make([]byte, 32*1024)
		for {
			n, rerr := req.Body.Read(buf)
			if n > 0 {
				if chunked {
					_, _ = w.WriteString(strconv.FormatInt(int64(n), 16) + "\r\n")
				}
				if _, werr := w.Write(buf[:n]); werr != nil {
					return werr
				}
				if chunked {
					_, _ = w.WriteString("\r\n")
				}
			}
			if rerr != nil {
				break
			}
		}
		if chunked {
			_, _ = w.WriteString("0\r\n\r\n")
		}
	}

	return w.Flush()
}

// stripInternalHeaders is the plain-proxy mode head transform: pass the
// response through unchanged except for stripping any Ouinet-internal
// fields an untrusted origin might have injected (spec §4.F.3).
func stripInternalHeaders(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error) {
	hdr := in.Header.Clone()
	httpmsg.SanitizeOuinetOnly(hdr)
	out := *in
	out.Header = hdr
	return &out, nil
}

// writeIllegalTargetError answers a blocked target (loopback, literal or
// resolved) with 400 rather than the 502 reserved for origins that were
// legal to dial but unreachable or TLS-broken.
func writeIllegalTargetError(w *bufio.Writer, host string) {
	body := "Illegal target host: " + host
	writeStatusLine(w, 400, "Bad Request")
	w.WriteString("Content-Type: text/plain\r\n")
	w.WriteString("Content-Length: " + itoa(len(body)) + "\r\n\r\n")
	w.WriteString(body)
	_ = w.Flush()
}

func (s *Server) writeVersionError(w *bufio.Writer, outcome versionOutcome) {
	writeStatusLine(w, 400, "Bad Request")
	w.WriteString("X-Ouinet-HTTP-Status: " + outcome.statusDiscriminator() + "\r\n")
	w.WriteString("Content-Length: 0\r\n\r\n")
	_ = w.Flush()
}
