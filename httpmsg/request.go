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

// Package httpmsg holds the request/response data model (spec §3): a
// parsed HTTP/1.1 request with its raw target preserved for CONNECT
// classification, and a response head kept distinct from the framing
// choice so the forwarder (forward package) can decide the outgoing
// discipline independent of how the origin framed the body.
package httpmsg

import (
	"bufio"
	"net/http"
	"strings"
)

// Request wraps the standard library's parsed request together with
// the verbatim request-line target. http.ReadRequest already keeps
// enough information on req.URL to reconstruct this: CONNECT requests
// get a URL with only Host set (the authority), absolute-form requests
// get Scheme+Host+Path, and origin-form requests get only Path (with
// the Host header available separately as req.Host).
type Request struct {
	*http.Request
	RawTarget string
}

// ReadRequest parses one HTTP/1.1 request head (and leaves r positioned
// at the start of any body) from r.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	req, err := http.ReadRequest(r)
	if err != nil {
		return nil, err
	}

	return &Request{Request: req, RawTarget: rawTarget(req)}, nil
}

func rawTarget(req *http.Request) string {
	if req.Method == http.MethodConnect {
		return req.URL.Host
	}
	if req.URL.IsAbs() {
		return req.URL.String()
	}
	return req.URL.RequestURI()
}

// IsConnect reports whether the request is a CONNECT tunnel request.
func (r *Request) IsConnect() bool {
	return r.Method == http.MethodConnect
}

// IsAuthorityForm reports whether RawTarget is in authority-form
// ("host:port", no scheme, no path) -- the invariant in spec §3 is that
// this holds iff the method is CONNECT.
func (r *Request) IsAuthorityForm() bool {
	return r.IsConnect()
}

// IsInternalAPI reports whether this request addresses the injector's
// own internal API (origin-form target starting with "/", or OPTIONS)
// rather than a remote resource (spec §4.F step 2).
func (r *Request) IsInternalAPI() bool {
	if r.Method == http.MethodOptions {
		return true
	}
	return strings.HasPrefix(r.RawTarget, "/")
}

// IsHTTP11 reports whether the request line declared HTTP/1.1 or later.
// HTTP/1.0 requests are rejected outright (spec §6): the forwarder's
// chunked re-framing and Connection handling both assume 1.1 semantics.
func (r *Request) IsHTTP11() bool {
	return r.ProtoAtLeast(1, 1)
}

// KeepAlive reports whether the request allows the connection to be
// reused after the response completes.
func (r *Request) KeepAlive() bool {
	return !r.Close && (r.ProtoAtLeast(1, 1) || strings.EqualFold(r.Header.Get("Connection"), "keep-alive"))
}
