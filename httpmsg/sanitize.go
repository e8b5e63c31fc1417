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

package httpmsg

import (
	"net/http"
	"strings"
)

// hopByHop lists the headers that name a single-hop property of the
// connection and must never be forwarded to the next hop (spec §4.E,
// §4.F.3). Connection itself is handled separately since it can also
// name additional per-hop headers via its value.
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ouinetInternal lists request/response headers that belong to the
// injector protocol and must be stripped before a message crosses the
// origin boundary (spec §4.E): these are produced or consumed by this
// injector and have no meaning to an origin server.
var ouinetInternal = []string{
	"X-Ouinet-Version",
	"X-Ouinet-URI",
	"X-Ouinet-Injection",
	"X-Ouinet-Insert-Id",
	"X-Ouinet-Data-Size",
	"X-Ouinet-Sig0",
	"X-Ouinet-Sig1",
}

// SanitizeForForward strips hop-by-hop and injector-internal headers
// from hdr in place, together with any header named in an incoming
// Connection header.
func SanitizeForForward(hdr http.Header) {
	for _, extra := range connectionTokens(hdr) {
		hdr.Del(extra)
	}
	for _, h := range hopByHop {
		hdr.Del(h)
	}
	for _, h := range ouinetInternal {
		hdr.Del(h)
	}
}

// SanitizeOuinetOnly strips only the injector-internal headers from
// hdr, leaving hop-by-hop headers untouched. Used in plain-proxy mode
// (spec §4.F.3), where an untrusted origin must not be able to forge
// injection headers but the response is otherwise passed through as-is.
func SanitizeOuinetOnly(hdr http.Header) {
	for _, h := range ouinetInternal {
		hdr.Del(h)
	}
}

func connectionTokens(hdr http.Header) []string {
	var out []string
	for _, v := range hdr.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}
