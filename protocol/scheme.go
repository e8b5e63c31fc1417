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

// Package protocol defines the small uint8-backed enumerations (each
// with a String method) used to
// classify origin schemes and listener transports, in the style of the
// teacher's network/protocol package.
package protocol

import "strings"

// Scheme is the origin scheme half of a pool.Key.
type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeHTTP
	SchemeHTTPS
)

func (s Scheme) String() string {
	switch s {
	case SchemeHTTP:
		return "http"
	case SchemeHTTPS:
		return "https"
	default:
		return "unknown"
	}
}

// ParseScheme returns the Scheme for a URL scheme string.
func ParseScheme(s string) Scheme {
	switch strings.ToLower(s) {
	case "http":
		return SchemeHTTP
	case "https":
		return SchemeHTTPS
	default:
		return SchemeUnknown
	}
}

// DefaultPort returns the scheme's conventional port.
func (s Scheme) DefaultPort() string {
	switch s {
	case SchemeHTTPS:
		return "443"
	default:
		return "80"
	}
}
