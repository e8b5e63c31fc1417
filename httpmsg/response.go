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
	"bufio"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// Framing is the wire discipline used to delimit a response body.
type Framing uint8

const (
	FramingClose Framing = iota
	FramingLength
	FramingChunked
)

// ResponseHead is the response's status line and header fields, kept
// apart from the body so the forwarder can rewrite it (injection mode)
// or pass it through (plain-proxy mode) before committing to a framing
// discipline for the outgoing body (spec §4.D phase 1).
type ResponseHead struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	Framing    Framing
	Length     int64 // valid when Framing == FramingLength
}

// ReadResponseHead parses a response status line and header block,
// without consuming the body, and classifies its incoming framing.
func ReadResponseHead(r *bufio.Reader) (*ResponseHead, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("httpmsg: malformed status line %q", line)
	}
	statusCode, _, _ := strings.Cut(strings.TrimSpace(status), " ")
	code, err := strconv.Atoi(statusCode)
	if err != nil {
		return nil, fmt.Errorf("httpmsg: malformed status code %q", statusCode)
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, err
	}
	hdr := http.Header(mh)

	h := &ResponseHead{
		StatusCode: code,
		Status:     strings.TrimSpace(status),
		Proto:      proto,
		Header:     hdr,
	}
	h.classifyFraming()

	return h, nil
}

func (h *ResponseHead) classifyFraming() {
	if strings.EqualFold(h.Header.Get("Transfer-Encoding"), "chunked") {
		h.Framing = FramingChunked
		return
	}
	if cl := h.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			h.Framing = FramingLength
			h.Length = n
			return
		}
	}
	h.Framing = FramingClose
}

// KeepAlive reports whether the response (as received from the origin
// or as rewritten for the client) allows connection reuse.
func (h *ResponseHead) KeepAlive() bool {
	return !strings.EqualFold(h.Header.Get("Connection"), "close")
}

// WriteStatusAndHeader writes the status line and header block (without
// trailing CRLF-terminated body) to w.
func (h *ResponseHead) WriteStatusAndHeader(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %s\r\n", h.Proto, h.Status); err != nil {
		return err
	}
	return writeHeader(w, h.Header)
}

func writeHeader(w *bufio.Writer, hdr http.Header) error {
	for k, vs := range hdr {
		for _, v := range vs {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// WriteTrailer writes a trailer header block (no leading status line),
// used after the terminating "0\r\n" chunk.
func WriteTrailer(w *bufio.Writer, hdr http.Header) error {
	return writeHeader(w, hdr)
}
