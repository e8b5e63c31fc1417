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

// Package forward implements the byte-accurate streaming splice between
// an origin connection and a client connection (spec §4.D). The caller
// has already written the request to the origin; Forward reads the
// response head back and hands it to a caller-supplied transform,
// streams the body in bounded chunks through a data transform, and (for
// chunked outgoing framing) writes the terminating zero-size chunk and
// a trailer generated from a trailer transform once the body ends.
//
// The forwarder never buffers a whole body, never reorders or drops a
// byte, and never turns a body error into a truncated "success": once
// the head has been written, any read failure stops writing without a
// clean terminator and surfaces an error, and the caller closes the
// client connection.
package forward

import (
	"bufio"
	"io"
	"net/http"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/httpmsg"
	"github.com/mhqz/ouinet-injector/ierr"
)

// MaxChunk bounds the size of a single buffer handed to a data
// transform and written onward, keeping memory bounded regardless of
// body size (spec §4.D phase 2).
const MaxChunk = 64 * 1024

// HeadXform inspects the response head read from the origin and
// returns the head to write to the client, including the outgoing
// framing discipline (which need not match the origin's).
type HeadXform func(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error)

// DataXform observes (and may rewrite in place) one body chunk. It must
// not change the chunk's length, reorder it, or drop it -- only the
// identity transform and a hash-accumulating transform are used by this
// repository.
type DataXform func(chunk []byte)

// TrailerXform builds the outgoing trailer fields from the trailer
// fields read from the origin (frequently empty).
type TrailerXform func(in http.Header) http.Header

// IdentityData is a DataXform that observes nothing.
func IdentityData([]byte) {}

// IdentityTrailer is a TrailerXform that passes the origin's trailer
// through unchanged.
func IdentityTrailer(in http.Header) http.Header { return in }

// Result reports what Forward actually wrote, for logging and metrics.
type Result struct {
	Head        *httpmsg.ResponseHead
	BodyBytes   int64
	WroteChunks bool
}

// Forward reads one response head and body from origin, applies the
// three transforms, and writes the result to sink. It returns once the
// full response (including any trailer) has been written, or on the
// first unrecoverable error.
func Forward(
	origin *bufio.Reader,
	sink *bufio.Writer,
	headXform HeadXform,
	dataXform DataXform,
	trailerXform TrailerXform,
	tok *cancel.Token,
) (*Result, error) {
	if tok != nil && tok.Fired() {
		return nil, ierr.ErrCanceled.Error()
	}

	inHead, err := httpmsg.ReadResponseHead(origin)
	if err != nil {
		return nil, ierr.ErrFraming.Error(err)
	}

	outHead, err := headXform(inHead)
	if err != nil {
		return nil, err
	}

	if err := outHead.WriteStatusAndHeader(sink); err != nil {
		return nil, ierr.ErrTransport.Error(err)
	}

	n, err := streamBody(origin, sink, inHead, outHead, dataXform, tok)
	if err != nil {
		// The head is already on the wire: do not attempt to recover,
		// just stop writing and surface the error. The connection to
		// the client must be torn down by the caller, never reused.
		return &Result{Head: outHead, BodyBytes: n}, err
	}

	wroteTrailer := outHead.Framing == httpmsg.FramingChunked
	if wroteTrailer {
		trailerIn, err := readTrailer(origin, inHead)
		if err != nil {
			return &Result{Head: outHead, BodyBytes: n}, err
		}
		trailerOut := trailerXform(trailerIn)
		if _, err := sink.WriteString("0\r\n"); err != nil {
			return &Result{Head: outHead, BodyBytes: n}, ierr.ErrTransport.Error(err)
		}
		if err := httpmsg.WriteTrailer(sink, trailerOut); err != nil {
			return &Result{Head: outHead, BodyBytes: n}, ierr.ErrTransport.Error(err)
		}
	}

	if err := sink.Flush(); err != nil {
		return &Result{Head: outHead, BodyBytes: n}, ierr.ErrTransport.Error(err)
	}

	return &Result{Head: outHead, BodyBytes: n, WroteChunks: wroteTrailer}, nil
}

func streamBody(origin *bufio.Reader, sink *bufio.Writer, inHead, outHead *httpmsg.ResponseHead, xform DataXform, tok *cancel.Token) (int64, error) {
	switch inHead.Framing {
	case httpmsg.FramingChunked:
		return streamChunkedIn(origin, sink, outHead, xform, tok)
	case httpmsg.FramingLength:
		return streamLengthIn(origin, sink, inHead.Length, outHead, xform, tok)
	default:
		return streamUntilEOF(origin, sink, outHead, xform, tok)
	}
}

// writeChunk re-frames one observed chunk according to the chosen
// outgoing discipline.
func writeChunk(sink *bufio.Writer, outHead *httpmsg.ResponseHead, chunk []byte) error {
	if outHead.Framing == httpmsg.FramingChunked {
		if _, err := writeChunkedFrame(sink, chunk); err != nil {
			return err
		}
		return nil
	}
	_, err := sink.Write(chunk)
	return err
}

func writeChunkedFrame(w *bufio.Writer, chunk []byte) (int, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	if _, err := w.WriteString(hexLen(len(chunk))); err != nil {
		return 0, err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return 0, err
	}
	if _, err := w.Write(chunk); err != nil {
		return 0, err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return 0, err
	}
	return len(chunk), nil
}

func hexLen(n int) string {
	const hex = "0123456789abcdef"
	if n == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = hex[n&0xf]
		n >>= 4
	}
	return string(buf[i:])
}

func streamLengthIn(origin *bufio.Reader, sink *bufio.Writer, length int64, outHead *httpmsg.ResponseHead, xform DataXform, tok *cancel.Token) (int64, error) {
	var total int64
	buf := make([]byte, MaxChunk)

	for total < length {
		if tok != nil && tok.Fired() {
			return total, ierr.ErrCanceled.Error()
		}

		want := int64(len(buf))
		if remain := length - total; remain < want {
			want = remain
		}

		n, err := io.ReadFull(origin, buf[:want])
		if n > 0 {
			xform(buf[:n])
			if werr := writeChunk(sink, outHead, buf[:n]); werr != nil {
				return total, ierr.ErrTransport.Error(werr)
			}
			total += int64(n)
		}
		if err != nil {
			return total, ierr.ErrTransport.Error(err)
		}
	}

	return total, nil
}

func streamUntilEOF(origin *bufio.Reader, sink *bufio.Writer, outHead *httpmsg.ResponseHead, xform DataXform, tok *cancel.Token) (int64, error) {
	var total int64
	buf := make([]byte, MaxChunk)

	for {
		if tok != nil && tok.Fired() {
			return total, ierr.ErrCanceled.Error()
		}

		n, err := origin.Read(buf)
		if n > 0 {
			xform(buf[:n])
			if werr := writeChunk(sink, outHead, buf[:n]); werr != nil {
				return total, ierr.ErrTransport.Error(werr)
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, ierr.ErrTransport.Error(err)
		}
	}
}

func streamChunkedIn(origin *bufio.Reader, sink *bufio.Writer, outHead *httpmsg.ResponseHead, xform DataXform, tok *cancel.Token) (int64, error) {
	var total int64

	for {
		if tok != nil && tok.Fired() {
			return total, ierr.ErrCanceled.Error()
		}

		size, err := readChunkSizeLine(origin)
		if err != nil {
			return total, ierr.ErrFraming.Error(err)
		}
		if size == 0 {
			// Nothing past the 0-size line is consumed here: Forward
			// reads the trailer section (and its closing blank line)
			// with readTrailer when the outgoing framing is chunked.
			return total, nil
		}

		remaining := size
		for remaining > 0 {
			want := remaining
			if want > MaxChunk {
				want = MaxChunk
			}
			buf := make([]byte, want)
			n, err := io.ReadFull(origin, buf)
			if n > 0 {
				xform(buf[:n])
				if werr := writeChunk(sink, outHead, buf[:n]); werr != nil {
					return total, ierr.ErrTransport.Error(werr)
				}
				total += int64(n)
				remaining -= n
			}
			if err != nil {
				return total, ierr.ErrTransport.Error(err)
			}
		}

		if _, err := readCRLF(origin); err != nil {
			return total, ierr.ErrFraming.Error(err)
		}
	}
}

func readChunkSizeLine(r *bufio.Reader) (int, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	return parseChunkSize(line)
}

func parseChunkSize(line string) (int, error) {
	// Strip chunk extensions (";name=value") and the CRLF.
	for i := 0; i < len(line); i++ {
		if line[i] == ';' || line[i] == '\r' || line[i] == '\n' {
			line = line[:i]
			break
		}
	}
	n := 0
	if len(line) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			return 0, io.ErrUnexpectedEOF
		}
		n = n*16 + v
	}
	return n, nil
}

func readCRLF(r *bufio.Reader) (int, error) {
	b, err := r.ReadString('\n')
	return len(b), err
}

func readTrailer(origin *bufio.Reader, inHead *httpmsg.ResponseHead) (http.Header, error) {
	if inHead.Framing != httpmsg.FramingChunked {
		return http.Header{}, nil
	}

	hdr := http.Header{}
	for {
		line, err := origin.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := trimCRLF(line)
		if trimmed == "" {
			return hdr, nil
		}
		key, val, ok := splitHeaderLine(trimmed)
		if ok {
			hdr.Add(key, val)
		}
	}
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func splitHeaderLine(line string) (key, val string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == ':' {
			key = line[:i]
			val = line[i+1:]
			for len(val) > 0 && val[0] == ' ' {
				val = val[1:]
			}
			return key, val, true
		}
	}
	return "", "", false
}
