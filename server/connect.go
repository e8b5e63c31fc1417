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
	"context"
	"io"
	"net"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/httpmsg"
)

// handleConnect implements spec §4.F.1: dial the tunnel target, reply
// 200 with an empty body on success (400 on failure), then splice the
// raw bytes in both directions until either side closes or tok fires.
func (s *Server) handleConnect(ctx context.Context, client net.Conn, req *httpmsg.Request, tok *cancel.Token) {
	target := dialer.FormatHostPort(req.RawTarget, "443")

	origin, err := s.Dialer.DialConnect(ctx, target)
	if err != nil {
		_, _ = client.Write([]byte("HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\n" + err.Error()))
		return
	}
	defer origin.Close()

	if _, err := client.Write([]byte("HTTP/1.1 200 OK\r\n\r\n")); err != nil {
		return
	}

	splice(client, origin, tok)
}

// splice runs a full-duplex byte copy between a and b until either
// side errors/closes or tok fires, then ensures both are unblocked.
func splice(a, b net.Conn, tok *cancel.Token) {
	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(a, b)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(b, a)
		done <- struct{}{}
	}()

	slot := tok.Register(func() {
		_ = a.Close()
		_ = b.Close()
	})
	defer tok.Drop(slot)

	<-done
	_ = a.Close()
	_ = b.Close()
	<-done
}
