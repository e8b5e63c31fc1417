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

package accept

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/mhqz/ouinet-injector/ierr"
	"github.com/mhqz/ouinet-injector/protocol"
)

type tcpTransport struct {
	ln   net.Listener
	kind protocol.Transport
}

func newTCPTransport(addr string, tlsConfig *tls.Config) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ierr.ErrTransport.Error(err)
	}

	kind := protocol.TransportTCP
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
		kind = protocol.TransportTCPTLS
	}

	return &tcpTransport{ln: ln, kind: kind}, nil
}

func (t *tcpTransport) Protocol() protocol.Transport { return t.kind }

func (t *tcpTransport) Addr() net.Addr { return t.ln.Addr() }

func (t *tcpTransport) Accept(ctx context.Context) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		c, err := t.ln.Accept()
		ch <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ierr.ErrCanceled.Error(ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, ierr.ErrTransport.Error(r.err)
		}
		return r.conn, nil
	}
}

func (t *tcpTransport) Close() error {
	return t.ln.Close()
}
