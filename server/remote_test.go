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
	"crypto/ed25519"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/durationx"
	"github.com/mhqz/ouinet-injector/inject"
	"github.com/mhqz/ouinet-injector/pool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeResolver reports "localhost" as a routable address rather than the
// real loopback it resolves to system-wide, so tests can drive a fake
// origin listening on 127.0.0.1 without tripping the loopback-target
// check. The dial itself still goes through the real OS resolver via
// net.Dialer, so the connection still lands on the loopback listener.
type fakeResolver struct{}

func (fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("203.0.113.1")}}, nil
}

// fakeOrigin accepts exactly one connection, discards the request, and
// writes body verbatim as a Content-Length response.
func fakeOrigin(body string) (addr string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(line) == "" {
				break
			}
		}

		fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

var _ = Describe("Server.Serve remote requests", func() {
	var s *Server

	BeforeEach(func() {
		d := dialer.New(durationx.Seconds(2), nil)
		d.Resolver = fakeResolver{}
		s = &Server{
			Dialer: d,
			Pool:   pool.New(),
		}
	})

	It("forwards a plain-proxy response unchanged when no version header is sent", func() {
		addr, stop := fakeOrigin("hello world")
		defer stop()

		_, portStr, err := net.SplitHostPort(addr)
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())

		client, server := net.Pipe()
		tok := cancel.New()

		go s.Serve(context.Background(), server, tok, 1)

		req := fmt.Sprintf("GET http://localhost:%d/ HTTP/1.1\r\nHost: localhost:%d\r\nConnection: close\r\n\r\n", port, port)
		_, err = client.Write([]byte(req))
		Expect(err).NotTo(HaveOccurred())

		r := bufio.NewReader(client)
		status, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(ContainSubstring("200"))

		var headerBlock strings.Builder
		for {
			line, err := r.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			headerBlock.WriteString(line)
			if strings.TrimSpace(line) == "" {
				break
			}
		}
		Expect(headerBlock.String()).To(ContainSubstring("Content-Length: 11"))

		body := make([]byte, 11)
		_, err = r.Read(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("hello world"))

		client.Close()
	})

	It("rejects an HTTP/1.0 request with 400 before classification", func() {
		client, server := net.Pipe()
		tok := cancel.New()

		go s.Serve(context.Background(), server, tok, 1)

		req := "GET / HTTP/1.0\r\nHost: example.com\r\n\r\n"
		_, err := client.Write([]byte(req))
		Expect(err).NotTo(HaveOccurred())

		r := bufio.NewReader(client)
		status, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(ContainSubstring("400"))

		client.Close()
	})

	It("answers 400 for a loopback target instead of forwarding or 502", func() {
		client, server := net.Pipe()
		tok := cancel.New()

		go s.Serve(context.Background(), server, tok, 1)

		req := "GET http://127.0.0.1:9/ HTTP/1.1\r\nHost: 127.0.0.1:9\r\nConnection: close\r\n\r\n"
		_, err := client.Write([]byte(req))
		Expect(err).NotTo(HaveOccurred())

		r := bufio.NewReader(client)
		status, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(ContainSubstring("400"))

		var full strings.Builder
		buf := make([]byte, 512)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				full.Write(buf[:n])
			}
			if rerr != nil {
				break
			}
		}
		Expect(full.String()).To(ContainSubstring("Illegal target host: 127.0.0.1"))

		client.Close()
	})

	It("rejects a request whose version is too low before contacting any origin", func() {
		client, server := net.Pipe()
		tok := cancel.New()

		go s.Serve(context.Background(), server, tok, 1)

		req := "GET http://localhost:9/ HTTP/1.1\r\nHost: localhost:9\r\nX-Ouinet-Version: 1\r\nConnection: close\r\n\r\n"
		_, err := client.Write([]byte(req))
		Expect(err).NotTo(HaveOccurred())

		r := bufio.NewReader(client)
		status, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(ContainSubstring("400"))

		var headerBlock strings.Builder
		for {
			line, err := r.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			headerBlock.WriteString(line)
			if strings.TrimSpace(line) == "" {
				break
			}
		}
		Expect(headerBlock.String()).To(ContainSubstring("X-Ouinet-HTTP-Status: version-too-low"))

		client.Close()
	})

	It("signs and chunk-reframes the response when the version matches", func() {
		addr, stop := fakeOrigin("hello")
		defer stop()

		_, portStr, err := net.SplitHostPort(addr)
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())

		_, priv, err := ed25519.GenerateKey(nil)
		Expect(err).NotTo(HaveOccurred())
		signer, err := inject.NewSigner(priv)
		Expect(err).NotTo(HaveOccurred())
		s.Signer = signer

		client, server := net.Pipe()
		tok := cancel.New()

		go s.Serve(context.Background(), server, tok, 1)

		req := fmt.Sprintf(
			"GET http://localhost:%d/ HTTP/1.1\r\nHost: localhost:%d\r\nX-Ouinet-Version: %d\r\nConnection: close\r\n\r\n",
			port, port, inject.SupportedVersion)
		_, err = client.Write([]byte(req))
		Expect(err).NotTo(HaveOccurred())

		r := bufio.NewReader(client)
		var full strings.Builder
		buf := make([]byte, 512)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				full.Write(buf[:n])
			}
			if rerr != nil {
				break
			}
		}

		Expect(full.String()).To(ContainSubstring("Transfer-Encoding: chunked"))
		Expect(full.String()).To(ContainSubstring("X-Ouinet-Sig0"))
		Expect(full.String()).To(ContainSubstring("5\r\nhello\r\n"))
		Expect(full.String()).To(ContainSubstring("X-Ouinet-Sig1"))

		client.Close()
	})
})
