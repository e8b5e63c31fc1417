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
	"strings"
	"time"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/durationx"
	"github.com/mhqz/ouinet-injector/httpmsg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("splice", func() {
	It("copies bytes in both directions until one side closes", func() {
		aClient, aServer := net.Pipe()
		bClient, bServer := net.Pipe()
		tok := cancel.New()

		go splice(aServer, bServer, tok)

		go func() { _, _ = aClient.Write([]byte("ping")) }()
		buf := make([]byte, 4)
		_, err := bClient.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(Equal("ping"))

		go func() { _, _ = bClient.Write([]byte("pong")) }()
		_, err = aClient.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf)).To(Equal("pong"))

		aClient.Close()
		bClient.Close()
	})

	It("force-closes both sides when the token fires", func() {
		aClient, aServer := net.Pipe()
		bClient, bServer := net.Pipe()
		tok := cancel.New()

		done := make(chan struct{})
		go func() {
			splice(aServer, bServer, tok)
			close(done)
		}()

		tok.Fire()

		select {
		case <-done:
		case <-time.After(time.Second):
			Fail("splice did not return after the token fired")
		}

		_, err := aClient.Write([]byte("x"))
		Expect(err).To(HaveOccurred())

		aClient.Close()
		bClient.Close()
	})
})

var _ = Describe("handleConnect", func() {
	It("answers 400 without ever reaching splice when the target port is blocked", func() {
		s := &Server{Dialer: dialer.New(durationx.Seconds(1), nil)}

		client, srv := net.Pipe()
		tok := cancel.New()

		req, err := httpmsg.ReadRequest(bufio.NewReader(strings.NewReader(
			"CONNECT example.com:22 HTTP/1.1\r\nHost: example.com:22\r\n\r\n")))
		Expect(err).NotTo(HaveOccurred())

		go s.handleConnect(context.Background(), srv, req, tok)

		r := bufio.NewReader(client)
		status, err := r.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(ContainSubstring("400"))

		client.Close()
	})
})
