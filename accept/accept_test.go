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

package accept_test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mhqz/ouinet-injector/accept"
	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/ierr"
	"github.com/mhqz/ouinet-injector/logger"
	"github.com/mhqz/ouinet-injector/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAccept(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "accept suite")
}

var _ = Describe("New", func() {
	It("builds a TCP transport bound to the requested address", func() {
		tr, err := accept.New(protocol.TransportTCP, "127.0.0.1:0", nil)
		Expect(err).NotTo(HaveOccurred())
		defer tr.Close()

		Expect(tr.Protocol()).To(Equal(protocol.TransportTCP))
		Expect(tr.Addr()).NotTo(BeNil())
	})

	It("fails loudly for a transport this binary does not implement", func() {
		_, err := accept.New(protocol.TransportI2P, "127.0.0.1:0", nil)
		Expect(err).To(HaveOccurred())
		Expect(ierr.As(err, ierr.ErrTransport)).To(BeTrue())
	})

	It("refuses TCP+TLS without a TLS configuration", func() {
		_, err := accept.New(protocol.TransportTCPTLS, "127.0.0.1:0", nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Loop", func() {
	It("dispatches every accepted connection to the handler", func() {
		tr, err := accept.New(protocol.TransportTCP, "127.0.0.1:0", nil)
		Expect(err).NotTo(HaveOccurred())

		tok := cancel.New()
		log := logger.New(logger.ErrorLevel, io.Discard)

		var mu sync.Mutex
		var seen []uint64

		done := make(chan error, 1)
		go func() {
			done <- accept.Loop(tok, tr, func(_ context.Context, conn net.Conn, id uint64) {
				mu.Lock()
				seen = append(seen, id)
				mu.Unlock()
				_ = conn.Close()
			}, log)
		}()

		addr := tr.Addr().String()
		c1, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		c1.Close()

		c2, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		c2.Close()

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(seen)
		}, time.Second, 10*time.Millisecond).Should(Equal(2))

		tok.Fire()
		Eventually(done, time.Second).Should(Receive(BeNil()))
	})

	It("returns once the token fires even with no connections ever accepted", func() {
		tr, err := accept.New(protocol.TransportTCP, "127.0.0.1:0", nil)
		Expect(err).NotTo(HaveOccurred())

		tok := cancel.New()
		log := logger.New(logger.ErrorLevel, io.Discard)

		done := make(chan error, 1)
		go func() {
			done <- accept.Loop(tok, tr, func(context.Context, net.Conn, uint64) {}, log)
		}()

		time.Sleep(10 * time.Millisecond)
		tok.Fire()

		Eventually(done, time.Second).Should(Receive(BeNil()))
	})
})
