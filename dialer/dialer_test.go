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

package dialer_test

import (
	"context"
	"net"
	"testing"

	"github.com/mhqz/ouinet-injector/dialer"
	"github.com/mhqz/ouinet-injector/durationx"
	"github.com/mhqz/ouinet-injector/ierr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDialer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "dialer suite")
}

type fakeResolverFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

func (f fakeResolverFunc) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return f(ctx, host)
}

var _ = Describe("Dialer", func() {
	d := dialer.New(durationx.Seconds(1), nil)

	DescribeTable("rejects loopback and unspecified literal targets",
		func(target string) {
			_, err := d.DialPlain(context.Background(), target)
			Expect(err).To(HaveOccurred())
			Expect(ierr.As(err, ierr.ErrBlocked)).To(BeTrue())
		},
		Entry("IPv4 loopback", "127.0.0.1:80"),
		Entry("IPv6 loopback", "[::1]:80"),
		Entry("IPv4-mapped IPv6 loopback", "[::ffff:127.0.0.1]:80"),
		Entry("unspecified", "0.0.0.0:80"),
	)

	It("rejects a hostname that resolves to a loopback address", func() {
		loopbackResolver := fakeResolverFunc(func(ctx context.Context, host string) ([]net.IPAddr, error) {
			return []net.IPAddr{{IP: net.ParseIP("127.0.0.1")}}, nil
		})
		blocked := dialer.New(durationx.Seconds(1), nil)
		blocked.Resolver = loopbackResolver

		_, err := blocked.DialPlain(context.Background(), "attacker.example:80")
		Expect(err).To(HaveOccurred())
		Expect(ierr.As(err, ierr.ErrBlocked)).To(BeTrue())
	})

	DescribeTable("DialConnect enforces the port allow-list",
		func(target string, allowed bool) {
			_, err := d.DialConnect(context.Background(), target)
			if allowed {
				// A real connection attempt to example.com may still
				// fail in a sandboxed test environment; only assert
				// that it was not rejected for the port.
				if err != nil {
					Expect(ierr.As(err, ierr.ErrBlocked)).To(BeFalse())
				}
			} else {
				Expect(err).To(HaveOccurred())
				Expect(ierr.As(err, ierr.ErrBlocked)).To(BeTrue())
			}
		},
		Entry("port 443 allowed", "example.com:443", true),
		Entry("port 22 blocked", "example.com:22", false),
	)
})
