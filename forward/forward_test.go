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

package forward_test

import (
	"bufio"
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/mhqz/ouinet-injector/forward"
	"github.com/mhqz/ouinet-injector/httpmsg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestForward(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "forward suite")
}

var _ = Describe("Forward", func() {
	It("passes through a Content-Length response unchanged when the head transform is identity", func() {
		origin := bufio.NewReader(strings.NewReader(
			"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		var out bytes.Buffer
		sink := bufio.NewWriter(&out)

		head := func(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error) { return in, nil }

		res, err := forward.Forward(origin, sink, head, forward.IdentityData, forward.IdentityTrailer, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.BodyBytes).To(Equal(int64(5)))
		Expect(out.String()).To(ContainSubstring("hello"))
		Expect(out.String()).To(ContainSubstring("Content-Length: 5"))
	})

	It("re-frames a Content-Length origin response into chunked output", func() {
		origin := bufio.NewReader(strings.NewReader(
			"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
		var out bytes.Buffer
		sink := bufio.NewWriter(&out)

		head := func(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error) {
			out := &httpmsg.ResponseHead{
				StatusCode: in.StatusCode,
				Status:     in.Status,
				Proto:      in.Proto,
				Header:     http.Header{"Transfer-Encoding": {"chunked"}},
				Framing:    httpmsg.FramingChunked,
			}
			return out, nil
		}

		var captured []byte
		data := func(chunk []byte) { captured = append(captured, chunk...) }

		res, err := forward.Forward(origin, sink, head, data, forward.IdentityTrailer, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.WroteChunks).To(BeTrue())
		Expect(string(captured)).To(Equal("hello"))
		Expect(out.String()).To(ContainSubstring("5\r\nhello\r\n"))
		Expect(out.String()).To(HaveSuffix("0\r\n\r\n"))
	})

	It("streams a chunked origin response through to a chunked client", func() {
		origin := bufio.NewReader(strings.NewReader(
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"))
		var out bytes.Buffer
		sink := bufio.NewWriter(&out)

		head := func(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error) { return in, nil }

		res, err := forward.Forward(origin, sink, head, forward.IdentityData, forward.IdentityTrailer, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.BodyBytes).To(Equal(int64(5)))
		Expect(out.String()).To(ContainSubstring("hello"))
	})
})
