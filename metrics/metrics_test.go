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

package metrics_test

import (
	"testing"

	"github.com/mhqz/ouinet-injector/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "metrics suite")
}

var _ = Describe("Registry", func() {
	It("counts pool evictions by reason", func() {
		r := metrics.New()
		r.EvictPool(metrics.PoolEvictionTTL)
		r.EvictPool(metrics.PoolEvictionTTL)
		r.EvictPool(metrics.PoolEvictionPerKey)

		Expect(testutil.ToFloat64(r.PoolEvictions.WithLabelValues("ttl"))).To(Equal(float64(2)))
		Expect(testutil.ToFloat64(r.PoolEvictions.WithLabelValues("per_key_bound"))).To(Equal(float64(1)))
	})

	It("counts errors by classified kind", func() {
		r := metrics.New()
		r.RecordError("transport")
		r.RecordError("transport")
		r.RecordError("framing")

		Expect(testutil.ToFloat64(r.ErrorsByKind.WithLabelValues("transport"))).To(Equal(float64(2)))
		Expect(testutil.ToFloat64(r.ErrorsByKind.WithLabelValues("framing"))).To(Equal(float64(1)))
	})

	It("tracks active connection count as a gauge", func() {
		r := metrics.New()
		r.ConnectionsActive.Inc()
		r.ConnectionsActive.Inc()
		r.ConnectionsActive.Dec()

		Expect(testutil.ToFloat64(r.ConnectionsActive)).To(Equal(float64(1)))
	})
})
