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

// Package metrics collects the counters and histograms named in the
// injector's observability surface: accepted and active connections,
// pool hit/miss/eviction counts, injected vs. plain-proxy responses,
// bytes forwarded, and errors by kind. It is deliberately a much
// smaller surface than a general-purpose gin-middleware metrics
// registry: there is one fixed set of named instruments, not an
// open-ended registration API, since this binary has one HTTP surface
// to instrument rather than many services sharing a process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric this injector exposes at /metrics on the
// metrics-listen address (see Serve),
// bound to a private prometheus.Registry rather than the package-level
// default: a process may build more than one Registry (tests do, one
// per spec), and nothing here should collide with metrics any other
// component of a larger binary might register on the default one.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsAccepted *prometheus.CounterVec
	ConnectionsActive   prometheus.Gauge

	PoolHits      prometheus.Counter
	PoolMisses    prometheus.Counter
	PoolEvictions *prometheus.CounterVec

	ResponsesInjected prometheus.Counter
	ResponsesPlain    prometheus.Counter
	BytesForwarded    prometheus.Counter
	ErrorsByKind      *prometheus.CounterVec
	ForwardDuration   prometheus.Histogram
}

// New builds every instrument and registers it against a fresh,
// private registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ConnectionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "connections_accepted_total",
			Help:      "Connections accepted, by transport.",
		}, []string{"transport"}),

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ouinet_injector",
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),

		PoolHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "pool_hits_total",
			Help:      "Origin connections reused from the idle pool.",
		}),

		PoolMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "pool_misses_total",
			Help:      "Origin connections dialed fresh because the pool held none for the key.",
		}),

		PoolEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "pool_evictions_total",
			Help:      "Idle origin connections evicted, by reason.",
		}, []string{"reason"}),

		ResponsesInjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "responses_injected_total",
			Help:      "Responses signed and re-framed for a version-matching client.",
		}),

		ResponsesPlain: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "responses_plain_total",
			Help:      "Responses forwarded without injection, in plain-proxy mode.",
		}),

		BytesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "bytes_forwarded_total",
			Help:      "Response body bytes streamed to clients.",
		}),

		ErrorsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ouinet_injector",
			Name:      "errors_total",
			Help:      "Handler failures, by classified error kind.",
		}, []string{"kind"}),

		ForwardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ouinet_injector",
			Name:      "forward_duration_seconds",
			Help:      "Wall time spent streaming one response body to a client.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 1, 5, 10, 30},
		}),
	}

	r.reg.MustRegister(
		r.ConnectionsAccepted,
		r.ConnectionsActive,
		r.PoolHits,
		r.PoolMisses,
		r.PoolEvictions,
		r.ResponsesInjected,
		r.ResponsesPlain,
		r.BytesForwarded,
		r.ErrorsByKind,
		r.ForwardDuration,
	)

	return r
}

// PoolEvictionReason names the label values used on PoolEvictions.
type PoolEvictionReason string

const (
	PoolEvictionTTL      PoolEvictionReason = "ttl"
	PoolEvictionPerKey   PoolEvictionReason = "per_key_bound"
	PoolEvictionGlobal   PoolEvictionReason = "global_bound"
)

// EvictPool increments the eviction counter for reason.
func (r *Registry) EvictPool(reason PoolEvictionReason) {
	r.PoolEvictions.WithLabelValues(string(reason)).Inc()
}

// RecordError increments the error counter for a classified failure.
func (r *Registry) RecordError(kind string) {
	r.ErrorsByKind.WithLabelValues(kind).Inc()
}
