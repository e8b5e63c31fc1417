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

// Package monitor runs the injector's own self-check: is the listener
// address it was given still dialable, is the idle connection pool
// within its configured bound, and has an error been recorded too
// recently to call the process healthy. The result backs /api/ok.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mhqz/ouinet-injector/pool"
)

// errNotRunning mirrors the teacher's own "server is not running"
// health-check sentinel.
var errNotRunning = errors.New("monitor: listener is not accepting connections")

// PoolSizer is satisfied by pool.Pool, narrowed so tests can substitute
// a fake without pulling in the real pool's dial/TTL machinery.
type PoolSizer interface {
	Len() int
}

// Checker runs periodic self-checks against one listener address and
// the shared origin connection pool.
type Checker struct {
	addr       string
	pool       PoolSizer
	poolBound  int
	errorTTL   time.Duration
	dialTimeout time.Duration

	lastError atomic.Value // error
	lastCheck atomic.Value // time.Time

	mu      sync.Mutex
	running bool
}

// New builds a Checker for a listener bound to addr, backed by p (whose
// Len() must stay at or below poolBound), treating any recorded error
// older than errorTTL as stale and therefore not health-affecting.
func New(addr string, p PoolSizer, poolBound int, errorTTL time.Duration) *Checker {
	if errorTTL <= 0 {
		errorTTL = 30 * time.Second
	}
	return &Checker{addr: addr, pool: p, poolBound: poolBound, errorTTL: errorTTL, dialTimeout: 2 * time.Second}
}

// RecordError latches the most recent handler failure, observed by the
// next HealthCheck within errorTTL.
func (c *Checker) RecordError(err error) {
	if err == nil {
		return
	}
	c.lastError.Store(err)
	c.lastCheck.Store(time.Now())
}

// MarkRunning flips the listener's running flag; cmd/injector sets it
// once a listener has successfully bound, and nothing clears it again.
func (c *Checker) MarkRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()
}

// HealthCheck reports the first failing condition found, or nil if the
// listener is dialable, the pool is within bound, and no recent error
// was recorded.
func (c *Checker) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if !running {
		return errNotRunning
	}

	if c.pool != nil && c.poolBound > 0 {
		if n := c.pool.Len(); n > c.poolBound {
			return fmt.Errorf("monitor: pool holds %d connections, over the configured bound of %d", n, c.poolBound)
		}
	}

	if err, at := c.recentError(); err != nil {
		if time.Since(at) < c.errorTTL {
			return fmt.Errorf("monitor: recent handler error: %w", err)
		}
	}

	return c.dialSelf(ctx)
}

func (c *Checker) recentError() (error, time.Time) {
	errVal := c.lastError.Load()
	atVal := c.lastCheck.Load()
	if errVal == nil || atVal == nil {
		return nil, time.Time{}
	}
	return errVal.(error), atVal.(time.Time)
}

func (c *Checker) dialSelf(ctx context.Context) error {
	x, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(x, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("monitor: self-dial %s failed: %w", c.addr, err)
	}
	return conn.Close()
}

var _ PoolSizer = (*pool.Pool)(nil)
