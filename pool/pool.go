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

// Package pool keeps idle origin connections warm for reuse (spec
// §4.C): connections are keyed by scheme/host/port, bounded both
// globally and per key, and never handed out once older than a TTL, so
// a connection the origin has silently closed is not reused forever.
// Expiry is checked lazily by Get; there is no background sweep.
package pool

import (
	"container/list"
	"net"
	"sync"
	"time"

	"github.com/mhqz/ouinet-injector/protocol"
)

const (
	// MaxTotalIdle bounds the number of idle connections kept across
	// every key.
	MaxTotalIdle = 64
	// MaxIdlePerKey bounds the number of idle connections kept for a
	// single key.
	MaxIdlePerKey = 8
	// IdleTTL is how long an idle connection stays reusable; Get closes
	// and discards an older one for its key instead of returning it.
	IdleTTL = 30 * time.Second
)

// Key identifies one pool of equivalent origin connections.
type Key struct {
	Scheme protocol.Scheme
	Host   string
	Port   string
}

// Conn is a pooled origin connection.
type Conn struct {
	net.Conn
	key     Key
	storedAt time.Time
}

type entry struct {
	key  Key
	conn *Conn
	elem *list.Element
}

// Pool is a bounded, TTL-evicting store of idle origin connections.
// The zero value is not usable; use New.
type Pool struct {
	mu       sync.Mutex
	byKey    map[Key]*list.List // list of *entry, front = most recently stored
	lru      *list.List         // list of *entry across all keys, front = most recently stored
	total    int
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		byKey: make(map[Key]*list.List),
		lru:   list.New(),
	}
}

// Get removes and returns an idle connection for key, if one is both
// present and not yet expired. Expired connections encountered along
// the way are closed and discarded.
func (p *Pool) Get(key Key) (*Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kl, ok := p.byKey[key]
	if !ok {
		return nil, false
	}

	now := time.Now()
	for e := kl.Front(); e != nil; {
		next := e.Next()
		en := e.Value.(*entry)

		if now.Sub(en.conn.storedAt) > IdleTTL {
			p.removeLocked(en)
			_ = en.conn.Conn.Close()
			e = next
			continue
		}

		p.removeLocked(en)
		return en.conn, true
	}

	return nil, false
}

// Put stores conn as idle under key. If the per-key or global bound is
// already at capacity, the least-recently-stored connection is evicted
// and closed to make room.
func (p *Pool) Put(key Key, conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kl, ok := p.byKey[key]
	if !ok {
		kl = list.New()
		p.byKey[key] = kl
	}

	if kl.Len() >= MaxIdlePerKey {
		p.evictOldestLocked(kl)
	}
	for p.total >= MaxTotalIdle {
		p.evictGlobalOldestLocked()
	}

	pc := &Conn{Conn: conn, key: key, storedAt: time.Now()}
	en := &entry{key: key, conn: pc}
	en.elem = kl.PushFront(en)
	p.lru.PushFront(en)
	p.total++
}

func (p *Pool) evictOldestLocked(kl *list.List) {
	back := kl.Back()
	if back == nil {
		return
	}
	en := back.Value.(*entry)
	p.removeLocked(en)
	_ = en.conn.Conn.Close()
}

func (p *Pool) evictGlobalOldestLocked() {
	back := p.lru.Back()
	if back == nil {
		return
	}
	en := back.Value.(*entry)
	p.removeLocked(en)
	_ = en.conn.Conn.Close()
}

// removeLocked removes en from both the per-key and global lists and
// decrements total. Caller must hold p.mu. It does not close the
// connection, since callers that hand the connection back to a caller
// (Get) must not close it.
func (p *Pool) removeLocked(en *entry) {
	kl := p.byKey[en.key]
	if kl != nil {
		kl.Remove(en.elem)
		if kl.Len() == 0 {
			delete(p.byKey, en.key)
		}
	}
	p.removeFromGlobalLocked(en)
	p.total--
}

func (p *Pool) removeFromGlobalLocked(en *entry) {
	for e := p.lru.Front(); e != nil; e = e.Next() {
		if e.Value.(*entry) == en {
			p.lru.Remove(e)
			return
		}
	}
}

// Len reports the total number of idle connections currently pooled.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// CloseAll closes and discards every pooled connection.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for e := p.lru.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*entry).conn.Conn.Close()
	}
	p.byKey = make(map[Key]*list.List)
	p.lru = list.New()
	p.total = 0
}
