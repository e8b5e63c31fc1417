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

// Package cancel implements the process-wide cancellation broadcast
// (spec §4.A): any number of goroutines register a callback; Fire runs
// every registered callback exactly once, in reverse registration
// order, and any callback registered after Fire has already run fires
// immediately. A Token can derive a Child that fires when either it or
// its parent fires.
package cancel

import "sync"

// Slot identifies one registration, for use with Drop.
type Slot uint64

// Token is a broadcast, idempotent cancellation flag with callback
// registration. The zero value is not usable; use New.
type Token struct {
	mu       sync.Mutex
	fired    bool
	next     Slot
	order    []Slot
	callback map[Slot]func()
}

// New returns a fresh, unfired Token.
func New() *Token {
	return &Token{callback: make(map[Slot]func())}
}

// Register adds cb to the callback list. If the token has already
// fired, cb runs synchronously before Register returns (matching the
// spec's "registrations after firing invoke immediately" contract).
func (t *Token) Register(cb func()) Slot {
	t.mu.Lock()

	if t.fired {
		t.mu.Unlock()
		cb()
		return 0
	}

	t.next++
	s := t.next
	t.callback[s] = cb
	t.order = append(t.order, s)
	t.mu.Unlock()

	return s
}

// Drop unregisters a callback before it has run. A no-op if the token
// has already fired or the slot is unknown.
func (t *Token) Drop(s Slot) {
	if s == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return
	}

	delete(t.callback, s)
	for i, o := range t.order {
		if o == s {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Fire marks the token as fired and runs every currently-registered
// callback exactly once, in reverse registration order. Reentrant Fire
// calls are a no-op.
func (t *Token) Fire() {
	t.mu.Lock()
	if t.fired {
		t.mu.Unlock()
		return
	}

	t.fired = true
	order := t.order
	cbs := t.callback
	t.order = nil
	t.callback = make(map[Slot]func())
	t.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		if cb, ok := cbs[order[i]]; ok {
			cb()
		}
	}
}

// Fired reports whether Fire has already run.
func (t *Token) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Child derives a new Token that fires when either t or the child
// itself fires, without the child ever firing the parent.
func (t *Token) Child() *Token {
	c := New()
	slot := t.Register(c.Fire)
	// If the child fires first (targeted abort), unregister from the
	// parent so the callback list does not grow unbounded across many
	// short-lived children (e.g. one per CONNECT tunnel).
	c.Register(func() { t.Drop(slot) })
	return c
}
