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

// Package atomicx provides a small generic, lock-free value box used to
// hot-swap shared, read-mostly state (config, signing key, pool handle)
// across goroutines without a mutex on the read path.
package atomicx

import "sync/atomic"

// Value is a type-safe wrapper over sync/atomic.Value.
type Value[T any] struct {
	av atomic.Value
}

// NewValue returns an empty Value[T].
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// NewValueWith returns a Value[T] pre-populated with init.
func NewValueWith[T any](init T) *Value[T] {
	v := &Value[T]{}
	v.Store(init)
	return v
}

// Load returns the current value, or the zero value of T if nothing was
// ever stored.
func (v *Value[T]) Load() T {
	t, _ := v.load()
	return t
}

// LoadOK is like Load but also reports whether Store was ever called,
// letting a caller fall back to some other default only on a genuine
// miss rather than on a legitimately stored zero value.
func (v *Value[T]) LoadOK() (T, bool) {
	return v.load()
}

// Store replaces the current value atomically.
func (v *Value[T]) Store(val T) {
	v.av.Store(box[T]{v: val})
}

// Swap atomically stores val and returns the previous value.
func (v *Value[T]) Swap(val T) (old T) {
	i := v.av.Swap(box[T]{v: val})
	if i == nil {
		return old
	}
	if b, ok := i.(box[T]); ok {
		return b.v
	}
	return old
}

// box carries T through atomic.Value so that the zero value of T (which
// may itself be the untyped nil interface when T is an interface type)
// never collides with atomic.Value's own "never stored" nil sentinel.
type box[T any] struct {
	v T
}

func (v *Value[T]) load() (T, bool) {
	i := v.av.Load()
	if i == nil {
		var zero T
		return zero, false
	}
	b, ok := i.(box[T])
	if !ok {
		var zero T
		return zero, false
	}
	return b.v, true
}
