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

// Package ierr provides a small numeric error-code type in the style of
// the teacher library's errors package: each CodeError classifies one of
// the error kinds named in the injector's error handling design (§7),
// carries an optional chain of parent errors, and remains compatible
// with errors.Is/errors.As.
package ierr

import (
	"fmt"
	"strings"
)

// CodeError classifies a fallible operation. Unlike the teacher's full
// HTTP-status-sized enumeration, this repository only needs the kinds
// named in the spec's error handling design.
type CodeError uint16

const (
	UnknownError CodeError = iota
	ErrTransport
	ErrFraming
	ErrBlocked
	ErrOriginConnect
	ErrAuthentication
	ErrVersion
	ErrCanceled
	ErrCrypto
)

var messages = map[CodeError]string{
	UnknownError:      "unknown error",
	ErrTransport:      "transport read/write/accept failure",
	ErrFraming:        "malformed HTTP head or chunked body",
	ErrBlocked:        "illegal target host",
	ErrOriginConnect:  "origin connect or TLS handshake failure",
	ErrAuthentication: "proxy authentication required",
	ErrVersion:        "protocol version mismatch",
	ErrCanceled:       "operation canceled",
	ErrCrypto:         "signing or hashing failure",
}

// Message returns the human-readable description registered for c.
func (c CodeError) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[UnknownError]
}

// Error builds a new Error value classified as c, optionally wrapping
// one or more parent errors.
func (c CodeError) Error(parent ...error) Error {
	return &errImpl{code: c, msg: c.Message(), parent: filterNil(parent)}
}

// Errorf builds a new Error with a formatted message, still classified
// as c for CodeError-based matching.
func (c CodeError) Errorf(format string, args ...interface{}) Error {
	return &errImpl{code: c, msg: fmt.Sprintf(format, args...)}
}

// Error is the library-wide error type: a standard error plus a
// CodeError classification and a parent chain.
type Error interface {
	error
	Code() CodeError
	Add(parent ...error) Error
	HasCode(c CodeError) bool
	Unwrap() error
}

type errImpl struct {
	code   CodeError
	msg    string
	parent []error
}

func (e *errImpl) Error() string {
	if len(e.parent) == 0 {
		return e.msg
	}
	s := make([]string, 0, len(e.parent))
	for _, p := range e.parent {
		s = append(s, p.Error())
	}
	return fmt.Sprintf("%s: %s", e.msg, strings.Join(s, "; "))
}

func (e *errImpl) Code() CodeError { return e.code }

func (e *errImpl) Add(parent ...error) Error {
	e.parent = append(e.parent, filterNil(parent)...)
	return e
}

func (e *errImpl) HasCode(c CodeError) bool {
	return e.code == c
}

// Unwrap exposes the first parent so errors.Is/errors.As can traverse
// the chain.
func (e *errImpl) Unwrap() error {
	if len(e.parent) == 0 {
		return nil
	}
	return e.parent[0]
}

func filterNil(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// As reports whether err, or any error in its chain, is of CodeError c.
func As(err error, c CodeError) bool {
	for err != nil {
		if e, ok := err.(Error); ok && e.HasCode(c) {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
