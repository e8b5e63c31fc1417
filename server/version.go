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

package server

import (
	"strconv"

	"github.com/mhqz/ouinet-injector/inject"
)

// versionOutcome classifies a request's X-Ouinet-Version header against
// the supported version (spec §4.H).
type versionOutcome uint8

const (
	versionAbsent versionOutcome = iota
	versionMatch
	versionTooLow
	versionTooHigh
)

// negotiateVersion reads the X-Ouinet-Version header value (empty
// string if absent) and classifies it. A value that fails to parse as
// a positive decimal integer is treated as too-low, per spec §4.H.
func negotiateVersion(raw string) versionOutcome {
	if raw == "" {
		return versionAbsent
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return versionTooLow
	}

	switch {
	case v == inject.SupportedVersion:
		return versionMatch
	case v < inject.SupportedVersion:
		return versionTooLow
	default:
		return versionTooHigh
	}
}

func (o versionOutcome) statusDiscriminator() string {
	switch o {
	case versionTooLow:
		return "version-too-low"
	case versionTooHigh:
		return "version-too-high"
	default:
		return ""
	}
}
