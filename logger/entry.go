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

package logger

import "github.com/sirupsen/logrus"

// Entry is a single log record under construction. It mirrors the
// teacher's logger.Entry builder API (Field / ErrorAdd / Log).
type Entry struct {
	logger *logrus.Logger
	level  Level
	msg    string
	fields logrus.Fields
	errs   []error
}

// Field attaches one key/value pair to the entry and returns it for
// chaining.
func (e *Entry) Field(key string, val interface{}) *Entry {
	e.fields[key] = val
	return e
}

// ErrorAdd attaches an error to the entry. A nil err is ignored whatever
// required says (mirrors the teacher's defensive ErrorAdd used in defer
// blocks where err may or may not be set).
func (e *Entry) ErrorAdd(required bool, err error) *Entry {
	if err == nil {
		if !required {
			return e
		}
		return e
	}
	e.errs = append(e.errs, err)
	return e
}

// Log emits the entry at its configured level.
func (e *Entry) Log() {
	fields := e.fields
	if len(e.errs) > 0 {
		msgs := make([]string, 0, len(e.errs))
		for _, err := range e.errs {
			msgs = append(msgs, err.Error())
		}
		fields["error"] = msgs
	}

	entry := e.logger.WithFields(fields)

	switch e.level {
	case ErrorLevel:
		entry.Error(e.msg)
	case WarnLevel:
		entry.Warn(e.msg)
	case DebugLevel:
		entry.Debug(e.msg)
	default:
		entry.Info(e.msg)
	}
}
