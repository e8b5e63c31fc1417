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

// Package logger is a small, field-tagged logging facade over logrus,
// grounded on the teacher's logger package: callers build an Entry,
// attach fields and errors, then call Log(). Output is colorized when
// attached to a terminal (mattn/go-colorable + mattn/go-isatty), plain
// JSON otherwise.
package logger

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Logger is the shared, thread-safe logging handle passed down to every
// component of the injector.
type Logger struct {
	log *logrus.Logger
}

// FuncLog is a logger factory type in the teacher's style. The
// components of this module do not use it; they take a *Logger directly.
type FuncLog func() *Logger

// New builds a Logger at the given level, writing to w (os.Stderr if
// nil). JSON formatting is used unless w is a terminal.
func New(lvl Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	l := logrus.New()
	l.SetLevel(lvl.Logrus())
	l.SetOutput(w)

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		l.SetOutput(colorable.NewColorable(f))
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Logger{log: l}
}

// Entry starts a new log entry at the given level with an initial
// message.
func (l *Logger) Entry(lvl Level, msg string) *Entry {
	return &Entry{
		logger: l.log,
		level:  lvl,
		msg:    msg,
		fields: logrus.Fields{},
	}
}
