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

package accept

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/mhqz/ouinet-injector/cancel"
	"github.com/mhqz/ouinet-injector/ierr"
	"github.com/mhqz/ouinet-injector/logger"

	"golang.org/x/sync/errgroup"
)

// backoff is how long the accept loop pauses after a transient Accept
// error before retrying, so a burst of ephemeral-port exhaustion or
// similar does not spin the CPU.
const backoff = 100 * time.Millisecond

// Handler processes one accepted connection. id is a monotonically
// increasing per-transport connection number, used in log correlation.
type Handler func(ctx context.Context, conn net.Conn, id uint64)

// Loop runs Transport.Accept in a tight loop, dispatching each
// connection to handler on its own goroutine, until tok fires. Any
// other Accept error is logged and retried after backoff. It blocks until
// every in-flight handler has returned (waitgroup draining on
// shutdown), so callers can rely on Loop's return to mean "no more
// connections are being served on this transport".
func Loop(tok *cancel.Token, t Transport, handler Handler, log *logger.Logger) error {
	ctx, cancelCtx := context.WithCancel(context.Background())
	slot := tok.Register(cancelCtx)
	defer tok.Drop(slot)

	var grp errgroup.Group
	var nextID uint64

	defer func() {
		_ = t.Close()
		_ = grp.Wait()
	}()

	for {
		conn, err := t.Accept(ctx)
		if err != nil {
			if tok.Fired() || ctx.Err() != nil {
				return nil
			}
			if ierr.As(err, ierr.ErrCanceled) {
				return nil
			}

			log.Entry(logger.WarnLevel, "accept failed, retrying").
				ErrorAdd(true, err).
				Field("transport", t.Protocol().String()).
				Log()

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}

		id := atomic.AddUint64(&nextID, 1)
		grp.Go(func() error {
			handler(ctx, conn, id)
			return nil
		})
	}
}
