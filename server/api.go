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
	"bufio"
	"context"
	"net/http"

	"github.com/mhqz/ouinet-injector/httpmsg"
)

// handleInternalAPI implements spec §4.F.2: only GET /api/ok is
// recognized; everything else is rejected with 400 (Prometheus metrics
// are served by metrics.Registry.Serve on a separate listener, not
// here). When a Monitor is attached, /api/ok
// reports the monitor's verdict rather than answering unconditionally.
func (s *Server) handleInternalAPI(ctx context.Context, w *bufio.Writer, req *httpmsg.Request) {
	if req.Method == http.MethodGet && req.RawTarget == "/api/ok" {
		if s.Monitor != nil {
			if err := s.Monitor.HealthCheck(ctx); err != nil {
				writeStatusLine(w, 503, "Service Unavailable")
				w.WriteString("Content-Type: text/plain\r\n")
				body := err.Error()
				w.WriteString("Content-Length: " + itoa(len(body)) + "\r\n\r\n")
				w.WriteString(body)
				return
			}
		}
		writeStatusLine(w, 200, "OK")
		w.WriteString("Content-Type: text/html\r\n")
		w.WriteString("Content-Length: 0\r\n\r\n")
		return
	}

	writeStatusLine(w, 400, "Bad Request")
	w.WriteString("Content-Length: 0\r\n\r\n")
}
