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

package protocol

// Transport enumerates every listener kind the configuration surface
// (spec §6) names. Only TCP and TCPTLS are backed by a concrete
// accept.Transport in this repository; the rest are recognized so that
// config validation and CLI help stay complete, but fail loudly at
// startup (see accept.ErrUnsupportedTransport).
type Transport uint8

const (
	TransportUnknown Transport = iota
	TransportTCP
	TransportTCPTLS
	TransportUTP
	TransportUTPTLS
	TransportObfs2
	TransportObfs3
	TransportObfs4
	TransportLampshade
	TransportI2P
	TransportBEP5
)

func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportTCPTLS:
		return "tcp-tls"
	case TransportUTP:
		return "utp"
	case TransportUTPTLS:
		return "utp-tls"
	case TransportObfs2:
		return "obfs2"
	case TransportObfs3:
		return "obfs3"
	case TransportObfs4:
		return "obfs4"
	case TransportLampshade:
		return "lampshade"
	case TransportI2P:
		return "i2p"
	case TransportBEP5:
		return "bep5"
	default:
		return "unknown"
	}
}

// Implemented reports whether this repository wires an actual listener
// for the transport, as opposed to a named stub.
func (t Transport) Implemented() bool {
	return t == TransportTCP || t == TransportTCPTLS
}
