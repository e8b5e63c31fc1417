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

// Package keymaterial loads the two kinds of on-disk key material the
// injector needs: the Ed25519 signing key behind every injected
// response (config's cache-private-key=<path>), and the X.509
// certificate/key pair behind any *-tcp-tls listener. Unlike the
// teacher's certificates package, which builds a tls.Config from a
// declarative set of curve/cipher/version/auth options across several
// subpackages, this loader only covers what the injector's listeners
// actually need: a single server certificate with a fixed minimum TLS
// version of 1.2.
package keymaterial

import (
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/mhqz/ouinet-injector/ierr"
)

// LoadSigningKey reads an Ed25519 private key from an unencrypted PEM
// file at path, either in PKCS#8 ("PRIVATE KEY") or raw form (an
// "ED25519 PRIVATE KEY" block holding either the ed25519.SeedSize-byte
// seed or the full ed25519.PrivateKeySize-byte private key).
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ierr.ErrCrypto.Error(err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ierr.ErrCrypto.Errorf("keymaterial: %s has no PEM block", path)
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, ierr.ErrCrypto.Error(err)
		}
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, ierr.ErrCrypto.Errorf("keymaterial: %s is not an Ed25519 key", path)
		}
		return priv, nil

	case "ED25519 PRIVATE KEY":
		if len(block.Bytes) == ed25519.SeedSize {
			return ed25519.NewKeyFromSeed(block.Bytes), nil
		}
		if len(block.Bytes) == ed25519.PrivateKeySize {
			return ed25519.PrivateKey(block.Bytes), nil
		}
		return nil, ierr.ErrCrypto.Errorf("keymaterial: %s holds %d bytes, want %d or %d", path, len(block.Bytes), ed25519.SeedSize, ed25519.PrivateKeySize)

	default:
		return nil, ierr.ErrCrypto.Errorf("keymaterial: %s has unexpected PEM type %q", path, block.Type)
	}
}

// LoadServerTLS builds a minimal tls.Config serving certFile/keyFile to
// any *-tcp-tls listener, pinned at TLS 1.2 as the floor (matching the
// teacher's own versionMin default) since the injector has no need for
// the teacher's full curve/cipher/client-auth configurability.
func LoadServerTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, ierr.ErrCrypto.Error(err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
