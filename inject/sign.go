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

// Package inject implements the injection transform (spec §4.E): it
// rewrites a response head for re-signed delivery, accumulates a
// running SHA-256 of the body as it streams past, and produces a
// trailer carrying an Ed25519 signature over the emitted head plus the
// body digest. Ed25519 and SHA-256 are treated as opaque primitives
// supplied by the standard library, not reimplemented here.
package inject

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mhqz/ouinet-injector/ierr"
)

// SupportedVersion is the X-Ouinet-Version this injector negotiates
// (spec §4.H). Config may override it in a future revision; it is a
// constant here because exactly one version is implemented.
const SupportedVersion = 6

// Signer holds the injector's long-term Ed25519 identity.
type Signer struct {
	priv  ed25519.PrivateKey
	keyID string
}

// NewSigner derives a Signer from a raw Ed25519 private key and
// precomputes the stable keyId (URL-safe base64 of the public half).
func NewSigner(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ierr.ErrCrypto.Errorf("inject: private key has wrong size %d", len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{
		priv:  priv,
		keyID: base64.RawURLEncoding.EncodeToString(pub),
	}, nil
}

// KeyID is the stable identifier advertised in every signature this
// Signer produces.
func (s *Signer) KeyID() string { return s.keyID }

// signedField is one (name, value) pair that participates in a
// signature's canonical form (spec §4.E, §6 "Signature format").
type signedField struct {
	Name  string
	Value string
}

// canonicalize renders fields as the signing input: for each field,
// "<lowercased name>: <value>\n", in the given order.
func canonicalize(fields []signedField) []byte {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strings.ToLower(f.Name))
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// sign produces the raw Ed25519 signature over the canonical form of
// fields.
func (s *Signer) sign(fields []signedField) []byte {
	return ed25519.Sign(s.priv, canonicalize(fields))
}

// SigHeader formats an HTTP-Signature-style string for the given
// signed fields (spec §6 "Signature format"): keyId, algorithm=hs2019,
// created, headers (the field name list, with the status line named
// "(response-status)"), and the base64 signature.
func (s *Signer) SigHeader(headerNames []string, created int64, fields []signedField) string {
	sig := s.sign(fields)
	return fmt.Sprintf(
		`keyId="%s",algorithm="hs2019",created=%d,headers="%s",signature="%s"`,
		s.keyID,
		created,
		strings.Join(headerNames, " "),
		base64.StdEncoding.EncodeToString(sig),
	)
}

// Verify checks that sigB64 is a valid Ed25519 signature by pub over
// the canonical form of fields.
func Verify(pub ed25519.PublicKey, fields []signedField, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, canonicalize(fields), sig)
}
