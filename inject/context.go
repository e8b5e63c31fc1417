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

package inject

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"net/http"
	"strconv"

	"github.com/mhqz/ouinet-injector/httpmsg"
	"github.com/mhqz/ouinet-injector/ierr"

	uuid "github.com/hashicorp/go-uuid"
)

// Context is the per-injected-response state named in spec §3: a fresh
// insert-id, a running SHA-256 accumulator, a running forwarded-byte
// counter, the post-rewrite response head, and the signer used to
// produce both signatures. It is constructed once a head is decided to
// be injectable and consumed when the trailer is written.
type Context struct {
	signer   *Signer
	uri      string
	insertID string
	created  int64

	body hash.Hash
	size int64

	headFields []signedField
	headNames  []string
}

// NewContext builds a fresh injection context for one response to uri,
// timestamped at created (unix seconds).
func NewContext(signer *Signer, uri string, created int64) (*Context, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, ierr.ErrCrypto.Error(err)
	}

	return &Context{
		signer:   signer,
		uri:      uri,
		insertID: id,
		created:  created,
		body:     sha256.New(),
	}, nil
}

// InsertID returns this context's fresh UUID.
func (c *Context) InsertID() string { return c.insertID }

// HeadXform is a forward.HeadXform that rewrites the response head for
// injection mode: strips hop-by-hop/Ouinet-internal fields, switches to
// chunked framing, and inserts the X-Ouinet-* head fields plus Sig0.
func (c *Context) HeadXform(in *httpmsg.ResponseHead) (*httpmsg.ResponseHead, error) {
	hdr := in.Header.Clone()
	httpmsg.SanitizeForForward(hdr)

	injection := fmt.Sprintf("id=%s,ts=%d", c.insertID, c.created)

	hdr.Set("X-Ouinet-Version", strconv.Itoa(SupportedVersion))
	hdr.Set("X-Ouinet-URI", c.uri)
	hdr.Set("X-Ouinet-Injection", injection)
	hdr.Set("Trailer", "Digest, X-Ouinet-Data-Size, X-Ouinet-Sig1")
	hdr.Set("Transfer-Encoding", "chunked")
	hdr.Del("Content-Length")

	c.headFields = []signedField{
		{Name: "(response-status)", Value: strconv.Itoa(in.StatusCode)},
		{Name: "X-Ouinet-Version", Value: strconv.Itoa(SupportedVersion)},
		{Name: "X-Ouinet-URI", Value: c.uri},
		{Name: "X-Ouinet-Injection", Value: injection},
	}
	c.headNames = []string{"(response-status)", "x-ouinet-version", "x-ouinet-uri", "x-ouinet-injection"}

	hdr.Set("X-Ouinet-Sig0", c.signer.SigHeader(c.headNames, c.created, c.headFields))

	return &httpmsg.ResponseHead{
		StatusCode: in.StatusCode,
		Status:     in.Status,
		Proto:      in.Proto,
		Header:     hdr,
		Framing:    httpmsg.FramingChunked,
	}, nil
}

// DataXform is a forward.DataXform that feeds every observed chunk into
// the running body hash and byte counter, without altering it.
func (c *Context) DataXform(chunk []byte) {
	c.body.Write(chunk)
	c.size += int64(len(chunk))
}

// TrailerXform is a forward.TrailerXform that discards any trailer the
// origin sent (the spec names only Digest/Data-Size/Sig1 as emitted
// trailer fields) and emits the injection trailer.
func (c *Context) TrailerXform(_ http.Header) http.Header {
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(c.sumNow())
	size := strconv.FormatInt(c.size, 10)

	fields := append(append([]signedField{}, c.headFields...),
		signedField{Name: "Digest", Value: digest},
		signedField{Name: "X-Ouinet-Data-Size", Value: size},
	)
	names := append(append([]string{}, c.headNames...), "digest", "x-ouinet-data-size")

	sig1 := c.signer.SigHeader(names, c.created, fields)

	out := http.Header{}
	out.Set("Digest", digest)
	out.Set("X-Ouinet-Data-Size", size)
	out.Set("X-Ouinet-Sig1", sig1)
	return out
}

// sumNow returns the SHA-256 digest of every byte observed so far.
func (c *Context) sumNow() []byte {
	return c.body.Sum(nil)
}
