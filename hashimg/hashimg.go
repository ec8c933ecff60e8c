/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package hashimg computes the rolling digest bootutil_img_validate
// takes over header + payload + protected TLVs, streaming through a
// caller-sized scratch buffer the way the ancestor tooling's
// artifact/image.calcHash streams through a bytes.Buffer, but reading
// from a flash area rather than an in-memory byte slice so a target
// without memory-mapped flash never needs the whole image resident at
// once.
package hashimg

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/mcu-tools/mcuboot-sub001/mcuerr"
)

// Kind selects the hash function an image's SHA TLV was produced with.
type Kind int

const (
	Sha256 Kind = iota
	Sha384
	Sha512
)

func (k Kind) new() (hash.Hash, error) {
	switch k {
	case Sha256:
		return sha256.New(), nil
	case Sha384:
		return sha512.New384(), nil
	case Sha512:
		return sha512.New(), nil
	default:
		return nil, mcuerr.Newf("hashimg: unknown hash kind %d", k)
	}
}

// Size returns the digest width in bytes for k.
func (k Kind) Size() int {
	switch k {
	case Sha256:
		return sha256.Size
	case Sha384:
		return sha512.Size384
	case Sha512:
		return sha512.Size
	default:
		return 0
	}
}

// Source is the minimal flash-read surface Digest needs; flash.Area
// satisfies it directly.
type Source interface {
	Read(offset, length int) ([]byte, error)
}

// Decryptor decrypts one chunk of the payload region in place, given
// its offset relative to the start of the payload (not the slot). It
// is consulted only for bytes strictly between header and protected
// TLVs, never for the header or TLVs themselves (§4.2).
type Decryptor interface {
	DecryptChunk(payloadOffset int, buf []byte)
}

// Digest streams hdrSize+imgSize+protectTlvSize bytes from area,
// starting at slot offset 0, into the hash function named by kind, in
// chunks no larger than chunkSize. When dec is non-nil, the payload
// region (the imgSize bytes strictly between the header and the
// protected TLVs) is decrypted chunk-by-chunk before hashing; the
// header and protected TLV bytes are always hashed verbatim.
func Digest(kind Kind, area Source, hdrSize, imgSize, protectTlvSize, chunkSize int, dec Decryptor) ([]byte, error) {
	if chunkSize <= 0 {
		return nil, mcuerr.New("hashimg: chunk size must be positive")
	}

	h, err := kind.new()
	if err != nil {
		return nil, err
	}

	total := hdrSize + imgSize + protectTlvSize
	payloadStart := hdrSize
	payloadEnd := hdrSize + imgSize

	for off := 0; off < total; {
		n := chunkSize
		if off+n > total {
			n = total - off
		}

		buf, err := area.Read(off, n)
		if err != nil {
			return nil, mcuerr.Wrapf(err, "hashimg: reading chunk at offset %d", off)
		}

		if dec != nil {
			decryptOverlap(buf, off, n, payloadStart, payloadEnd, dec)
		}

		if _, err := h.Write(buf); err != nil {
			return nil, mcuerr.Wrap(err)
		}

		off += n
	}

	return h.Sum(nil), nil
}

// decryptOverlap decrypts, in place, the portion of buf (which spans
// absolute offsets [chunkOff, chunkOff+n)) that falls within
// [payloadStart, payloadEnd); bytes outside that range (header bytes
// mixed into the same chunk as the start of the payload, or protected
// TLV bytes mixed into its end) are left untouched.
func decryptOverlap(buf []byte, chunkOff, n, payloadStart, payloadEnd int, dec Decryptor) {
	lo := chunkOff
	if lo < payloadStart {
		lo = payloadStart
	}
	hi := chunkOff + n
	if hi > payloadEnd {
		hi = payloadEnd
	}
	if lo >= hi {
		return
	}

	sub := buf[lo-chunkOff : hi-chunkOff]
	dec.DecryptChunk(lo-payloadStart, sub)
}
